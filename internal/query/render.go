package query

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"
)

// Render lists rows as tuples, e.g. [(1, 'Alice'), (2, NULL)]. A one-column
// row keeps a trailing comma: [(2,)].
func Render(rows [][]any) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, value := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(renderValue(value))
		}
		if len(row) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	}
	b.WriteByte(']')
	return b.String()
}

// Format builds the response text for an answered question.
func Format(question, sqlText, rendered string) string {
	return "Question: " + question + "\nSQL Query: " + sqlText + "\n\nGenerated Response: " + rendered
}

func renderValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(typed)
	case []byte:
		return quote(string(typed))
	case time.Time:
		return quote(typed.Format(time.RFC3339Nano))
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'g', -1, 32)
	case Number:
		return string(typed)
	case *big.Int:
		if typed == nil {
			return "NULL"
		}
		return typed.String()
	case duckdb.Decimal:
		return formatScaled(typed.Value, int(typed.Scale))
	case fmt.Stringer:
		return quote(typed.String())
	default:
		return fmt.Sprint(typed)
	}
}

// formatScaled writes value / 10^scale with exactly scale fractional digits.
func formatScaled(value *big.Int, scale int) string {
	if value == nil {
		return "NULL"
	}
	digits := new(big.Int).Abs(value).String()
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if value.Sign() < 0 {
		digits = "-" + digits
	}
	return digits
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}
