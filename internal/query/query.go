// Package query turns a completion into the generated statement, runs it on
// a database session and renders the outcome as text.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/askdb/askdb/internal/database"
)

// Prefix is the keyword the generation prompt ends with; the completion
// continues after it.
const Prefix = "SELECT"

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// BuildQuery prepends Prefix to the completion and flattens it onto one line.
// The statement is not validated.
func BuildQuery(completion string) string {
	return strings.ReplaceAll(Prefix+completion, "\n", " ")
}

// Execute runs sqlText on q and collects every row.
func Execute(ctx context.Context, q database.Querier, sqlText string) (Result, error) {
	start := time.Now()
	rows, err := q.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}
	columns := make([]string, len(columnTypes))
	dbTypes := make([]string, len(columnTypes))
	for i, columnType := range columnTypes {
		columns[i] = columnType.Name()
		dbTypes[i] = columnType.DatabaseTypeName()
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values, dbTypes))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// Number is a numeric value the driver delivered as text, such as a SQL
// Server DECIMAL or a MySQL INT. It renders unquoted and keeps its scale.
type Number string

func normalizeValues(values []any, dbTypes []string) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		normalized[i] = normalizeValue(value, dbTypes[i])
	}
	return normalized
}

func normalizeValue(value any, dbType string) any {
	kind := baseTypeName(dbType)
	switch typed := value.(type) {
	case []byte:
		if len(typed) == 16 {
			if id, ok := formatUUID(typed, kind); ok {
				return id
			}
		}
		if numericTypes[kind] {
			return Number(typed)
		}
		return string(typed)
	case string:
		if numericTypes[kind] {
			return Number(typed)
		}
	}
	return value
}

// formatUUID renders 16 raw bytes as canonical UUID text. SQL Server sends
// UNIQUEIDENTIFIER with its first three groups little-endian.
func formatUUID(raw []byte, kind string) (string, bool) {
	switch kind {
	case "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(raw); err != nil {
			return "", false
		}
		return id.String(), true
	case "UUID":
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return "", false
		}
		return id.String(), true
	}
	return "", false
}

// baseTypeName upper-cases a driver type name and drops any length or
// precision suffix and MySQL's UNSIGNED prefix: "DECIMAL(10,2)" -> "DECIMAL".
func baseTypeName(dbType string) string {
	name := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return strings.TrimPrefix(name, "UNSIGNED ")
}

var numericTypes = map[string]bool{
	"TINYINT":    true,
	"SMALLINT":   true,
	"MEDIUMINT":  true,
	"INT":        true,
	"INTEGER":    true,
	"BIGINT":     true,
	"HUGEINT":    true,
	"UBIGINT":    true,
	"UHUGEINT":   true,
	"DECIMAL":    true,
	"NUMERIC":    true,
	"MONEY":      true,
	"SMALLMONEY": true,
	"FLOAT":      true,
	"FLOAT4":     true,
	"FLOAT8":     true,
	"REAL":       true,
	"DOUBLE":     true,
	"INT2":       true,
	"INT4":       true,
	"INT8":       true,
}
