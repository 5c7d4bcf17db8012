// Package schema lists the columns of the connected database so they can be
// embedded in a generation prompt.
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/askdb/askdb/internal/database"
)

// CatalogQuery is portable across SQL Server, PostgreSQL, MySQL and DuckDB.
const CatalogQuery = "SELECT TABLE_NAME, COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS"

type Entry struct {
	TableName  string `json:"TABLE_NAME"`
	ColumnName string `json:"COLUMN_NAME"`
}

// Read runs CatalogQuery on q and returns one Entry per row, in the order the
// database produced them.
func Read(ctx context.Context, q database.Querier) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, CatalogQuery)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.TableName, &entry.ColumnName); err != nil {
			return nil, fmt.Errorf("read schema: scan row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read schema: iterate rows: %w", err)
	}
	return entries, nil
}

// EncodeJSON renders entries as a JSON array laid out like Python's
// json.dumps defaults: ", " and ": " separators and every non-ASCII rune
// escaped as \uXXXX. A nil slice encodes as [].
func EncodeJSON(entries []Entry) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, entry := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		table, err := encodeString(entry.TableName)
		if err != nil {
			return "", fmt.Errorf("encode schema: %w", err)
		}
		column, err := encodeString(entry.ColumnName)
		if err != nil {
			return "", fmt.Errorf("encode schema: %w", err)
		}
		b.WriteString(`{"TABLE_NAME": `)
		b.WriteString(table)
		b.WriteString(`, "COLUMN_NAME": `)
		b.WriteString(column)
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.String(), nil
}

// encodeString quotes value as a JSON string without HTML escaping and with
// non-ASCII runes written as UTF-16 escapes.
func encodeString(value string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	quoted := strings.TrimSuffix(buf.String(), "\n")

	var b strings.Builder
	b.Grow(len(quoted))
	for _, r := range quoted {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String(), nil
}
