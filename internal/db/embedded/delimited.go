package embedded

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
)

// maxParams keeps one INSERT under SQLite's historical bound-variable limit.
const maxParams = 999

var utf8BOM = []byte("\xef\xbb\xbf")

// loadDelimited creates table with one TEXT column per header field and
// loads every record in a single transaction using multi-row INSERTs.
func loadDelimited(ctx context.Context, conn *sqlx.DB, table string, data []byte, sep rune) error {
	header, records, err := parseDelimited(data, sep)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		return nil
	}

	quoted := make([]string, len(header))
	defs := make([]string, len(header))
	for i, h := range header {
		quoted[i] = quoteIdent(h)
		defs[i] = quoted[i] + " TEXT"
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	batch := max(1, maxParams/len(header))
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(quoted, ", "))

	for start := 0; start < len(records); start += batch {
		end := min(start+batch, len(records))
		chunk := records[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(header))
		for i, rec := range chunk {
			placeholders[i] = rowPlaceholder
			for _, v := range rec {
				args = append(args, v)
			}
		}
		if _, err := tx.ExecContext(ctx, prefix+strings.Join(placeholders, ", "), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
	}
	return tx.Commit()
}

// parseDelimited returns de-duplicated header names and records padded or
// truncated to the header width. Blank lines are skipped.
func parseDelimited(data []byte, sep rune) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.Comma = sep
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header = uniqueNames(header)

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read record: %w", err)
		}
		row := make([]string, len(header))
		copy(row, rec)
		records = append(records, row)
	}
	return header, records, nil
}

func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column%d", i+1)
		}
		key := strings.ToLower(name)
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
			key = strings.ToLower(name)
		}
		seen[key]++
		out[i] = name
	}
	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
