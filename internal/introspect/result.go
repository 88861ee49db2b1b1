package introspect

import (
	"fmt"
	"time"
)

// QueryResult is the tabular result every engine and the remote bridge produce.
// Every row has exactly len(Columns) values. When Error is set Columns and
// Rows are empty.
type QueryResult struct {
	Columns         []string `json:"columns"`
	Rows            [][]any  `json:"rows"`
	RowCount        int      `json:"rowCount"`
	ExecutionTimeMs float64  `json:"executionTimeMs"`
	Timestamp       int64    `json:"timestamp"`
	Error           string   `json:"error,omitempty"`
	RequestID       string   `json:"requestId,omitempty"`
}

// NewResult builds a successful result stamped with the current time.
func NewResult(columns []string, rows [][]any, elapsed time.Duration) QueryResult {
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return QueryResult{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000,
		Timestamp:       time.Now().UnixMilli(),
	}
}

// ErrorResult builds a failed result with no columns or rows.
// Arguments are handled in the manner of [fmt.Sprintf].
func ErrorResult(format string, args ...any) QueryResult {
	return QueryResult{
		Columns:   []string{},
		Rows:      [][]any{},
		Timestamp: time.Now().UnixMilli(),
		Error:     fmt.Sprintf(format, args...),
	}
}

// Failed reports whether the result carries an error.
func (r QueryResult) Failed() bool {
	return r.Error != ""
}

// Records converts rows to objects keyed by column name. When keyFn is not
// nil it is applied to each column name first. Later duplicate columns
// overwrite earlier ones.
func (r QueryResult) Records(keyFn func(string) string) []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i >= len(row) {
				break
			}
			if keyFn != nil {
				col = keyFn(col)
			}
			rec[col] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// Validate checks the uniform-arity and error-exclusivity invariants.
func (r QueryResult) Validate() error {
	if r.Error != "" && (len(r.Rows) > 0 || len(r.Columns) > 0) {
		return fmt.Errorf("result has error %q but carries %d columns and %d rows", r.Error, len(r.Columns), len(r.Rows))
	}
	for i, row := range r.Rows {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(r.Columns))
		}
	}
	return nil
}
