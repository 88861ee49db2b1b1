// Package discovery turns the replies of a dialect's catalog statements
// into the canonical schema shape.
package discovery

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"querybridge/internal/dialect"
	"querybridge/internal/introspect"
	"querybridge/internal/logger"
)

// ExecFunc runs one statement and returns its tabular result.
type ExecFunc func(ctx context.Context, query string) introspect.QueryResult

// Schema runs the definition's list-tables statement through exec, then the
// list-columns and list-foreign-keys statements for every table found.
// A table whose columns cannot be read is skipped; a table whose foreign
// keys cannot be read keeps its columns with no edges.
func Schema(ctx context.Context, def dialect.Definition, exec ExecFunc) introspect.Schema {
	s := introspect.Schema{Tables: []introspect.Table{}}
	if def.ListTables == "" {
		return s
	}

	res := exec(ctx, def.ListTables)
	if res.Failed() {
		logger.Warn("list tables (%s): %s", def.Dialect, res.Error)
		return s
	}

	for _, name := range TableNames(res) {
		cols := exec(ctx, def.ColumnsQuery(name))
		if cols.Failed() {
			logger.Warn("list columns for %s (%s): %s", name, def.Dialect, cols.Error)
			continue
		}
		t := introspect.Table{Name: name, Columns: Columns(def.Dialect, cols)}

		if q := def.ForeignKeysQuery(name); q != "" {
			fks := exec(ctx, q)
			if fks.Failed() {
				logger.Warn("list foreign keys for %s (%s): %s", name, def.Dialect, fks.Error)
			} else {
				t.ApplyForeignKeys(ForeignKeys(fks))
			}
		}
		if def.Dialect == dialect.MongoDB {
			applyNamingConvention(&t, res)
		}
		s.Tables = append(s.Tables, t)
	}
	return s
}

// TableNames reads table names from a name column, falling back to the
// first column of each row.
func TableNames(res introspect.QueryResult) []string {
	nameIdx := -1
	for i, c := range res.Columns {
		if strings.EqualFold(c, "name") {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 && len(res.Columns) > 0 {
		nameIdx = 0
	}

	var names []string
	for _, row := range res.Rows {
		if nameIdx < 0 || nameIdx >= len(row) {
			continue
		}
		if name := toString(row[nameIdx]); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Columns reads column descriptors tolerantly across catalog spellings.
// MongoDB replies are sample documents, so their keys are the columns.
func Columns(d dialect.Dialect, res introspect.QueryResult) []introspect.Column {
	cols := []introspect.Column{}
	if d == dialect.MongoDB {
		sample := map[string]any{}
		if len(res.Rows) > 0 {
			for i, c := range res.Columns {
				sample[c] = res.Rows[0][i]
			}
		}
		for _, name := range res.Columns {
			cols = append(cols, introspect.Column{
				Name:         name,
				Type:         valueType(sample[name]),
				IsPrimaryKey: dialect.IsPrimaryKey(d, map[string]any{"name": name}),
			})
		}
		return cols
	}

	for _, rec := range res.Records(strings.ToLower) {
		name := dialect.FirstString(rec, "name", "field", "column_name")
		if name == "" {
			continue
		}
		cols = append(cols, introspect.Column{
			Name:         name,
			Type:         dialect.FirstString(rec, "type", "data_type"),
			IsPrimaryKey: dialect.IsPrimaryKey(d, rec),
		})
	}
	return cols
}

// ForeignKeys reads foreign key edges tolerantly across catalog spellings.
func ForeignKeys(res introspect.QueryResult) []introspect.ForeignKey {
	var out []introspect.ForeignKey
	for _, rec := range res.Records(strings.ToLower) {
		fk := introspect.ForeignKey{
			FromColumn: dialect.FirstString(rec, "from", "column_name", "from_column"),
			ToTable:    dialect.FirstString(rec, "table", "to_table", "referenced_table_name"),
			ToColumn:   dialect.FirstString(rec, "to", "to_column", "referenced_column_name"),
		}
		if fk.FromColumn == "" || fk.ToTable == "" {
			continue
		}
		out = append(out, fk)
	}
	return out
}

// applyNamingConvention marks <x>_id keys as references to _id of the
// collection named <x> or <x>s, preferring whichever exists.
func applyNamingConvention(t *introspect.Table, collections introspect.QueryResult) {
	known := map[string]string{}
	for _, name := range TableNames(collections) {
		known[strings.ToLower(name)] = name
	}
	for i := range t.Columns {
		c := &t.Columns[i]
		target, ok := ReferencedCollection(c.Name, known)
		if ok {
			c.SetReference(target, "_id")
		}
	}
}

// ReferencedCollection resolves an <x>_id key to a collection name using
// known (lower-cased name to name). Keys that are not <x>_id never resolve.
func ReferencedCollection(key string, known map[string]string) (string, bool) {
	lower := strings.ToLower(key)
	if lower == "_id" || !strings.HasSuffix(lower, "_id") {
		return "", false
	}
	base := strings.TrimSuffix(lower, "_id")
	if base == "" {
		return "", false
	}
	for _, candidate := range []string{base, base + "s"} {
		if name, ok := known[candidate]; ok {
			return name, true
		}
	}
	return base, true
}

func valueType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float32, float64:
		return "double"
	case int, int32, int64:
		return "int"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return reflect.TypeOf(v).Kind().String()
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
