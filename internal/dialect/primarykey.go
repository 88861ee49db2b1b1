package dialect

import (
	"encoding/json"
	"math"
	"strings"
)

// primaryKeyRules decides, per dialect, whether a column descriptor row
// (keys lower-cased) describes a primary key column.
var primaryKeyRules = map[Dialect]func(row map[string]any) bool{
	// PRAGMA table_info: pk is the 1-based position in the key, 0 otherwise.
	SQLite: func(row map[string]any) bool {
		n, ok := asNumber(row["pk"])
		return ok && n > 0
	},
	Postgres: boolOrOne,
	MSSQL:    boolOrOne,
	// SHOW COLUMNS: Key is PRI, UNI, MUL or empty.
	MySQL: func(row map[string]any) bool {
		s, ok := row["key"].(string)
		return ok && strings.EqualFold(strings.TrimSpace(s), "PRI")
	},
	MongoDB: func(row map[string]any) bool {
		return FirstString(row, "name", "field", "column_name") == "_id"
	},
}

func boolOrOne(row map[string]any) bool {
	switch v := row["pk"].(type) {
	case bool:
		return v
	default:
		n, ok := asNumber(v)
		return ok && n == 1
	}
}

// IsPrimaryKey applies the dialect's primary key rule to a column descriptor
// row whose keys are lower-cased. Dialects without a rule never report one.
func IsPrimaryKey(d Dialect, row map[string]any) bool {
	rule, ok := primaryKeyRules[d]
	if !ok {
		return false
	}
	return rule(row)
}

// FirstString returns the first non-empty string value among keys.
func FirstString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := row[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case []byte:
			if len(v) > 0 {
				return string(v)
			}
		}
	}
	return ""
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case float64:
		return n, !math.IsNaN(n)
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
