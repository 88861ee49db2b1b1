package docstore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"querybridge/internal/introspect"
)

// Flatten lifts the keys of directly nested documents to the top level as
// dotted names (address.city). Deeper documents stay nested.
func Flatten(doc bson.D) bson.D {
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if sub, ok := e.Value.(bson.D); ok {
			for _, se := range sub {
				out = append(out, bson.E{Key: e.Key + "." + se.Key, Value: se.Value})
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

// Tabulate flattens docs and lays them out as a result. Columns are the
// union of keys in first-seen order; absent keys are nil.
func Tabulate(docs []bson.D) introspect.QueryResult {
	columns := []string{}
	index := map[string]int{}
	flat := make([]bson.D, len(docs))
	for i, d := range docs {
		flat[i] = Flatten(d)
		for _, e := range flat[i] {
			if _, ok := index[e.Key]; !ok {
				index[e.Key] = len(columns)
				columns = append(columns, e.Key)
			}
		}
	}

	rows := make([][]any, len(flat))
	for i, d := range flat {
		row := make([]any, len(columns))
		for _, e := range d {
			row[index[e.Key]] = Cell(e.Value)
		}
		rows[i] = row
	}
	return introspect.NewResult(columns, rows, 0)
}

// Cell converts a BSON value into a plain value for display and JSON.
func Cell(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return x.String()
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = Cell(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = Cell(e)
		}
		return m
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Cell(e)
		}
		return out
	default:
		return v
	}
}

// TypeName names the BSON type of v the way the shell reports it.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case primitive.ObjectID:
		return "objectId"
	case primitive.DateTime, time.Time:
		return "date"
	case string:
		return "string"
	case bool:
		return "bool"
	case int32:
		return "int"
	case int, int64:
		return "long"
	case float64:
		return "double"
	case primitive.Decimal128:
		return "decimal"
	case bson.D, bson.M:
		return "object"
	case bson.A:
		return "array"
	default:
		return "unknown"
	}
}
