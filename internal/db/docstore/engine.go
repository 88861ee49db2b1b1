// Package docstore implements a document-store engine over a few canned
// collections, answering the shell statements the UI sends to MongoDB.
package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"querybridge/internal/db"
	"querybridge/internal/discovery"
	"querybridge/internal/introspect"
	"querybridge/internal/logger"
)

// Engine serves the canned collections. Instance ids are ignored.
type Engine struct {
	latency     time.Duration
	collections map[string][]bson.D
}

var _ db.Engine = (*Engine)(nil)

func New(latency time.Duration) *Engine {
	return &Engine{latency: latency, collections: cannedCollections()}
}

func (e *Engine) Init(ctx context.Context) error {
	logger.Debug("docstore engine ready with %d collections", len(e.collections))
	return nil
}

func (e *Engine) ExecuteQuery(ctx context.Context, instanceID, query string) introspect.QueryResult {
	start := time.Now()
	if err := db.Delay(ctx, e.latency); err != nil {
		return introspect.ErrorResult("%v", err)
	}
	res := e.execute(query)
	if !res.Failed() {
		res.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000
	}
	return res
}

func (e *Engine) execute(query string) introspect.QueryResult {
	cmd, err := Parse(query)
	if err != nil {
		return introspect.ErrorResult("unsupported statement: %v", err)
	}
	if cmd.Op == OpListCollections {
		rows := make([][]any, 0, len(collectionOrder))
		for _, name := range collectionOrder {
			rows = append(rows, []any{name})
		}
		return introspect.NewResult([]string{"name"}, rows, 0)
	}

	all := e.collections[cmd.Collection]
	var docs []bson.D
	for _, d := range all {
		if Matches(d, cmd.Filter) {
			docs = append(docs, d)
		}
	}

	switch cmd.Op {
	case OpCountDocuments:
		return introspect.NewResult([]string{"count"}, [][]any{{int64(len(docs))}}, 0)
	case OpFindOne:
		cmd.Limit = 1
	case OpFind:
	default:
		return introspect.ErrorResult("unsupported operation: %s", cmd.Op)
	}
	if cmd.Limit > 0 && int64(len(docs)) > cmd.Limit {
		docs = docs[:cmd.Limit]
	}
	if cmd.Explain {
		return explain(cmd, len(all), len(docs))
	}
	return Tabulate(docs)
}

func explain(cmd Command, examined, returned int) introspect.QueryResult {
	stage := "COLLSCAN"
	if len(cmd.Filter) == 1 && cmd.Filter[0].Key == "_id" {
		stage = "IDHACK"
		examined = returned
	}
	plan := bson.D{
		{Key: "queryPlanner", Value: bson.D{
			{Key: "namespace", Value: "shop." + cmd.Collection},
			{Key: "parsedQuery", Value: cmd.Filter},
			{Key: "winningPlan", Value: bson.D{{Key: "stage", Value: stage}}},
		}},
		{Key: "executionStats", Value: bson.D{
			{Key: "executionSuccess", Value: true},
			{Key: "nReturned", Value: int32(returned)},
			{Key: "executionTimeMillis", Value: int32(0)},
			{Key: "totalKeysExamined", Value: int32(0)},
			{Key: "totalDocsExamined", Value: int32(examined)},
		}},
	}
	text, err := bson.MarshalExtJSON(plan, false, false)
	if err != nil {
		return introspect.ErrorResult("explain: %v", err)
	}
	return introspect.NewResult([]string{"explain"}, [][]any{{string(text)}}, 0)
}

// GetSchema derives one table per collection from the union of the
// flattened document keys. _id is the primary key and <x>_id keys are
// foreign keys to the <x> or <x>s collection.
func (e *Engine) GetSchema(ctx context.Context, instanceID string) introspect.Schema {
	s := introspect.Schema{Tables: []introspect.Table{}}
	if err := db.Delay(ctx, e.latency); err != nil {
		return s
	}

	known := make(map[string]string, len(collectionOrder))
	for _, name := range collectionOrder {
		known[strings.ToLower(name)] = name
	}
	for _, name := range collectionOrder {
		t := introspect.Table{Name: name}
		seen := map[string]int{}
		for _, d := range e.collections[name] {
			for _, el := range Flatten(d) {
				i, ok := seen[el.Key]
				if !ok {
					i = len(t.Columns)
					seen[el.Key] = i
					t.Columns = append(t.Columns, introspect.Column{Name: el.Key, Type: "null"})
				}
				if t.Columns[i].Type == "null" {
					t.Columns[i].Type = TypeName(el.Value)
				}
			}
		}
		for i := range t.Columns {
			c := &t.Columns[i]
			c.IsPrimaryKey = c.Name == "_id"
			if target, ok := discovery.ReferencedCollection(c.Name, known); ok {
				c.SetReference(target, "_id")
			}
		}
		s.Tables = append(s.Tables, t)
	}
	return s
}

func (e *Engine) GetStats(ctx context.Context, instanceID string) introspect.Stats {
	return introspect.StatsFromSchema(e.GetSchema(ctx, instanceID))
}

// Matches reports whether doc satisfies filter. Keys may be dotted; values
// are compared for equality or with $eq, $ne, $gt, $gte, $lt, $lte and $in.
func Matches(doc bson.D, filter bson.D) bool {
	flat := Flatten(doc)
	for _, cond := range filter {
		v, ok := lookup(flat, cond.Key)
		if ops, isOps := operators(cond.Value); isOps {
			for _, op := range ops {
				if !compare(op.Key, v, ok, op.Value) {
					return false
				}
			}
			continue
		}
		if !ok || !equal(v, cond.Value) {
			return false
		}
	}
	return true
}

// operators returns v as a list of query operators when it is a document
// whose keys start with $.
func operators(v any) (bson.D, bool) {
	var d bson.D
	switch x := v.(type) {
	case bson.D:
		d = x
	case bson.M:
		for k, val := range x {
			d = append(d, bson.E{Key: k, Value: val})
		}
	default:
		return nil, false
	}
	if len(d) == 0 || !strings.HasPrefix(d[0].Key, "$") {
		return nil, false
	}
	return d, true
}

func lookup(flat bson.D, key string) (any, bool) {
	for _, e := range flat {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func compare(op string, v any, present bool, want any) bool {
	switch op {
	case "$eq":
		return present && equal(v, want)
	case "$ne":
		return !present || !equal(v, want)
	case "$in":
		arr, _ := want.(bson.A)
		for _, w := range arr {
			if present && equal(v, w) {
				return true
			}
		}
		return false
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false
		}
		c, ok := order(v, want)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return c > 0
		case "$gte":
			return c >= 0
		case "$lt":
			return c < 0
		default:
			return c <= 0
		}
	default:
		logger.Debug("docstore: unsupported operator %s", op)
		return false
	}
}

func equal(a, b any) bool {
	if c, ok := order(a, b); ok {
		return c == 0
	}
	return fmt.Sprint(Cell(a)) == fmt.Sprint(Cell(b))
}

// order compares numbers numerically and strings lexically.
func order(a, b any) (int, bool) {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
