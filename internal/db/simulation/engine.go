// Package simulation implements a SQL engine that answers from a fixed
// library of canned result sets. Its answer depends only on the SQL text.
package simulation

import (
	"context"
	"strings"
	"time"

	"querybridge/internal/db"
	"querybridge/internal/introspect"
	"querybridge/internal/logger"
)

// Engine is the canned-response SQL engine. Instance ids are ignored.
type Engine struct {
	latency time.Duration
	schema  introspect.Schema
}

var _ db.Engine = (*Engine)(nil)

// New returns an engine that waits latency before answering each query.
func New(latency time.Duration) *Engine {
	return &Engine{latency: latency, schema: cannedSchema()}
}

func (e *Engine) Init(ctx context.Context) error {
	logger.Debug("simulation engine ready (latency %s)", e.latency)
	return nil
}

func (e *Engine) ExecuteQuery(ctx context.Context, instanceID, query string) introspect.QueryResult {
	start := time.Now()
	if err := e.wait(ctx); err != nil {
		return introspect.ErrorResult("%v", err)
	}
	res := dispatch(query, e.schema)
	res.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000
	return res
}

func (e *Engine) GetSchema(ctx context.Context, instanceID string) introspect.Schema {
	if err := e.wait(ctx); err != nil {
		return introspect.Schema{Tables: []introspect.Table{}}
	}
	return cannedSchema()
}

func (e *Engine) GetStats(ctx context.Context, instanceID string) introspect.Stats {
	return introspect.StatsFromSchema(e.GetSchema(ctx, instanceID))
}

func (e *Engine) wait(ctx context.Context) error {
	return db.Delay(ctx, e.latency)
}

// rule answers queries whose normalized text matches.
type rule struct {
	name   string
	match  func(q string) bool
	answer func(query string, schema introspect.Schema) introspect.QueryResult
}

func containsAny(subs ...string) func(string) bool {
	return func(q string) bool {
		for _, s := range subs {
			if strings.Contains(q, s) {
				return true
			}
		}
		return false
	}
}

// rules are tried in order; the first match answers. Explain comes first
// since it wraps other statements, and fragmentation precedes the catalog
// rules since its canned query reads information_schema.tables.
var rules = []rule{
	{"explain", isExplain, explainPlan},
	{"blocking", containsAny("-- blocking sessions", "pg_blocking_pids", "blocking_session_id", "data_lock_waits"), blockingSessions},
	{"backup", containsAny("-- backup history", "backupset", "pg_stat_archiver"), backupHistory},
	{"fragmentation", containsAny("-- fragmentation", "dm_db_index_physical_stats", "data_free"), fragmentation},
	{"waits", containsAny("wait_event_type", "dm_os_wait_stats", "events_waits_summary"), waitStats},
	{"configuration", containsAny("pg_settings", "sys.configurations", "global_variables"), configuration},
	{"columns", containsAny("information_schema.columns", "pragma table_info", "show columns"), catalogColumns},
	{"foreign keys", containsAny("foreign key", "foreign_key_list", "sys.foreign_key_columns", "referenced_table_name"), catalogForeignKeys},
	{"tables", containsAny("information_schema.tables", "sqlite_master", "show tables"), catalogTables},
}

func dispatch(query string, schema introspect.Schema) introspect.QueryResult {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, r := range rules {
		if r.match(q) {
			logger.Debug("simulation: %s", r.name)
			return r.answer(query, schema)
		}
	}
	return paginated(query, schema)
}

func isExplain(q string) bool {
	return strings.HasPrefix(q, "explain") || strings.Contains(q, "showplan_xml")
}
