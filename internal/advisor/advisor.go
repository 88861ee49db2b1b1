// Package advisor inspects a discovered schema and a configuration
// snapshot and reports what a DBA would flag.
package advisor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"querybridge/internal/dialect"
	"querybridge/internal/introspect"
)

type Severity string

const (
	Critical Severity = "critical"
	Warning  Severity = "warning"
	Info     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case Critical:
		return 0
	case Warning:
		return 1
	default:
		return 2
	}
}

// WideTableColumns is the column count above which a table is reported as wide.
const WideTableColumns = 50

type Finding struct {
	RuleID   string   `json:"ruleId"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
	Table    string   `json:"table,omitempty"`
}

// Evaluate runs the schema rules and, when config holds a name/value
// settings listing, the configuration rules of d. A failed or empty config
// result contributes nothing.
func Evaluate(d dialect.Dialect, schema introspect.Schema, config introspect.QueryResult) []Finding {
	findings := schemaFindings(d, schema)
	if !config.Failed() {
		findings = append(findings, configFindings(d, settings(config))...)
	}
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Table < b.Table
	})
	return findings
}

func schemaFindings(d dialect.Dialect, schema introspect.Schema) []Finding {
	findings := []Finding{}
	for _, t := range schema.Tables {
		hasPK := false
		for _, c := range t.Columns {
			if c.IsPrimaryKey {
				hasPK = true
			}
			if !c.IsForeignKey || c.References == nil {
				continue
			}
			target, ok := schema.Table(c.References.Table)
			if !ok {
				findings = append(findings, Finding{
					RuleID:   "fk_target_missing",
					Severity: Warning,
					Title:    "Foreign key to an unknown table",
					Detail:   fmt.Sprintf("%s.%s references %s, which was not discovered", t.Name, c.Name, c.References.Table),
					Table:    t.Name,
				})
				continue
			}
			if ref, ok := target.Column(c.References.Column); !ok || !ref.IsPrimaryKey {
				findings = append(findings, Finding{
					RuleID:   "fk_target_not_pk",
					Severity: Info,
					Title:    "Foreign key does not reference a primary key",
					Detail:   fmt.Sprintf("%s.%s references %s.%s", t.Name, c.Name, target.Name, c.References.Column),
					Table:    t.Name,
				})
			}
		}
		// Collections always carry _id; parquet files have no keys to declare.
		if !hasPK && d != dialect.MongoDB && d != dialect.Parquet {
			findings = append(findings, Finding{
				RuleID:   "missing_pk",
				Severity: Warning,
				Title:    "Table without a primary key",
				Detail:   fmt.Sprintf("%s has no primary key; updates and replication need one", t.Name),
				Table:    t.Name,
			})
		}
		if len(t.Columns) > WideTableColumns {
			findings = append(findings, Finding{
				RuleID:   "wide_table",
				Severity: Info,
				Title:    "Very wide table",
				Detail:   fmt.Sprintf("%s has %d columns", t.Name, len(t.Columns)),
				Table:    t.Name,
			})
		}
	}
	return findings
}

// settings reads name/value rows into a map keyed by lower-cased name.
func settings(res introspect.QueryResult) map[string]string {
	out := map[string]string{}
	for _, rec := range res.Records(strings.ToLower) {
		name := dialect.FirstString(rec, "name", "variable_name")
		if name == "" {
			continue
		}
		switch v := rec["value"].(type) {
		case nil:
		case []byte:
			out[strings.ToLower(name)] = string(v)
		default:
			out[strings.ToLower(name)] = fmt.Sprint(v)
		}
	}
	return out
}

type configRule struct {
	id       string
	setting  string
	severity Severity
	title    string
	// fires reports whether value is worth flagging.
	fires func(value string) bool
}

var configRules = map[dialect.Dialect][]configRule{
	dialect.Postgres: {
		{"pg_max_connections", "max_connections", Warning, "High max_connections", above(300)},
		{"pg_autovacuum_off", "autovacuum", Critical, "Autovacuum is disabled", isOff},
		{"pg_shared_buffers_low", "shared_buffers", Warning, "Small shared_buffers", below(32768)},
	},
	dialect.MSSQL: {
		{"ms_maxdop_unbounded", "max degree of parallelism", Warning, "Unbounded max degree of parallelism", equals(0)},
		{"ms_cost_threshold_low", "cost threshold for parallelism", Warning, "Low cost threshold for parallelism", atMost(5)},
	},
	dialect.MySQL: {
		{"my_buffer_pool_default", "innodb_buffer_pool_size", Warning, "InnoDB buffer pool at default size", atMost(134217728)},
		{"my_slow_log_off", "slow_query_log", Info, "Slow query log is off", isOff},
	},
}

func configFindings(d dialect.Dialect, values map[string]string) []Finding {
	var findings []Finding
	for _, rule := range configRules[d] {
		v, ok := values[rule.setting]
		if !ok || !rule.fires(v) {
			continue
		}
		findings = append(findings, Finding{
			RuleID:   rule.id,
			Severity: rule.severity,
			Title:    rule.title,
			Detail:   fmt.Sprintf("%s = %s", rule.setting, v),
		})
	}
	return findings
}

func number(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f, err == nil
}

func above(limit float64) func(string) bool {
	return func(v string) bool { n, ok := number(v); return ok && n > limit }
}

func below(limit float64) func(string) bool {
	return func(v string) bool { n, ok := number(v); return ok && n < limit }
}

func atMost(limit float64) func(string) bool {
	return func(v string) bool { n, ok := number(v); return ok && n <= limit }
}

func equals(limit float64) func(string) bool {
	return func(v string) bool { n, ok := number(v); return ok && n == limit }
}

func isOff(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "off", "0", "false":
		return true
	}
	return false
}
