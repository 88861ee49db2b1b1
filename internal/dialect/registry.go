package dialect

import (
	"fmt"
	"slices"
	"strings"
)

// InsightContext says whether an insight targets the whole server or one database.
type InsightContext string

const (
	ContextServer   InsightContext = "server"
	ContextDatabase InsightContext = "database"
)

// Impact ranks how much an insight matters when it fires.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// Insight is a canned diagnostic query.
type Insight struct {
	ID          string         `json:"id" yaml:"id"`
	Category    string         `json:"category" yaml:"category"`
	Context     InsightContext `json:"context" yaml:"context"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	SQL         string         `json:"sql" yaml:"sql"`
	Impact      Impact         `json:"impact" yaml:"impact"`
}

// Definition bundles everything dialect specific. The table-scoped
// templates take one %s verb for the table name and do no quoting.
type Definition struct {
	Dialect Dialect
	Label   string

	ListTables      string
	ListColumns     string
	ListForeignKeys string
	// CountIndexes is empty when the dialect has no index catalog reachable by SQL.
	CountIndexes string

	KillSessionFormat string
	RebuildFormat     string

	ExplainFormat string
	// ExplainMarker, when present in the query, means it is already an explain.
	ExplainMarker string

	Insights []Insight
}

// ColumnsQuery returns the list-columns statement for table.
func (d Definition) ColumnsQuery(table string) string {
	return format(d.ListColumns, table)
}

// ForeignKeysQuery returns the list-foreign-keys statement for table.
func (d Definition) ForeignKeysQuery(table string) string {
	return format(d.ListForeignKeys, table)
}

// KillSession returns the statement that terminates session id.
func (d Definition) KillSession(id string) string {
	return format(d.KillSessionFormat, id)
}

// Rebuild returns the statement that rebuilds or reindexes table.
func (d Definition) Rebuild(table string) string {
	return format(d.RebuildFormat, table)
}

func format(template, arg string) string {
	if template == "" {
		return ""
	}
	return fmt.Sprintf(template, arg)
}

// Explain rewrites query into the dialect's explain/analyze form.
func (d Definition) Explain(query string) string {
	query = strings.TrimSpace(query)
	if d.ExplainFormat == "" {
		return query
	}
	if d.ExplainMarker != "" && strings.Contains(query, d.ExplainMarker) {
		return query
	}
	if d.Dialect == MongoDB {
		query = strings.TrimSuffix(query, ";")
	}
	return fmt.Sprintf(d.ExplainFormat, query)
}

// InsightsFor filters the catalog by context. An empty context returns all.
func (d Definition) InsightsFor(ctx InsightContext) []Insight {
	var out []Insight
	for _, in := range d.Insights {
		if ctx == "" || in.Context == ctx {
			out = append(out, in)
		}
	}
	return out
}

// Registry maps each dialect to its definition. It is never mutated after
// construction; overrides produce a new Registry.
type Registry struct {
	defs map[Dialect]Definition
}

// NewRegistry builds the registry of built-in definitions.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[Dialect]Definition, len(All))}
	for _, def := range []Definition{
		postgresDefinition(),
		mysqlDefinition(),
		sqliteDefinition(),
		mssqlDefinition(),
		mongoDefinition(),
		parquetDefinition(),
	} {
		r.defs[def.Dialect] = def
	}
	return r
}

// DefinitionFor returns the definition of d. Asking for a dialect outside
// the enumeration is a programming error and panics.
func (r *Registry) DefinitionFor(d Dialect) Definition {
	def, ok := r.defs[d]
	if !ok {
		panic(fmt.Sprintf("dialect: no definition for %q", d))
	}
	def.Insights = slices.Clone(def.Insights)
	return def
}

// Dialects returns the registered dialects in display order.
func (r *Registry) Dialects() []Dialect {
	out := make([]Dialect, 0, len(r.defs))
	for _, d := range All {
		if _, ok := r.defs[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Insight finds an insight by id across all dialects.
func (r *Registry) Insight(id string) (Insight, Dialect, bool) {
	for _, d := range All {
		for _, in := range r.defs[d].Insights {
			if in.ID == id {
				return in, d, true
			}
		}
	}
	return Insight{}, "", false
}

// WithOverrides returns a copy of the registry in which the SQL of each
// insight named in overrides is replaced. Unknown ids are ignored.
func (r *Registry) WithOverrides(overrides map[string]string) *Registry {
	out := &Registry{defs: make(map[Dialect]Definition, len(r.defs))}
	for d, def := range r.defs {
		def.Insights = slices.Clone(def.Insights)
		for i := range def.Insights {
			if sql, ok := overrides[def.Insights[i].ID]; ok && strings.TrimSpace(sql) != "" {
				def.Insights[i].SQL = sql
			}
		}
		out.defs[d] = def
	}
	return out
}
