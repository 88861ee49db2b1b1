// Package router resolves a connection id to the backend that serves it:
// the remote bridge, an imported embedded instance or a simulation engine.
package router

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"querybridge/internal/advisor"
	"querybridge/internal/bridge"
	"querybridge/internal/db"
	"querybridge/internal/db/embedded"
	"querybridge/internal/dialect"
	"querybridge/internal/discovery"
	"querybridge/internal/introspect"
	"querybridge/internal/logger"
	"querybridge/pkg/config"
)

type Kind string

const (
	KindRemote    Kind = "remote"
	KindLocal     Kind = "local"
	KindSimulated Kind = "simulated"
)

// DefaultInsightConcurrency bounds a refresh when Options leaves it unset.
const DefaultInsightConcurrency = 4

// Connection is one queryable target as shown to the user.
type Connection struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Dialect dialect.Dialect `json:"dialect"`
	Kind    Kind            `json:"kind"`
}

type Options struct {
	Registry   *dialect.Registry
	Embedded   *embedded.Engine
	Simulation db.Engine
	DocStore   db.Engine
	Bridge     *bridge.Client
	Simulated  []config.SimulatedConnection

	InsightConcurrency int
}

// Router owns the engines and the registry of imported instances.
// It keeps no query cache.
type Router struct {
	registry   *dialect.Registry
	embedded   *embedded.Engine
	simulation db.Engine
	docstore   db.Engine
	bridge     *bridge.Client
	simulated  []Connection
	limit      int

	mu    sync.RWMutex
	local map[string]Connection
	order []string
}

func New(opts Options) *Router {
	r := &Router{
		registry:   opts.Registry,
		embedded:   opts.Embedded,
		simulation: opts.Simulation,
		docstore:   opts.DocStore,
		bridge:     opts.Bridge,
		limit:      opts.InsightConcurrency,
		local:      map[string]Connection{},
	}
	if r.registry == nil {
		r.registry = dialect.NewRegistry()
	}
	if r.bridge == nil {
		r.bridge = bridge.NewClient(nil)
	}
	if r.limit <= 0 {
		r.limit = DefaultInsightConcurrency
	}
	for _, sc := range opts.Simulated {
		r.simulated = append(r.simulated, Connection{
			ID:      sc.ID,
			Name:    sc.Name,
			Dialect: dialect.Normalize(sc.Dialect),
			Kind:    KindSimulated,
		})
	}
	return r
}

// Registry returns the dialect registry the router dispatches with.
func (r *Router) Registry() *dialect.Registry {
	return r.registry
}

// ListConnections returns remote credentials, then imported instances in
// import order, then simulated connections.
func (r *Router) ListConnections(ctx context.Context) []Connection {
	out := []Connection{}
	if r.bridge.Available() {
		for _, cred := range r.bridge.SavedCredentials(ctx) {
			out = append(out, remoteConnection(cred))
		}
	}
	r.mu.RLock()
	for _, id := range r.order {
		out = append(out, r.local[id])
	}
	r.mu.RUnlock()
	return append(out, r.simulated...)
}

func remoteConnection(cred bridge.Credential) Connection {
	return Connection{
		ID:      cred.ID,
		Name:    cred.ConnectionName,
		Dialect: dialect.Normalize(cred.DBType),
		Kind:    KindRemote,
	}
}

// CredentialFor looks id up among the host's saved credentials. It returns
// nil when the bridge is absent or knows no such credential.
func (r *Router) CredentialFor(ctx context.Context, id string) *bridge.Credential {
	if !r.bridge.Available() {
		return nil
	}
	for _, cred := range r.bridge.SavedCredentials(ctx) {
		if cred.ID == id {
			return &cred
		}
	}
	return nil
}

// ImportFile loads an uploaded file into a new embedded instance and
// registers it as a local connection.
func (r *Router) ImportFile(ctx context.Context, filename string, data []byte) (Connection, error) {
	if r.embedded == nil {
		return Connection{}, fmt.Errorf("import %s: no embedded engine", filename)
	}
	id, err := r.embedded.CreateFromFile(ctx, filename, data)
	if err != nil {
		return Connection{}, fmt.Errorf("import %s: %w", filename, err)
	}
	conn := Connection{ID: id, Name: filename, Dialect: dialect.SQLite, Kind: KindLocal}
	for _, in := range r.embedded.Instances() {
		if in.ID == id {
			conn.Name = in.Name
		}
	}

	r.mu.Lock()
	r.local[id] = conn
	r.order = append(r.order, id)
	r.mu.Unlock()

	logger.Info("imported %s as %s", filename, id)
	return conn, nil
}

// target is the resolved backend of one call.
type target struct {
	dialect dialect.Dialect
	engine  db.Engine
	cred    *bridge.Credential
	id      string
}

// resolve picks the backend for id. A credential always wins. Without one,
// imported instances come first, then simulated connections, then the
// host's saved credentials, and the SQL simulation last.
func (r *Router) resolve(ctx context.Context, id string, cred *bridge.Credential) target {
	if cred != nil {
		return target{dialect: dialect.Normalize(cred.DBType), cred: cred, id: cred.ID}
	}
	r.mu.RLock()
	_, local := r.local[id]
	r.mu.RUnlock()
	if local {
		return target{dialect: dialect.SQLite, engine: r.embedded, id: id}
	}
	for _, sc := range r.simulated {
		if sc.ID != id {
			continue
		}
		if sc.Dialect == dialect.MongoDB && r.docstore != nil {
			return target{dialect: dialect.MongoDB, engine: r.docstore, id: id}
		}
		return target{dialect: sc.Dialect, engine: r.simulation, id: id}
	}
	if saved := r.CredentialFor(ctx, id); saved != nil {
		return target{dialect: dialect.Normalize(saved.DBType), cred: saved, id: id}
	}
	return target{dialect: dialect.Postgres, engine: r.simulation, id: id}
}

func (r *Router) run(ctx context.Context, t target, sql, requestID string) introspect.QueryResult {
	if t.cred != nil {
		return r.bridge.Execute(ctx, t.cred.ID, sql, requestID)
	}
	if t.engine == nil {
		return introspect.ErrorResult("no engine serves connection %s", t.id)
	}
	res := t.engine.ExecuteQuery(ctx, t.id, sql)
	res.RequestID = requestID
	return res
}

// DialectFor reports the dialect a call for id would use.
func (r *Router) DialectFor(ctx context.Context, id string, cred *bridge.Credential) dialect.Dialect {
	return r.resolve(ctx, id, cred).dialect
}

// ExecuteQuery runs sql against the backend serving id.
func (r *Router) ExecuteQuery(ctx context.Context, id, sql, requestID string) introspect.QueryResult {
	t := r.resolve(ctx, id, nil)
	logger.Debug("execute on %s (%s)", id, t.dialect)
	return r.run(ctx, t, sql, requestID)
}

// ExecuteRemoteQuery sends sql to the host for cred.
func (r *Router) ExecuteRemoteQuery(ctx context.Context, cred bridge.Credential, sql string) introspect.QueryResult {
	return r.bridge.Execute(ctx, cred.ID, sql, "")
}

// ExplainQuery rewrites sql into the dialect's explain form and runs it.
func (r *Router) ExplainQuery(ctx context.Context, id string, cred *bridge.Credential, sql string) introspect.QueryResult {
	t := r.resolve(ctx, id, cred)
	return r.run(ctx, t, r.registry.DefinitionFor(t.dialect).Explain(sql), "")
}

// SchemaFor discovers the schema of the backend serving id. Remote sources
// go through the dialect's catalog statements one query at a time.
func (r *Router) SchemaFor(ctx context.Context, id string, cred *bridge.Credential) introspect.Schema {
	return r.schemaOf(ctx, r.resolve(ctx, id, cred))
}

func (r *Router) schemaOf(ctx context.Context, t target) introspect.Schema {
	if t.cred != nil {
		def := r.registry.DefinitionFor(t.dialect)
		return discovery.Schema(ctx, def, func(ctx context.Context, query string) introspect.QueryResult {
			return r.bridge.Execute(ctx, t.cred.ID, query, "")
		})
	}
	if t.engine == nil {
		return introspect.Schema{Tables: []introspect.Table{}}
	}
	return t.engine.GetSchema(ctx, t.id)
}

// StatsFor mirrors SchemaFor. Remote sources fold the fetched schema, so
// their index count is the primary key count.
func (r *Router) StatsFor(ctx context.Context, id string, cred *bridge.Credential) introspect.Stats {
	t := r.resolve(ctx, id, cred)
	if t.cred != nil || t.engine == nil {
		return introspect.StatsFromSchema(r.schemaOf(ctx, t))
	}
	return t.engine.GetStats(ctx, t.id)
}

// RefreshInsights runs every insight of the connection's dialect for ictx
// (all of them when empty) concurrently. Each query carries its insight id
// as request id; results are keyed by insight id.
func (r *Router) RefreshInsights(ctx context.Context, id string, cred *bridge.Credential, ictx dialect.InsightContext) map[string]introspect.QueryResult {
	t := r.resolve(ctx, id, cred)
	insights := r.registry.DefinitionFor(t.dialect).InsightsFor(ictx)

	var mu sync.Mutex
	out := make(map[string]introspect.QueryResult, len(insights))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, in := range insights {
		g.Go(func() error {
			res := r.run(gctx, t, in.SQL, in.ID)
			mu.Lock()
			out[in.ID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// KillSession terminates a server session through the normal execution path.
func (r *Router) KillSession(ctx context.Context, id string, cred *bridge.Credential, sessionID string) introspect.QueryResult {
	t := r.resolve(ctx, id, cred)
	return r.run(ctx, t, r.registry.DefinitionFor(t.dialect).KillSession(sessionID), "")
}

// RebuildTable rebuilds the indexes of table through the normal execution path.
func (r *Router) RebuildTable(ctx context.Context, id string, cred *bridge.Credential, table string) introspect.QueryResult {
	t := r.resolve(ctx, id, cred)
	return r.run(ctx, t, r.registry.DefinitionFor(t.dialect).Rebuild(table), "")
}

// Advise evaluates the advisor rules against the connection's schema and
// the result of its dialect's configuration insight.
func (r *Router) Advise(ctx context.Context, id string, cred *bridge.Credential) []advisor.Finding {
	t := r.resolve(ctx, id, cred)
	schema := r.schemaOf(ctx, t)

	var config introspect.QueryResult
	for _, in := range r.registry.DefinitionFor(t.dialect).Insights {
		if in.Category == "configuration" {
			config = r.run(ctx, t, in.SQL, in.ID)
			break
		}
	}
	return advisor.Evaluate(t.dialect, schema, config)
}
