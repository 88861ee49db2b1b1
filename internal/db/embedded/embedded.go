// Package embedded implements the file-backed engine: every imported file
// becomes its own SQLite database held by this process.
package embedded

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"querybridge/internal/db"
	"querybridge/internal/dialect"
	"querybridge/internal/discovery"
	"querybridge/internal/introspect"
	"querybridge/internal/logger"
)

// sqliteHeader opens every SQLite database file.
var sqliteHeader = []byte("SQLite format 3\x00")

// Instance describes one imported database.
type Instance struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

type instance struct {
	Instance
	conn *sqlx.DB
	path string // empty for in-memory instances
}

// Engine owns the imported instances. Ids are never reused.
type Engine struct {
	def     dialect.Definition
	dataDir string

	mu        sync.RWMutex
	instances map[string]*instance
	order     []string
	seq       atomic.Int64
}

var _ db.Engine = (*Engine)(nil)

// New returns an engine that stores imported database files under dataDir.
// An empty dataDir means the OS temp dir.
func New(registry *dialect.Registry, dataDir string) *Engine {
	if dataDir == "" {
		dataDir = os.TempDir()
	}
	return &Engine{
		def:       registry.DefinitionFor(dialect.SQLite),
		dataDir:   dataDir,
		instances: make(map[string]*instance),
	}
}

func (e *Engine) Init(ctx context.Context) error {
	return os.MkdirAll(e.dataDir, 0o755)
}

// CreateFromFile imports data under a new instance id. Delimited text
// (.csv, .tsv) becomes one table, SQLite files are opened as they are and
// anything else yields an empty instance.
func (e *Engine) CreateFromFile(ctx context.Context, filename string, data []byte) (string, error) {
	id := fmt.Sprintf("local-%d", e.seq.Add(1))
	inst := &instance{Instance: Instance{ID: id, Name: displayName(filename), Filename: filename}}

	var err error
	switch kind := detect(filename, data); kind {
	case kindSQLite:
		inst.path = filepath.Join(e.dataDir, id+".db")
		inst.conn, err = e.openFile(ctx, inst.path, data)
	default:
		inst.conn, err = openMemory(ctx)
		if err == nil && kind != kindUnknown {
			err = loadDelimited(ctx, inst.conn, tableName(filename), data, kind.separator())
		}
		if kind == kindUnknown {
			logger.Warn("import %s: unrecognized format, created empty instance %s", filename, id)
		}
	}
	if err != nil {
		if inst.conn != nil {
			inst.conn.Close()
		}
		if inst.path != "" {
			os.Remove(inst.path)
		}
		return "", fmt.Errorf("import %s: %w", filename, err)
	}

	e.mu.Lock()
	e.instances[id] = inst
	e.order = append(e.order, id)
	e.mu.Unlock()
	logger.Info("imported %s as %s", filename, id)
	return id, nil
}

func (e *Engine) openFile(ctx context.Context, path string, data []byte) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	conn, err := db.Connect(ctx, "sqlite", "file:"+path, 5)
	if err != nil {
		return nil, err
	}
	// PRAGMA foreign_keys is per connection.
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return conn, nil
}

func openMemory(ctx context.Context) (*sqlx.DB, error) {
	conn, err := db.Connect(ctx, "sqlite", ":memory:", 5)
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)
	return conn, nil
}

// Instances lists the imported instances in import order.
func (e *Engine) Instances() []Instance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Instance, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.instances[id].Instance)
	}
	return out
}

// Has reports whether id names an imported instance.
func (e *Engine) Has(id string) bool {
	_, ok := e.get(id)
	return ok
}

func (e *Engine) get(id string) (*instance, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.instances[id]
	return inst, ok
}

func (e *Engine) ExecuteQuery(ctx context.Context, instanceID, query string) introspect.QueryResult {
	inst, ok := e.get(instanceID)
	if !ok {
		return introspect.ErrorResult("unknown local instance: %s", instanceID)
	}
	return db.Run(ctx, inst.conn, query)
}

func (e *Engine) GetSchema(ctx context.Context, instanceID string) introspect.Schema {
	inst, ok := e.get(instanceID)
	if !ok {
		logger.Warn("schema: unknown local instance %s", instanceID)
		return introspect.Schema{Tables: []introspect.Table{}}
	}
	return discovery.Schema(ctx, e.def, func(ctx context.Context, query string) introspect.QueryResult {
		return db.Run(ctx, inst.conn, query)
	})
}

func (e *Engine) GetStats(ctx context.Context, instanceID string) introspect.Stats {
	inst, ok := e.get(instanceID)
	if !ok {
		return introspect.Stats{}
	}
	st := introspect.StatsFromSchema(e.GetSchema(ctx, instanceID))
	res := db.Run(ctx, inst.conn, e.def.CountIndexes)
	if res.Failed() || len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		logger.Warn("count indexes for %s: %s", instanceID, res.Error)
		return st
	}
	if n, ok := res.Rows[0][0].(int64); ok {
		st.IndexCount = int(n)
	}
	return st
}

// Close releases every instance and removes imported files.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for _, id := range e.order {
		inst := e.instances[id]
		if err := inst.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if inst.path != "" {
			os.Remove(inst.path)
		}
	}
	e.instances = make(map[string]*instance)
	e.order = nil
	return firstErr
}

type fileKind int

const (
	kindUnknown fileKind = iota
	kindCSV
	kindTSV
	kindSQLite
)

func (k fileKind) separator() rune {
	if k == kindTSV {
		return '\t'
	}
	return ','
}

func detect(filename string, data []byte) fileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return kindCSV
	case ".tsv":
		return kindTSV
	case ".db", ".sqlite", ".sqlite3":
		return kindSQLite
	}
	if bytes.HasPrefix(data, sqliteHeader) {
		return kindSQLite
	}
	return kindUnknown
}

func displayName(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return "untitled"
	}
	return base
}

// tableName derives a table name from the file's base name: extension
// dropped, non-alphanumerics stripped, lower-cased.
func tableName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t" + name
	}
	return name
}
