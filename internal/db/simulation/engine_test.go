package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querybridge/internal/dialect"
	"querybridge/internal/discovery"
	"querybridge/internal/introspect"
)

func TestInsightsDispatch(t *testing.T) {
	e := New(0)
	reg := dialect.NewRegistry()
	var tests = []struct {
		insight string
		column  string
	}{
		{"pg_blocking_sessions", "blocking_session_id"},
		{"ms_blocking_sessions", "blocking_session_id"},
		{"my_blocking_sessions", "blocking_session_id"},
		{"ms_backup_history", "backup_type"},
		{"pg_archiver", "backup_type"},
		{"pg_table_bloat", "fragmentation_pct"},
		{"my_fragmentation", "fragmentation_pct"},
		{"ms_fragmentation", "fragmentation_pct"},
		{"pg_wait_events", "wait_type"},
		{"ms_wait_stats", "wait_type"},
		{"my_wait_stats", "wait_type"},
		{"pg_settings", "value"},
		{"ms_configuration", "value"},
		{"my_configuration", "value"},
	}

	for _, tt := range tests {
		t.Run(tt.insight, func(t *testing.T) {
			in, _, ok := reg.Insight(tt.insight)
			require.True(t, ok)
			res := e.ExecuteQuery(context.Background(), "", in.SQL)
			require.Empty(t, res.Error)
			require.NoError(t, res.Validate())
			assert.Contains(t, res.Columns, tt.column)
			assert.NotEmpty(t, res.Rows)
		})
	}
}

func TestConfigurationFollowsCatalog(t *testing.T) {
	e := New(0)
	names := func(res introspect.QueryResult) []string {
		var out []string
		for _, rec := range res.Records(nil) {
			out = append(out, rec["name"].(string))
		}
		return out
	}
	ctx := context.Background()
	assert.Contains(t, names(e.ExecuteQuery(ctx, "", "SELECT name, setting FROM pg_settings")), "shared_buffers")
	assert.Contains(t, names(e.ExecuteQuery(ctx, "", "SELECT * FROM sys.configurations")), "max degree of parallelism")
	assert.Contains(t, names(e.ExecuteQuery(ctx, "", "SELECT * FROM performance_schema.global_variables")), "innodb_buffer_pool_size")
}

func TestExplainPlans(t *testing.T) {
	e := New(0)
	reg := dialect.NewRegistry()
	var tests = []struct {
		dialect dialect.Dialect
		column  string
	}{
		{dialect.Postgres, "QUERY PLAN"},
		{dialect.SQLite, "detail"},
		{dialect.MySQL, "EXPLAIN"},
		{dialect.MSSQL, "Microsoft SQL Server 2005 XML Showplan"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			q := reg.DefinitionFor(tt.dialect).Explain("SELECT * FROM orders")
			res := e.ExecuteQuery(context.Background(), "", q)
			require.Empty(t, res.Error)
			assert.Contains(t, res.Columns, tt.column)
			require.Len(t, res.Rows, 1)
			assert.Contains(t, res.Rows[0][len(res.Columns)-1], "orders")
		})
	}
}

func TestPagination(t *testing.T) {
	e := New(0)
	ctx := context.Background()
	var tests = []struct {
		query   string
		count   int
		firstID any
	}{
		{"SELECT * FROM customers", 50, 1},
		{"SELECT * FROM customers LIMIT 10", 10, 1},
		{"SELECT * FROM customers LIMIT 10 OFFSET 20", 10, 21},
		{"SELECT * FROM customers LIMIT 20, 5", 5, 21},
		{"SELECT TOP 3 * FROM customers", 3, 1},
		{"SELECT * FROM customers LIMIT 5000", 1000, 1},
		{"SELECT * FROM customers LIMIT 10 OFFSET 995", 5, 996},
		{"SELECT * FROM customers LIMIT 10 OFFSET 2000", 0, nil},
		{"SELECT * FROM customers LIMIT 10 OFFSET 99999999999999999999", 10, 1},
		{"SELECT * FROM customers LIMIT 99999999999999999999", 50, 1},
		{"SELECT * FROM customers LIMIT 9223372036854775807 OFFSET 9223372036854775807", 0, nil},
		{"SELECT * FROM customers LIMIT 99999999999999999999, 5", 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := e.ExecuteQuery(ctx, "", tt.query)
			require.NoError(t, res.Validate())
			assert.Equal(t, []string{"id", "name", "email", "created_at"}, res.Columns)
			assert.Equal(t, tt.count, res.RowCount)
			if tt.count > 0 {
				assert.Equal(t, tt.firstID, res.Rows[0][0])
			}
		})
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	e := New(0)
	ctx := context.Background()
	a := e.ExecuteQuery(ctx, "", "SELECT * FROM whatever LIMIT 7")
	b := e.ExecuteQuery(ctx, "other", "SELECT * FROM whatever LIMIT 7")
	assert.Equal(t, a.Columns, b.Columns)
	assert.Equal(t, a.Rows, b.Rows)
	assert.Equal(t, []string{"id", "name", "value", "created_at"}, a.Columns)
}

func TestSchemaAndStats(t *testing.T) {
	e := New(0)
	ctx := context.Background()
	s := e.GetSchema(ctx, "")
	require.NoError(t, s.Validate())
	assert.Equal(t, []string{"customers", "products", "orders", "order_items"}, s.TableNames())
	assert.Equal(t, introspect.Stats{TableCount: 4, ColumnCount: 18, PKCount: 4, FKCount: 3, IndexCount: 4}, e.GetStats(ctx, ""))
}

// Running discovery against the engine's catalog answers reproduces the
// canned schema for every SQL dialect.
func TestCatalogAnswersDiscovery(t *testing.T) {
	e := New(0)
	reg := dialect.NewRegistry()
	for _, d := range []dialect.Dialect{dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.MSSQL} {
		t.Run(string(d), func(t *testing.T) {
			s := discovery.Schema(context.Background(), reg.DefinitionFor(d), func(ctx context.Context, q string) introspect.QueryResult {
				return e.ExecuteQuery(ctx, "", q)
			})
			assert.Equal(t, cannedSchema(), s)
		})
	}
}

func TestLatencyRespectsContext(t *testing.T) {
	e := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.ExecuteQuery(ctx, "", "SELECT 1")
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, e.GetSchema(ctx, "").Tables)

	start := time.Now()
	New(20*time.Millisecond).ExecuteQuery(context.Background(), "", "SELECT 1")
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
