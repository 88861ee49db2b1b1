package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querybridge/internal/introspect"
)

func fk(name, table, column string) introspect.Column {
	return introspect.Column{Name: name, Type: "integer", IsForeignKey: true, References: &introspect.Reference{Table: table, Column: column}}
}

func pk(name string) introspect.Column {
	return introspect.Column{Name: name, Type: "integer", IsPrimaryKey: true}
}

func col(name string) introspect.Column {
	return introspect.Column{Name: name, Type: "text"}
}

func shopSchema() introspect.Schema {
	return introspect.Schema{Tables: []introspect.Table{
		{Name: "customers", Columns: []introspect.Column{pk("id"), col("name"), col("region_key")}},
		{Name: "orders", Columns: []introspect.Column{pk("id"), fk("customer_id", "customers", "id"), col("region_key")}},
		{Name: "order_items", Columns: []introspect.Column{pk("line_no"), fk("order_id", "orders", "id"), col("sku_id")}},
		{Name: "regions", Columns: []introspect.Column{col("region_key"), col("label")}},
		{Name: "skus", Columns: []introspect.Column{col("sku_id")}},
		{Name: "notes", Columns: []introspect.Column{col("body")}},
	}}
}

func TestInferTiers(t *testing.T) {
	var tests = []struct {
		name     string
		existing []string
		added    []string
		want     Proposal
	}{
		{
			name:     "new table references existing",
			existing: []string{"customers"},
			added:    []string{"orders"},
			want:     Proposal{NewTable: "orders", ExistingTable: "customers", Predicate: "orders.customer_id = customers.id", Score: ScoreForeignKey},
		},
		{
			name:     "existing table references new",
			existing: []string{"orders"},
			added:    []string{"customers"},
			want:     Proposal{NewTable: "customers", ExistingTable: "orders", Predicate: "orders.customer_id = customers.id", Score: ScoreReverseForeignKey},
		},
		{
			name:     "shared key column",
			existing: []string{"customers"},
			added:    []string{"regions"},
			want:     Proposal{NewTable: "regions", ExistingTable: "customers", Predicate: "regions.region_key = customers.region_key", Score: ScoreSharedName, Heuristic: true},
		},
		{
			name:     "declared key beats shared id column",
			existing: []string{"orders"},
			added:    []string{"order_items"},
			want:     Proposal{NewTable: "order_items", ExistingTable: "orders", Predicate: "order_items.order_id = orders.id", Score: ScoreForeignKey},
		},
		{
			name:     "higher tier wins across existing tables",
			existing: []string{"regions", "customers"},
			added:    []string{"orders"},
			want:     Proposal{NewTable: "orders", ExistingTable: "customers", Predicate: "orders.customer_id = customers.id", Score: ScoreForeignKey},
		},
		{
			name:     "tie keeps first existing table",
			existing: []string{"orders", "customers"},
			added:    []string{"regions"},
			want:     Proposal{NewTable: "regions", ExistingTable: "orders", Predicate: "regions.region_key = orders.region_key", Score: ScoreSharedName, Heuristic: true},
		},
		{
			name:     "case insensitive names",
			existing: []string{"CUSTOMERS"},
			added:    []string{"Orders"},
			want:     Proposal{NewTable: "orders", ExistingTable: "customers", Predicate: "orders.customer_id = customers.id", Score: ScoreForeignKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Infer(shopSchema(), tt.existing, tt.added)
			require.Len(t, plan.Joins, 1)
			assert.Equal(t, tt.want, plan.Joins[0])
			assert.Empty(t, plan.Standalone)
		})
	}
}

func TestInferStandalone(t *testing.T) {
	plan := Infer(shopSchema(), []string{"customers"}, []string{"notes", "unknown"})
	assert.Empty(t, plan.Joins)
	assert.Equal(t, []string{"SELECT * FROM notes LIMIT 100", "SELECT * FROM unknown LIMIT 100"}, plan.Standalone)

	plan = Infer(shopSchema(), nil, []string{"orders"})
	assert.Equal(t, []string{"SELECT * FROM orders LIMIT 100"}, plan.Standalone)
}

func TestForeignKeyWithoutReference(t *testing.T) {
	schema := shopSchema()
	schema.Tables = append(schema.Tables, introspect.Table{Name: "ledger", Columns: []introspect.Column{
		{Name: "customer_id", Type: "integer", IsForeignKey: true},
	}})

	plan := Infer(schema, []string{"customers"}, []string{"ledger"})
	assert.Empty(t, plan.Joins)
	assert.Equal(t, []string{"SELECT * FROM ledger LIMIT 100"}, plan.Standalone)

	plan = Infer(schema, []string{"ledger"}, []string{"customers"})
	assert.Empty(t, plan.Joins)
	assert.Equal(t, []string{"SELECT * FROM customers LIMIT 100"}, plan.Standalone)
}

func TestJoinedTablesBecomePresent(t *testing.T) {
	plan := Infer(shopSchema(), []string{"customers"}, []string{"order_items", "orders", "skus"})
	// order_items only relates to orders, which is not present yet.
	assert.Equal(t, []string{"SELECT * FROM order_items LIMIT 100", "SELECT * FROM skus LIMIT 100"}, plan.Standalone)
	require.Len(t, plan.Joins, 1)
	assert.Equal(t, "orders", plan.Joins[0].NewTable)

	plan = Infer(shopSchema(), []string{"customers"}, []string{"orders", "order_items", "skus"})
	assert.Empty(t, plan.Standalone)
	require.Len(t, plan.Joins, 3)
	assert.Equal(t, "order_items.order_id = orders.id", plan.Joins[1].Predicate)
	assert.Equal(t, "skus.sku_id = order_items.sku_id", plan.Joins[2].Predicate)
}

func TestInferIsDeterministic(t *testing.T) {
	existing := []string{"orders", "customers"}
	added := []string{"regions", "order_items", "notes"}
	first := Infer(shopSchema(), existing, added)
	for range 20 {
		assert.Equal(t, first, Infer(shopSchema(), existing, added))
	}
}

func TestAlreadyPresentTablesAreSkipped(t *testing.T) {
	plan := Infer(shopSchema(), []string{"orders"}, []string{"ORDERS"})
	assert.Empty(t, plan.Joins)
	assert.Empty(t, plan.Standalone)
}

func TestTablesIn(t *testing.T) {
	var tests = []struct {
		query string
		want  []string
	}{
		{"SELECT * FROM orders", []string{"orders"}},
		{"select * from public.orders o join \"customers\" c on o.customer_id = c.id", []string{"orders", "customers"}},
		{"SELECT * FROM [dbo].[orders] LEFT JOIN `regions` ON 1=1", []string{"orders", "regions"}},
		{"SELECT * FROM orders o, customers c WHERE o.customer_id = c.id", []string{"orders", "customers"}},
		{"SELECT 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, TablesIn(tt.query))
		})
	}
}

func TestCompose(t *testing.T) {
	out, plan := Compose("SELECT * FROM customers WHERE name = 'x' ORDER BY id;", shopSchema(), []string{"orders", "notes"})
	assert.Len(t, plan.Joins, 1)
	assert.Equal(t, "SELECT * FROM customers\nJOIN orders ON orders.customer_id = customers.id\nWHERE name = 'x' ORDER BY id;\n\nSELECT * FROM notes LIMIT 100;", out)

	out, _ = Compose("SELECT * FROM customers", shopSchema(), []string{"orders"})
	assert.Equal(t, "SELECT * FROM customers\nJOIN orders ON orders.customer_id = customers.id;", out)

	out, _ = Compose("", shopSchema(), []string{"orders"})
	assert.Equal(t, "SELECT * FROM orders LIMIT 100;", out)
}
