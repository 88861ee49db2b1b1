package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"querybridge/internal/dialect"
	"querybridge/internal/introspect"
)

func TestParse(t *testing.T) {
	var tests = []struct {
		query string
		want  Command
		err   bool
	}{
		{"db.getCollectionNames()", Command{Op: OpListCollections}, false},
		{"db.users.find({})", Command{Collection: "users", Op: OpFind, Filter: bson.D{}}, false},
		{"db.users.find()", Command{Collection: "users", Op: OpFind, Filter: bson.D{}}, false},
		{`db.orders.find({ status: "paid" }).limit(5);`, Command{Collection: "orders", Op: OpFind, Filter: bson.D{{Key: "status", Value: "paid"}}, Limit: 5}, false},
		{`db.orders.find({"status": "paid"}, {"total": 1})`, Command{Collection: "orders", Op: OpFind, Filter: bson.D{{Key: "status", Value: "paid"}}}, false},
		{`db.orders.find({ note: "a (b)" })`, Command{Collection: "orders", Op: OpFind, Filter: bson.D{{Key: "note", Value: "a (b)"}}}, false},
		{`db.users.find({}).limit(1).explain("executionStats")`, Command{Collection: "users", Op: OpFind, Filter: bson.D{}, Limit: 1, Explain: true}, false},
		{"db.users.countDocuments({})", Command{Collection: "users", Op: OpCountDocuments, Filter: bson.D{}}, false},
		{"SELECT 1", Command{}, true},
		{"db.users.find({", Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := Parse(tt.query)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindFlattensOneLevel(t *testing.T) {
	e := New(0)
	res := e.ExecuteQuery(context.Background(), "", "db.users.find({}).limit(2)")
	require.Empty(t, res.Error)
	require.NoError(t, res.Validate())
	assert.Equal(t, []string{"_id", "name", "email", "address.city", "address.country", "created_at"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, []any{"65a1f0c2e4b0a1b2c3d4e001", "Ada Lovelace", "ada@example.com", "London", "UK", "2024-01-03T09:30:00Z"}, res.Rows[0])
}

func TestFindUnionsKeys(t *testing.T) {
	e := New(0)
	res := e.ExecuteQuery(context.Background(), "", "db.orders.find({})")
	require.NoError(t, res.Validate())
	assert.Equal(t, []string{"_id", "user_id", "product_id", "quantity", "total", "status", "shipping.carrier", "shipping.eta_days"}, res.Columns)
	assert.Nil(t, res.Rows[2][6])
}

func TestFilters(t *testing.T) {
	e := New(0)
	ctx := context.Background()
	var tests = []struct {
		query string
		count int
	}{
		{`db.orders.find({ status: "paid" })`, 1},
		{`db.orders.find({ "total": { "$gt": 300 } })`, 2},
		{`db.orders.find({ "total": { "$gte": 79.8, "$lt": 349 } })`, 1},
		{`db.orders.find({ "status": { "$in": ["paid", "pending"] } })`, 2},
		{`db.orders.find({ "status": { "$ne": "paid" } })`, 2},
		{`db.orders.find({ "user_id": { "$oid": "65a1f0c2e4b0a1b2c3d4e001" } })`, 2},
		{`db.users.find({ "address.city": "London" })`, 1},
		{`db.users.findOne({})`, 1},
		{`db.missing.find({})`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := e.ExecuteQuery(ctx, "", tt.query)
			require.Empty(t, res.Error)
			assert.Equal(t, tt.count, res.RowCount)
		})
	}
}

func TestCountAndList(t *testing.T) {
	e := New(0)
	ctx := context.Background()

	res := e.ExecuteQuery(ctx, "", `db.products.countDocuments({ "stock": { "$gt": 0 } })`)
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)

	res = e.ExecuteQuery(ctx, "", "db.getCollectionNames()")
	assert.Equal(t, [][]any{{"users"}, {"orders"}, {"products"}}, res.Rows)

	res = e.ExecuteQuery(ctx, "", "db.users.drop()")
	assert.Contains(t, res.Error, "unsupported operation")
	assert.NoError(t, res.Validate())

	res = e.ExecuteQuery(ctx, "", "SELECT * FROM users")
	assert.NotEmpty(t, res.Error)
}

func TestExplain(t *testing.T) {
	e := New(0)
	q := dialect.NewRegistry().DefinitionFor(dialect.MongoDB).Explain(`db.orders.find({ status: "paid" })`)
	res := e.ExecuteQuery(context.Background(), "", q)
	require.Empty(t, res.Error)
	assert.Equal(t, []string{"explain"}, res.Columns)
	plan := res.Rows[0][0].(string)
	assert.Contains(t, plan, `"stage":"COLLSCAN"`)
	assert.Contains(t, plan, `"nReturned":1`)
	assert.Contains(t, plan, `"totalDocsExamined":3`)
}

func TestSchema(t *testing.T) {
	e := New(0)
	ctx := context.Background()
	s := e.GetSchema(ctx, "")
	require.NoError(t, s.Validate())
	assert.Equal(t, []string{"users", "orders", "products"}, s.TableNames())

	users, _ := s.Table("users")
	id, _ := users.Column("_id")
	assert.Equal(t, introspect.Column{Name: "_id", Type: "objectId", IsPrimaryKey: true}, id)
	city, _ := users.Column("address.city")
	assert.Equal(t, "string", city.Type)

	orders, _ := s.Table("orders")
	userID, _ := orders.Column("user_id")
	assert.Equal(t, &introspect.Reference{Table: "users", Column: "_id"}, userID.References)
	productID, _ := orders.Column("product_id")
	assert.Equal(t, &introspect.Reference{Table: "products", Column: "_id"}, productID.References)

	assert.Equal(t, introspect.Stats{TableCount: 3, ColumnCount: 19, PKCount: 3, FKCount: 2, IndexCount: 3}, e.GetStats(ctx, ""))
}
