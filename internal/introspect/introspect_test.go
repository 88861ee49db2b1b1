package introspect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	orders := Table{Name: "orders", Columns: []Column{
		{Name: "id", Type: "integer", IsPrimaryKey: true},
		{Name: "customer_id", Type: "integer"},
		{Name: "total", Type: "numeric"},
	}}
	orders.ApplyForeignKeys([]ForeignKey{{FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"}})
	return Schema{Tables: []Table{
		{Name: "customers", Columns: []Column{
			{Name: "id", Type: "integer", IsPrimaryKey: true},
			{Name: "name", Type: "text"},
		}},
		orders,
	}}
}

func TestStatsFromSchema(t *testing.T) {
	st := StatsFromSchema(testSchema())
	assert.Equal(t, Stats{TableCount: 2, ColumnCount: 5, PKCount: 2, FKCount: 1, IndexCount: 2}, st)
}

func TestApplyForeignKeys(t *testing.T) {
	s := testSchema()
	require.NoError(t, s.Validate())

	orders, ok := s.Table("ORDERS")
	require.True(t, ok)
	col, ok := orders.Column("customer_id")
	require.True(t, ok)
	assert.True(t, col.IsForeignKey)
	assert.Equal(t, &Reference{Table: "customers", Column: "id"}, col.References)

	total, _ := orders.Column("total")
	assert.False(t, total.IsForeignKey)
	assert.Nil(t, total.References)
}

func TestSchemaValidate(t *testing.T) {
	var tests = []struct {
		name     string
		column   Column
		errIsNil bool
	}{
		{"plain column", Column{Name: "a"}, true},
		{"foreign key with reference", Column{Name: "a", IsForeignKey: true, References: &Reference{"t", "id"}}, true},
		{"foreign key without reference", Column{Name: "a", IsForeignKey: true}, false},
		{"reference without foreign key", Column{Name: "a", References: &Reference{"t", "id"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Schema{Tables: []Table{{Name: "t", Columns: []Column{tt.column}}}}.Validate()
			assert.Equal(t, tt.errIsNil, err == nil)
		})
	}
}

func TestSetReferenceClears(t *testing.T) {
	c := Column{Name: "x"}
	c.SetReference("t", "id")
	assert.True(t, c.IsForeignKey)
	c.SetReference("", "")
	assert.False(t, c.IsForeignKey)
	assert.Nil(t, c.References)
}

func TestResultInvariants(t *testing.T) {
	ok := NewResult([]string{"id", "id"}, [][]any{{1, 2}, {3, 4}}, 3*time.Millisecond)
	require.NoError(t, ok.Validate())
	assert.Equal(t, 2, ok.RowCount)
	assert.Equal(t, 3.0, ok.ExecutionTimeMs)
	assert.False(t, ok.Failed())

	failed := ErrorResult("bridge %s", "down")
	require.NoError(t, failed.Validate())
	assert.True(t, failed.Failed())
	assert.Equal(t, "bridge down", failed.Error)
	assert.Empty(t, failed.Rows)
	assert.Empty(t, failed.Columns)

	bad := QueryResult{Columns: []string{"a"}, Rows: [][]any{{1, 2}}}
	assert.Error(t, bad.Validate())
}

func TestResultRecords(t *testing.T) {
	r := NewResult([]string{"Name", "PK"}, [][]any{{"id", 1}}, 0)
	recs := r.Records(nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "id", recs[0]["Name"])
}
