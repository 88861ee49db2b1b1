package simulation

import "querybridge/internal/introspect"

// cannedSchema is the e-commerce schema every simulated SQL connection exposes.
func cannedSchema() introspect.Schema {
	ref := func(table, column string) *introspect.Reference {
		return &introspect.Reference{Table: table, Column: column}
	}
	return introspect.Schema{Tables: []introspect.Table{
		{
			Name: "customers",
			Columns: []introspect.Column{
				{Name: "id", Type: "integer", IsPrimaryKey: true},
				{Name: "name", Type: "varchar(120)"},
				{Name: "email", Type: "varchar(255)"},
				{Name: "created_at", Type: "timestamp"},
			},
		},
		{
			Name: "products",
			Columns: []introspect.Column{
				{Name: "id", Type: "integer", IsPrimaryKey: true},
				{Name: "name", Type: "varchar(120)"},
				{Name: "price", Type: "numeric(10,2)"},
				{Name: "stock", Type: "integer"},
			},
		},
		{
			Name: "orders",
			Columns: []introspect.Column{
				{Name: "id", Type: "integer", IsPrimaryKey: true},
				{Name: "customer_id", Type: "integer", IsForeignKey: true, References: ref("customers", "id")},
				{Name: "order_date", Type: "date"},
				{Name: "status", Type: "varchar(20)"},
				{Name: "total", Type: "numeric(10,2)"},
			},
		},
		{
			Name: "order_items",
			Columns: []introspect.Column{
				{Name: "id", Type: "integer", IsPrimaryKey: true},
				{Name: "order_id", Type: "integer", IsForeignKey: true, References: ref("orders", "id")},
				{Name: "product_id", Type: "integer", IsForeignKey: true, References: ref("products", "id")},
				{Name: "quantity", Type: "integer"},
				{Name: "unit_price", Type: "numeric(10,2)"},
			},
		},
	}}
}
