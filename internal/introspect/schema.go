package introspect

import (
	"fmt"
	"strings"
)

// Reference is the target of a foreign key column.
type Reference struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Column represents a table column.
type Column struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	IsPrimaryKey bool       `json:"isPrimaryKey"`
	IsForeignKey bool       `json:"isForeignKey"`
	References   *Reference `json:"references,omitempty"`
}

// Table represents a database table (or collection) and its columns.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Schema is the canonical shape every dialect is normalized into.
type Schema struct {
	Tables []Table `json:"tables"`
}

// ForeignKey is a single foreign key edge as read from a catalog.
type ForeignKey struct {
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// SetReference marks the column as a foreign key to table.column.
// An empty table clears the reference, keeping IsForeignKey and References in step.
func (c *Column) SetReference(table, column string) {
	if table == "" {
		c.IsForeignKey = false
		c.References = nil
		return
	}
	c.IsForeignKey = true
	c.References = &Reference{Table: table, Column: column}
}

// ApplyForeignKeys sets the reference of every column whose name matches
// the source column of an edge.
func (t *Table) ApplyForeignKeys(fks []ForeignKey) {
	for _, fk := range fks {
		for j := range t.Columns {
			if t.Columns[j].Name == fk.FromColumn {
				t.Columns[j].SetReference(fk.ToTable, fk.ToColumn)
			}
		}
	}
}

// Column returns the column with the given name, matched case-insensitively.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Table returns the table with the given name, matched case-insensitively.
func (s Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

// TableNames lists the table names in schema order.
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Validate checks that every column is a foreign key exactly when it carries a reference.
func (s Schema) Validate() error {
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			if c.IsForeignKey != (c.References != nil) {
				return fmt.Errorf("column %s.%s: isForeignKey=%t but reference present=%t", t.Name, c.Name, c.IsForeignKey, c.References != nil)
			}
		}
	}
	return nil
}
