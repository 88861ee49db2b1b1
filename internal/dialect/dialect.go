// Package dialect holds the per-dialect introspection templates,
// management statements and diagnostic insights.
package dialect

import "strings"

// Dialect is one of the supported database kinds.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
	MSSQL    Dialect = "mssql"
	MongoDB  Dialect = "mongodb"
	// Parquet is an inert placeholder with no templates or insights.
	Parquet Dialect = "parquet"
)

// All lists every dialect in display order.
var All = []Dialect{Postgres, MySQL, SQLite, MSSQL, MongoDB, Parquet}

// Normalize maps an engine name to a dialect. Unrecognized names map to Postgres.
func Normalize(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres
	case "mysql", "mariadb":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	case "mssql", "sqlserver":
		return MSSQL
	case "mongodb", "mongo":
		return MongoDB
	case "parquet":
		return Parquet
	default:
		return Postgres
	}
}

// Valid reports whether d is part of the enumeration.
func (d Dialect) Valid() bool {
	for _, v := range All {
		if v == d {
			return true
		}
	}
	return false
}

func (d Dialect) String() string {
	return string(d)
}
