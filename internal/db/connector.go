package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"querybridge/internal/introspect"
	"querybridge/pkg/config"
)

// Connect opens a connection pool for driver and verifies it answers
// within timeoutSec seconds.
func Connect(ctx context.Context, driver, dsn string, timeoutSec int) (*sqlx.DB, error) {
	driver = config.NormalizeDriver(driver)
	if !config.SupportedDriver(driver) {
		return nil, fmt.Errorf("driver not supported: %q", driver)
	}
	dbConn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return dbConn, nil
}

// Run executes query on conn and collects the rows positionally.
func Run(ctx context.Context, conn sqlx.QueryerContext, query string) introspect.QueryResult {
	start := time.Now()
	rows, err := conn.QueryxContext(ctx, query)
	if err != nil {
		return introspect.ErrorResult("%v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return introspect.ErrorResult("read columns: %v", err)
	}
	out := [][]any{}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return introspect.ErrorResult("scan row: %v", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return introspect.ErrorResult("read rows: %v", err)
	}
	return introspect.NewResult(columns, out, time.Since(start))
}
