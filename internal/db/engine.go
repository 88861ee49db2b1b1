package db

import (
	"context"
	"time"

	"querybridge/internal/introspect"
)

// Engine is the capability set every execution backend provides.
// Instance ids are opaque to callers; an engine that owns a single
// logical database ignores them.
type Engine interface {
	Init(ctx context.Context) error

	// ExecuteQuery never returns a Go error: failures are reported in
	// the result's Error field.
	ExecuteQuery(ctx context.Context, instanceID, query string) introspect.QueryResult

	// GetSchema degrades to an empty schema when introspection fails.
	GetSchema(ctx context.Context, instanceID string) introspect.Schema

	// GetStats degrades to zeroed stats when introspection fails.
	GetStats(ctx context.Context, instanceID string) introspect.Stats
}

// Delay waits d or until ctx is done. Simulated engines use it to model
// network latency.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
