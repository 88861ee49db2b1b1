package dialect

func postgresDefinition() Definition {
	return Definition{
		Dialect: Postgres,
		Label:   "PostgreSQL",
		ListTables: `
SELECT table_name AS name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
ORDER BY table_schema, table_name`,
		ListColumns: `
SELECT c.column_name AS name,
       c.data_type AS type,
       EXISTS (
         SELECT 1
         FROM pg_index i
         JOIN pg_class t ON i.indrelid = t.oid
         JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
         WHERE t.relname = c.table_name AND a.attname = c.column_name AND i.indisprimary
       ) AS pk
FROM information_schema.columns c
WHERE c.table_name = '%s'
ORDER BY c.ordinal_position`,
		ListForeignKeys: `
SELECT kcu.column_name AS "from", ccu.table_name AS "table", ccu.column_name AS "to"
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name
 AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_name = '%s'`,
		CountIndexes: `
SELECT count(*) AS index_count
FROM pg_indexes
WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`,
		KillSessionFormat: "SELECT pg_terminate_backend(%s);",
		RebuildFormat:     "REINDEX TABLE %s;",
		ExplainFormat:     "EXPLAIN (FORMAT JSON, ANALYZE) %s",
		Insights: []Insight{
			{
				ID:          "pg_blocking_sessions",
				Category:    "locks",
				Context:     ContextServer,
				Title:       "Blocking sessions",
				Description: "Sessions waiting on a lock held by another session, with the holder.",
				Impact:      ImpactCritical,
				SQL: `-- blocking sessions
SELECT blocked.pid AS blocked_pid,
       blocked.usename AS blocked_user,
       blocking.pid AS blocking_pid,
       blocking.usename AS blocking_user,
       now() - blocked.query_start AS waiting_for,
       blocked.query AS blocked_query
FROM pg_stat_activity blocked
JOIN pg_stat_activity blocking ON blocking.pid = ANY(pg_blocking_pids(blocked.pid))
ORDER BY waiting_for DESC`,
			},
			{
				ID:          "pg_long_running",
				Category:    "activity",
				Context:     ContextServer,
				Title:       "Long running queries",
				Description: "Active statements running for more than five minutes.",
				Impact:      ImpactHigh,
				SQL: `SELECT pid, usename, state, now() - query_start AS duration, query
FROM pg_stat_activity
WHERE state <> 'idle'
  AND now() - query_start > interval '5 minutes'
ORDER BY duration DESC`,
			},
			{
				ID:          "pg_wait_events",
				Category:    "waits",
				Context:     ContextServer,
				Title:       "Wait events",
				Description: "What active sessions are currently waiting on.",
				Impact:      ImpactMedium,
				SQL: `SELECT wait_event_type, wait_event, count(*) AS sessions
FROM pg_stat_activity
WHERE wait_event IS NOT NULL
GROUP BY wait_event_type, wait_event
ORDER BY sessions DESC`,
			},
			{
				ID:          "pg_archiver",
				Category:    "backup",
				Context:     ContextServer,
				Title:       "WAL archiving status",
				Description: "Archived and failed WAL segments, the closest thing to backup history on a bare server.",
				Impact:      ImpactHigh,
				SQL: `-- backup history
SELECT archived_count, last_archived_wal, last_archived_time, failed_count, last_failed_wal, last_failed_time
FROM pg_stat_archiver`,
			},
			{
				ID:          "pg_settings",
				Category:    "configuration",
				Context:     ContextServer,
				Title:       "Key configuration",
				Description: "Settings the advisor checks for common misconfiguration.",
				Impact:      ImpactLow,
				SQL: `SELECT name, setting AS value, unit, short_desc AS description
FROM pg_settings
WHERE name IN ('max_connections', 'shared_buffers', 'work_mem', 'autovacuum', 'effective_cache_size')
ORDER BY name`,
			},
			{
				ID:          "pg_cache_hit",
				Category:    "memory",
				Context:     ContextDatabase,
				Title:       "Cache hit ratio",
				Description: "Share of block reads served from shared buffers.",
				Impact:      ImpactMedium,
				SQL: `SELECT datname,
       round(100.0 * blks_hit / nullif(blks_hit + blks_read, 0), 2) AS hit_ratio
FROM pg_stat_database
WHERE datname = current_database()`,
			},
			{
				ID:          "pg_table_bloat",
				Category:    "storage",
				Context:     ContextDatabase,
				Title:       "Dead tuples",
				Description: "Tables with many dead tuples waiting for vacuum.",
				Impact:      ImpactMedium,
				SQL: `-- fragmentation
SELECT relname AS table_name, n_live_tup, n_dead_tup,
       round(100.0 * n_dead_tup / nullif(n_live_tup + n_dead_tup, 0), 2) AS dead_pct,
       last_autovacuum
FROM pg_stat_user_tables
ORDER BY n_dead_tup DESC
LIMIT 20`,
			},
			{
				ID:          "pg_unused_indexes",
				Category:    "indexes",
				Context:     ContextDatabase,
				Title:       "Unused indexes",
				Description: "Indexes never scanned since statistics were reset.",
				Impact:      ImpactLow,
				SQL: `SELECT relname AS table_name, indexrelname AS index_name,
       pg_size_pretty(pg_relation_size(indexrelid)) AS index_size
FROM pg_stat_user_indexes
WHERE idx_scan = 0
ORDER BY pg_relation_size(indexrelid) DESC`,
			},
		},
	}
}
