package dialect

func mysqlDefinition() Definition {
	return Definition{
		Dialect:     MySQL,
		Label:       "MySQL",
		ListTables:  "SHOW TABLES",
		ListColumns: "SHOW COLUMNS FROM `%s`",
		ListForeignKeys: "" +
			"SELECT column_name AS `from`, referenced_table_name AS `table`, referenced_column_name AS `to`\n" +
			"FROM information_schema.key_column_usage\n" +
			"WHERE table_schema = DATABASE()\n" +
			"  AND table_name = '%s'\n" +
			"  AND referenced_table_name IS NOT NULL",
		CountIndexes: `
SELECT COUNT(DISTINCT table_name, index_name) AS index_count
FROM information_schema.statistics
WHERE table_schema = DATABASE()`,
		KillSessionFormat: "KILL %s;",
		RebuildFormat:     "OPTIMIZE TABLE `%s`;",
		ExplainFormat:     "EXPLAIN FORMAT=JSON %s",
		Insights: []Insight{
			{
				ID:          "my_blocking_sessions",
				Category:    "locks",
				Context:     ContextServer,
				Title:       "InnoDB lock waits",
				Description: "Transactions waiting on row locks and the transactions holding them.",
				Impact:      ImpactCritical,
				SQL: `SELECT r.trx_mysql_thread_id AS waiting_thread,
       r.trx_query AS waiting_query,
       b.trx_mysql_thread_id AS blocking_thread,
       b.trx_query AS blocking_query
FROM performance_schema.data_lock_waits w
JOIN information_schema.innodb_trx b ON b.trx_id = w.blocking_engine_transaction_id
JOIN information_schema.innodb_trx r ON r.trx_id = w.requesting_engine_transaction_id`,
			},
			{
				ID:          "my_long_running",
				Category:    "activity",
				Context:     ContextServer,
				Title:       "Long running queries",
				Description: "Threads executing the same statement for more than 60 seconds.",
				Impact:      ImpactHigh,
				SQL: `SELECT id, user, host, db, command, time, state, info
FROM information_schema.processlist
WHERE command <> 'Sleep' AND time > 60
ORDER BY time DESC`,
			},
			{
				ID:          "my_wait_stats",
				Category:    "waits",
				Context:     ContextServer,
				Title:       "Top wait events",
				Description: "Wait events with the highest accumulated latency.",
				Impact:      ImpactMedium,
				SQL: `SELECT event_name, count_star, sum_timer_wait / 1000000000000 AS total_wait_s
FROM performance_schema.events_waits_summary_global_by_event_name
WHERE count_star > 0
ORDER BY sum_timer_wait DESC
LIMIT 20`,
			},
			{
				ID:          "my_configuration",
				Category:    "configuration",
				Context:     ContextServer,
				Title:       "Key configuration",
				Description: "Variables the advisor checks for common misconfiguration.",
				Impact:      ImpactLow,
				SQL: `SELECT variable_name AS name, variable_value AS value
FROM performance_schema.global_variables
WHERE variable_name IN ('innodb_buffer_pool_size', 'max_connections', 'slow_query_log', 'long_query_time')`,
			},
			{
				ID:          "my_fragmentation",
				Category:    "storage",
				Context:     ContextDatabase,
				Title:       "Fragmented tables",
				Description: "Tables with reclaimable free space.",
				Impact:      ImpactMedium,
				SQL: `-- fragmentation
SELECT table_name, engine, data_length, data_free,
       round(100 * data_free / nullif(data_length + data_free, 0), 2) AS free_pct
FROM information_schema.tables
WHERE table_schema = DATABASE() AND data_free > 0
ORDER BY data_free DESC`,
			},
		},
	}
}
