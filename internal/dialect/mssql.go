package dialect

func mssqlDefinition() Definition {
	return Definition{
		Dialect: MSSQL,
		Label:   "SQL Server",
		ListTables: `
SELECT TABLE_NAME AS name
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_SCHEMA, TABLE_NAME`,
		ListColumns: `
SELECT c.COLUMN_NAME AS name,
       c.DATA_TYPE AS type,
       CASE WHEN EXISTS (
         SELECT 1
         FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
         JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
           ON tc.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = k.TABLE_SCHEMA
         WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
           AND k.TABLE_NAME = c.TABLE_NAME
           AND k.COLUMN_NAME = c.COLUMN_NAME
       ) THEN 1 ELSE 0 END AS pk
FROM INFORMATION_SCHEMA.COLUMNS c
WHERE c.TABLE_NAME = '%s'
ORDER BY c.ORDINAL_POSITION`,
		ListForeignKeys: `
SELECT c.name AS [from],
       OBJECT_NAME(fkc.referenced_object_id) AS [table],
       rc.name AS [to]
FROM sys.foreign_key_columns fkc
JOIN sys.columns c ON fkc.parent_object_id = c.object_id AND fkc.parent_column_id = c.column_id
JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
WHERE OBJECT_NAME(fkc.parent_object_id) = '%s'`,
		CountIndexes: `
SELECT COUNT(*) AS index_count
FROM sys.indexes i
JOIN sys.tables t ON i.object_id = t.object_id
WHERE i.type > 0`,
		KillSessionFormat: "KILL %s;",
		RebuildFormat:     "ALTER INDEX ALL ON %s REBUILD;",
		ExplainFormat:     "SET SHOWPLAN_XML ON;\nGO\n%s\nGO\nSET SHOWPLAN_XML OFF;",
		ExplainMarker:     "SHOWPLAN_XML",
		Insights: []Insight{
			{
				ID:          "ms_blocking_sessions",
				Category:    "locks",
				Context:     ContextServer,
				Title:       "Blocking chains",
				Description: "Requests blocked by another session, with the head of each chain.",
				Impact:      ImpactCritical,
				SQL: `SELECT r.session_id, r.blocking_session_id, r.wait_type, r.wait_time,
       DB_NAME(r.database_id) AS database_name, t.text AS query_text
FROM sys.dm_exec_requests r
CROSS APPLY sys.dm_exec_sql_text(r.sql_handle) t
WHERE r.blocking_session_id <> 0
ORDER BY r.wait_time DESC`,
			},
			{
				ID:          "ms_backup_history",
				Category:    "backup",
				Context:     ContextServer,
				Title:       "Backup history",
				Description: "Most recent full, differential and log backups per database.",
				Impact:      ImpactHigh,
				SQL: `SELECT TOP 50 bs.database_name,
       CASE bs.type WHEN 'D' THEN 'FULL' WHEN 'I' THEN 'DIFF' WHEN 'L' THEN 'LOG' END AS backup_type,
       bs.backup_start_date, bs.backup_finish_date,
       CAST(bs.backup_size / 1048576.0 AS DECIMAL(18, 2)) AS size_mb,
       bmf.physical_device_name
FROM msdb.dbo.backupset bs
JOIN msdb.dbo.backupmediafamily bmf ON bs.media_set_id = bmf.media_set_id
ORDER BY bs.backup_finish_date DESC`,
			},
			{
				ID:          "ms_fragmentation",
				Category:    "indexes",
				Context:     ContextDatabase,
				Title:       "Index fragmentation",
				Description: "Indexes over 30 percent fragmented with more than 1000 pages.",
				Impact:      ImpactMedium,
				SQL: `SELECT OBJECT_NAME(ips.object_id) AS table_name, i.name AS index_name,
       ips.avg_fragmentation_in_percent, ips.page_count
FROM sys.dm_db_index_physical_stats(DB_ID(), NULL, NULL, NULL, 'LIMITED') ips
JOIN sys.indexes i ON ips.object_id = i.object_id AND ips.index_id = i.index_id
WHERE ips.avg_fragmentation_in_percent > 30 AND ips.page_count > 1000
ORDER BY ips.avg_fragmentation_in_percent DESC`,
			},
			{
				ID:          "ms_wait_stats",
				Category:    "waits",
				Context:     ContextServer,
				Title:       "Top waits",
				Description: "Wait types with the highest accumulated wait time since restart.",
				Impact:      ImpactMedium,
				SQL: `SELECT TOP 20 wait_type, waiting_tasks_count, wait_time_ms, signal_wait_time_ms
FROM sys.dm_os_wait_stats
WHERE wait_type NOT LIKE 'SLEEP%'
ORDER BY wait_time_ms DESC`,
			},
			{
				ID:          "ms_configuration",
				Category:    "configuration",
				Context:     ContextServer,
				Title:       "Server configuration",
				Description: "Options the advisor checks for common misconfiguration.",
				Impact:      ImpactLow,
				SQL: `SELECT name, value_in_use AS value, description
FROM sys.configurations
WHERE name IN ('max degree of parallelism', 'cost threshold for parallelism', 'max server memory (MB)', 'optimize for ad hoc workloads')
ORDER BY name`,
			},
			{
				ID:          "ms_missing_indexes",
				Category:    "indexes",
				Context:     ContextDatabase,
				Title:       "Missing indexes",
				Description: "Index suggestions recorded by the optimizer.",
				Impact:      ImpactMedium,
				SQL: `SELECT TOP 20 d.statement AS table_name, d.equality_columns, d.inequality_columns,
       d.included_columns, s.avg_user_impact
FROM sys.dm_db_missing_index_details d
JOIN sys.dm_db_missing_index_groups g ON d.index_handle = g.index_handle
JOIN sys.dm_db_missing_index_group_stats s ON g.index_group_handle = s.group_handle
ORDER BY s.avg_user_impact DESC`,
			},
		},
	}
}
