package dialect

func sqliteDefinition() Definition {
	return Definition{
		Dialect: SQLite,
		Label:   "SQLite",
		ListTables: `
SELECT name
FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`,
		ListColumns:     "PRAGMA table_info('%s')",
		ListForeignKeys: "PRAGMA foreign_key_list('%s')",
		CountIndexes:    "SELECT count(*) AS index_count FROM sqlite_master WHERE type = 'index'",
		// SQLite is in-process, so there is never a session to kill.
		KillSessionFormat: "-- SQLite has no server sessions; nothing to terminate for session %s",
		RebuildFormat:     `REINDEX "%s";`,
		ExplainFormat:     "EXPLAIN QUERY PLAN %s",
		Insights: []Insight{
			{
				ID:          "sqlite_integrity",
				Category:    "integrity",
				Context:     ContextDatabase,
				Title:       "Integrity check",
				Description: "Runs the full b-tree and index consistency check.",
				Impact:      ImpactCritical,
				SQL:         "PRAGMA integrity_check",
			},
			{
				ID:          "sqlite_foreign_key_check",
				Category:    "integrity",
				Context:     ContextDatabase,
				Title:       "Foreign key violations",
				Description: "Rows whose foreign keys point at missing parents.",
				Impact:      ImpactHigh,
				SQL:         "PRAGMA foreign_key_check",
			},
			{
				ID:          "sqlite_freelist",
				Category:    "storage",
				Context:     ContextDatabase,
				Title:       "Free pages",
				Description: "Unused pages that VACUUM would reclaim.",
				Impact:      ImpactLow,
				SQL:         "SELECT freelist_count, page_count FROM pragma_freelist_count, pragma_page_count",
			},
			{
				ID:          "sqlite_indexes",
				Category:    "indexes",
				Context:     ContextDatabase,
				Title:       "Indexes",
				Description: "Every index with the table it belongs to.",
				Impact:      ImpactLow,
				SQL:         "SELECT name AS index_name, tbl_name AS table_name FROM sqlite_master WHERE type = 'index' ORDER BY tbl_name, name",
			},
		},
	}
}

func parquetDefinition() Definition {
	return Definition{
		Dialect: Parquet,
		Label:   "Parquet",
	}
}
