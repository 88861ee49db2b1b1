package dialect

func mongoDefinition() Definition {
	return Definition{
		Dialect:           MongoDB,
		Label:             "MongoDB",
		ListTables:        "db.getCollectionNames()",
		ListColumns:       "db.%s.find({}).limit(1)",
		KillSessionFormat: "db.killOp(%s)",
		RebuildFormat:     `db.runCommand({ reIndex: "%s" })`,
		ExplainFormat:     `%s.explain("executionStats")`,
		ExplainMarker:     ".explain(",
		Insights: []Insight{
			{
				ID:          "mongo_current_op",
				Category:    "activity",
				Context:     ContextServer,
				Title:       "Slow operations",
				Description: "Operations running for five seconds or more.",
				Impact:      ImpactHigh,
				SQL:         `db.currentOp({ "secs_running": { "$gte": 5 } })`,
			},
			{
				ID:          "mongo_server_status",
				Category:    "configuration",
				Context:     ContextServer,
				Title:       "Server status",
				Description: "Connections, memory and opcounters.",
				Impact:      ImpactLow,
				SQL:         "db.serverStatus()",
			},
			{
				ID:          "mongo_profiler",
				Category:    "activity",
				Context:     ContextDatabase,
				Title:       "Profiled slow queries",
				Description: "Entries captured by the database profiler.",
				Impact:      ImpactMedium,
				SQL:         `db.system.profile.find({ "millis": { "$gt": 100 } }).limit(20)`,
			},
		},
	}
}
