package introspect

// Stats summarizes a schema.
type Stats struct {
	TableCount  int `json:"tableCount"`
	ColumnCount int `json:"columnCount"`
	PKCount     int `json:"pkCount"`
	FKCount     int `json:"fkCount"`
	IndexCount  int `json:"indexCount"`
}

// StatsFromSchema folds a schema into stats. Without an index catalog the
// index count is approximated by the primary key count.
func StatsFromSchema(s Schema) Stats {
	var st Stats
	st.TableCount = len(s.Tables)
	for _, t := range s.Tables {
		st.ColumnCount += len(t.Columns)
		for _, c := range t.Columns {
			if c.IsPrimaryKey {
				st.PKCount++
			}
			if c.IsForeignKey {
				st.FKCount++
			}
		}
	}
	st.IndexCount = st.PKCount
	return st
}
