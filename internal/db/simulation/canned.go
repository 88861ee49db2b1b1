package simulation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"querybridge/internal/introspect"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
	// virtualRows is the size of the table every fallback query pages over.
	virtualRows = 1000
)

var (
	limitRe      = regexp.MustCompile(`(?i)\blimit\s+(\d+)(?:\s*,\s*(\d+))?`)
	offsetRe     = regexp.MustCompile(`(?i)\boffset\s+(\d+)`)
	topRe        = regexp.MustCompile(`(?i)\btop\s*\(?\s*(\d+)`)
	fromRe       = regexp.MustCompile("(?i)\\b(?:from|join|into|update)\\s+[\"`\\[]?(\\w+)")
	quotedWordRe = regexp.MustCompile("['\"`\\[](\\w+)['\"`\\]]|(?i:\\bfrom)\\s+(\\w+)")
	epoch        = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func result(columns []string, rows ...[]any) introspect.QueryResult {
	return introspect.NewResult(columns, rows, 0)
}

func blockingSessions(string, introspect.Schema) introspect.QueryResult {
	return result(
		[]string{"session_id", "blocking_session_id", "login", "wait_type", "wait_time_ms", "query"},
		[]any{51, 0, "etl_service", "", 0, "UPDATE orders SET status = 'shipped' WHERE order_date < '2024-03-01'"},
		[]any{52, 51, "web_app", "LCK_M_U", 48210, "UPDATE orders SET total = total * 1.1 WHERE id = 1042"},
		[]any{53, 52, "web_app", "LCK_M_S", 31877, "SELECT * FROM orders WHERE id = 1042"},
		[]any{54, 51, "reporting", "LCK_M_S", 12005, "SELECT count(*) FROM orders"},
	)
}

func backupHistory(string, introspect.Schema) introspect.QueryResult {
	cols := []string{"database_name", "backup_type", "started_at", "finished_at", "size_mb", "status"}
	var rows [][]any
	for i := range 7 {
		start := epoch.AddDate(0, 2, -i).Add(2 * time.Hour)
		kind, size, status := "LOG", 180+i*12, "succeeded"
		if i%7 == 0 {
			kind, size = "FULL", 24576
		}
		if i == 3 {
			status = "failed"
		}
		rows = append(rows, []any{"shop", kind, start.Format(time.DateTime), start.Add(time.Duration(size/40+1) * time.Minute).Format(time.DateTime), size, status})
	}
	return introspect.NewResult(cols, rows, 0)
}

func fragmentation(string, introspect.Schema) introspect.QueryResult {
	return result(
		[]string{"table_name", "index_name", "fragmentation_pct", "page_count"},
		[]any{"orders", "ix_orders_customer_id", 62.4, 18211},
		[]any{"order_items", "ix_order_items_order_id", 41.9, 40550},
		[]any{"customers", "pk_customers", 8.3, 2204},
		[]any{"products", "pk_products", 1.2, 310},
	)
}

func waitStats(string, introspect.Schema) introspect.QueryResult {
	return result(
		[]string{"wait_type", "waiting_tasks", "wait_time_ms", "pct"},
		[]any{"PAGEIOLATCH_SH", 182340, 9120440, 38.2},
		[]any{"LCK_M_X", 4120, 5210330, 21.8},
		[]any{"CXPACKET", 99812, 4402120, 18.4},
		[]any{"WRITELOG", 50211, 2880100, 12.1},
		[]any{"SOS_SCHEDULER_YIELD", 230110, 2270090, 9.5},
	)
}

// configuration answers with the settings of whichever catalog the query reads.
func configuration(query string, _ introspect.Schema) introspect.QueryResult {
	cols := []string{"name", "value", "description"}
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "sys.configurations"):
		return result(cols,
			[]any{"max degree of parallelism", "0", "maximum degree of parallelism"},
			[]any{"cost threshold for parallelism", "5", "cost threshold for parallelism"},
			[]any{"max server memory (MB)", "2147483647", "maximum size of server memory"},
			[]any{"optimize for ad hoc workloads", "0", "plan cache stub for single-use plans"},
		)
	case strings.Contains(q, "global_variables"):
		return result(cols,
			[]any{"innodb_buffer_pool_size", "134217728", "buffer pool size in bytes"},
			[]any{"max_connections", "151", "maximum concurrent clients"},
			[]any{"slow_query_log", "OFF", "slow query log enabled"},
			[]any{"long_query_time", "10.000000", "slow query threshold in seconds"},
		)
	default:
		return result(cols,
			[]any{"max_connections", "500", "Sets the maximum number of concurrent connections."},
			[]any{"shared_buffers", "16384", "Sets the number of shared memory buffers (8kB)."},
			[]any{"autovacuum", "off", "Starts the autovacuum subprocess."},
			[]any{"work_mem", "4096", "Sets the maximum memory for query workspaces (kB)."},
		)
	}
}

func explainPlan(query string, schema introspect.Schema) introspect.QueryResult {
	q := strings.ToLower(query)
	table := referencedTable(query, schema)
	if table == "" {
		table = "dual"
	}
	switch {
	case strings.Contains(q, "showplan_xml"):
		return result([]string{"Microsoft SQL Server 2005 XML Showplan"}, []any{fmt.Sprintf(
			`<ShowPlanXML xmlns="http://schemas.microsoft.com/sqlserver/2004/07/showplan"><BatchSequence><Batch><Statements>`+
				`<StmtSimple StatementSubTreeCost="0.0131"><QueryPlan><RelOp PhysicalOp="Clustered Index Scan" EstimateRows="1000">`+
				`<Object Table="[%s]"/></RelOp></QueryPlan></StmtSimple></Statements></Batch></BatchSequence></ShowPlanXML>`, table)})
	case strings.HasPrefix(strings.TrimSpace(q), "explain query plan"):
		return result([]string{"id", "parent", "notused", "detail"}, []any{2, 0, 0, "SCAN " + table})
	case strings.Contains(q, "format=json"):
		return result([]string{"EXPLAIN"}, []any{fmt.Sprintf(
			`{"query_block":{"select_id":1,"cost_info":{"query_cost":"101.25"},"table":{"table_name":%q,"access_type":"ALL","rows_examined_per_scan":1000}}}`, table)})
	default:
		return result([]string{"QUERY PLAN"}, []any{fmt.Sprintf(
			`[{"Plan":{"Node Type":"Seq Scan","Relation Name":%q,"Startup Cost":0.0,"Total Cost":21.0,"Plan Rows":1000,"Actual Rows":1000,"Actual Total Time":0.412},"Planning Time":0.08,"Execution Time":0.52}]`, table)})
	}
}

func catalogTables(_ string, schema introspect.Schema) introspect.QueryResult {
	var rows [][]any
	for _, name := range schema.TableNames() {
		rows = append(rows, []any{name})
	}
	return introspect.NewResult([]string{"name"}, rows, 0)
}

func catalogColumns(query string, schema introspect.Schema) introspect.QueryResult {
	t, ok := schema.Table(referencedTable(query, schema))
	if !ok {
		return introspect.ErrorResult("relation does not exist")
	}
	var rows [][]any
	for _, c := range t.Columns {
		pk, key := 0, ""
		if c.IsPrimaryKey {
			pk, key = 1, "PRI"
		}
		rows = append(rows, []any{c.Name, c.Type, pk, key})
	}
	return introspect.NewResult([]string{"name", "type", "pk", "key"}, rows, 0)
}

func catalogForeignKeys(query string, schema introspect.Schema) introspect.QueryResult {
	t, ok := schema.Table(referencedTable(query, schema))
	if !ok {
		return introspect.ErrorResult("relation does not exist")
	}
	rows := [][]any{}
	for _, c := range t.Columns {
		if c.References != nil {
			rows = append(rows, []any{c.Name, c.References.Table, c.References.Column})
		}
	}
	return introspect.NewResult([]string{"from", "table", "to"}, rows, 0)
}

// paginated is the fallback: rows of the referenced canned table, or of a
// generic table, honouring LIMIT/OFFSET.
func paginated(query string, schema introspect.Schema) introspect.QueryResult {
	limit, offset := pageBounds(query)

	var columns []introspect.Column
	if t, ok := schema.Table(referencedTable(query, schema)); ok {
		columns = t.Columns
	} else {
		columns = []introspect.Column{
			{Name: "id", Type: "integer"},
			{Name: "name", Type: "varchar"},
			{Name: "value", Type: "numeric"},
			{Name: "created_at", Type: "timestamp"},
		}
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	rows := [][]any{}
	for n := offset + 1; n <= min(offset+limit, virtualRows); n++ {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = cellValue(c, n)
		}
		rows = append(rows, row)
	}
	return introspect.NewResult(names, rows, 0)
}

func pageBounds(query string) (limit, offset int) {
	limit = defaultPageSize
	if m := limitRe.FindStringSubmatch(query); m != nil {
		if m[2] != "" {
			// LIMIT offset, count
			offset = atoiOr(m[1], 0)
			limit = atoiOr(m[2], defaultPageSize)
		} else {
			limit = atoiOr(m[1], defaultPageSize)
		}
	} else if m := topRe.FindStringSubmatch(query); m != nil {
		limit = atoiOr(m[1], defaultPageSize)
	}
	if m := offsetRe.FindStringSubmatch(query); m != nil {
		offset = atoiOr(m[1], 0)
	}
	return min(max(limit, 0), maxPageSize), min(max(offset, 0), virtualRows)
}

// atoiOr parses s, falling back to def when it does not fit an int.
func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

var statuses = []string{"pending", "paid", "shipped", "delivered", "cancelled"}

func cellValue(c introspect.Column, n int) any {
	name := strings.ToLower(c.Name)
	typ := strings.ToLower(c.Type)
	switch {
	case name == "id":
		return n
	case c.IsForeignKey || strings.HasSuffix(name, "_id"):
		return (n*7)%50 + 1
	case name == "email":
		return fmt.Sprintf("user%d@example.com", n)
	case name == "status":
		return statuses[n%len(statuses)]
	case name == "name":
		return fmt.Sprintf("Item %d", n)
	case strings.HasPrefix(typ, "numeric"):
		return float64((n*1733)%100000) / 100
	case strings.HasPrefix(typ, "int"):
		return (n * 13) % 100
	case typ == "date":
		return epoch.AddDate(0, 0, n).Format(time.DateOnly)
	case strings.HasPrefix(typ, "timestamp"):
		return epoch.Add(time.Duration(n) * 37 * time.Minute).Format(time.DateTime)
	default:
		return fmt.Sprintf("%s %d", c.Name, n)
	}
}

// referencedTable returns the first canned table the query names, either
// as a quoted literal (catalog templates) or after FROM/JOIN.
func referencedTable(query string, schema introspect.Schema) string {
	for _, re := range []*regexp.Regexp{quotedWordRe, fromRe} {
		for _, m := range re.FindAllStringSubmatch(query, -1) {
			for _, g := range m[1:] {
				if t, ok := schema.Table(g); ok {
					return t.Name
				}
			}
		}
	}
	return ""
}
