package join

import (
	"regexp"
	"strings"

	"querybridge/internal/introspect"
)

var (
	tableRefRe = regexp.MustCompile("(?i)\\b(?:from|join)\\s+((?:[\\w\"`\\[\\]]+\\.)*[\\w\"`\\[\\]]+)")
	listRefRe  = regexp.MustCompile("(?i)\\bfrom\\s+[\\w.\"`\\[\\]]+(?:\\s+(?:as\\s+)?\\w+)?((?:\\s*,\\s*[\\w.\"`\\[\\]]+(?:\\s+(?:as\\s+)?\\w+)?)+)")
	listItemRe = regexp.MustCompile("[\\w.\"`\\[\\]]+")
	tailRe     = regexp.MustCompile(`(?i)\s+(?:where|group\s+by|having|order\s+by|limit|offset)\b`)
)

// TablesIn returns the tables a query reads from FROM and JOIN clauses, in
// order of appearance, without schema qualifiers or quoting.
func TablesIn(query string) []string {
	var out []string
	add := func(ref string) {
		parts := strings.Split(ref, ".")
		name := strings.Trim(parts[len(parts)-1], "\"`[]")
		if name != "" && !contains(out, name) {
			out = append(out, name)
		}
	}
	for _, m := range tableRefRe.FindAllStringSubmatch(query, -1) {
		add(m[1])
	}
	// FROM a, b: the comma-separated tail.
	for _, m := range listRefRe.FindAllStringSubmatch(query, -1) {
		for _, item := range strings.Split(m[1], ",") {
			if ref := listItemRe.FindString(item); ref != "" {
				add(ref)
			}
		}
	}
	return out
}

// Compose adds the tables in added to query: each one that joins gets a
// JOIN clause before any WHERE/GROUP BY/ORDER BY tail, the others are
// appended as standalone statements.
func Compose(query string, schema introspect.Schema, added []string) (string, Plan) {
	plan := Infer(schema, TablesIn(query), added)

	body := strings.TrimSpace(query)
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))
	if len(plan.Joins) > 0 {
		var joins strings.Builder
		for _, j := range plan.Joins {
			joins.WriteString("\nJOIN " + j.NewTable + " ON " + j.Predicate)
		}
		if loc := tailRe.FindStringIndex(body); loc != nil {
			body = body[:loc[0]] + joins.String() + "\n" + strings.TrimSpace(body[loc[0]:])
		} else {
			body += joins.String()
		}
	}

	var b strings.Builder
	if body != "" {
		b.WriteString(body + ";")
	}
	for _, s := range plan.Standalone {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s + ";")
	}
	return b.String(), plan
}
