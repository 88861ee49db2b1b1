// Package join proposes join predicates for tables newly added to a query.
package join

import (
	"fmt"
	"strings"

	"querybridge/internal/introspect"
)

// Scores, strongest first.
const (
	ScoreForeignKey        = 10 // the new table references the existing one
	ScoreReverseForeignKey = 8  // the existing table references the new one
	ScoreSharedName        = 2  // same id/key column name, no declared key
)

// Proposal joins NewTable onto ExistingTable.
type Proposal struct {
	NewTable      string `json:"newTable"`
	ExistingTable string `json:"existingTable"`
	Predicate     string `json:"predicate"`
	Score         int    `json:"score"`
	// Heuristic marks a guess from column names rather than a declared key.
	Heuristic bool `json:"heuristic"`
}

// Plan is the outcome for a set of new tables: joins for those that relate
// to a table already in the query, standalone statements for the rest.
type Plan struct {
	Joins      []Proposal `json:"joins"`
	Standalone []string   `json:"standalone"`
}

// Infer scores every new table against the tables already present, in
// order, and keeps the best proposal. Equal scores keep the first existing
// table. A joined table counts as present for the new tables after it.
func Infer(schema introspect.Schema, existing, added []string) Plan {
	plan := Plan{Joins: []Proposal{}, Standalone: []string{}}
	present := append([]string(nil), existing...)

	for _, name := range added {
		if contains(present, name) {
			continue
		}
		var best Proposal
		for _, other := range present {
			if p := score(schema, name, other); p.Score > best.Score {
				best = p
			}
		}
		if best.Score == 0 {
			plan.Standalone = append(plan.Standalone, Standalone(name))
			continue
		}
		plan.Joins = append(plan.Joins, best)
		present = append(present, name)
	}
	return plan
}

// Standalone is the statement proposed for a table that joins nothing.
func Standalone(table string) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT 100", table)
}

// score returns the first matching tier for the pair; the zero Proposal
// when nothing relates them.
func score(schema introspect.Schema, newName, existingName string) Proposal {
	nt, ok := schema.Table(newName)
	if !ok {
		return Proposal{}
	}
	et, ok := schema.Table(existingName)
	if !ok {
		return Proposal{}
	}
	p := Proposal{NewTable: nt.Name, ExistingTable: et.Name}

	for _, c := range nt.Columns {
		if c.IsForeignKey && c.References != nil && strings.EqualFold(c.References.Table, et.Name) {
			p.Predicate = fmt.Sprintf("%s.%s = %s.%s", nt.Name, c.Name, et.Name, c.References.Column)
			p.Score = ScoreForeignKey
			return p
		}
	}
	for _, c := range et.Columns {
		if c.IsForeignKey && c.References != nil && strings.EqualFold(c.References.Table, nt.Name) {
			p.Predicate = fmt.Sprintf("%s.%s = %s.%s", et.Name, c.Name, nt.Name, c.References.Column)
			p.Score = ScoreReverseForeignKey
			return p
		}
	}
	for _, c := range nt.Columns {
		lower := strings.ToLower(c.Name)
		if !strings.Contains(lower, "id") && !strings.Contains(lower, "key") {
			continue
		}
		if oc, ok := et.Column(c.Name); ok {
			p.Predicate = fmt.Sprintf("%s.%s = %s.%s", nt.Name, c.Name, et.Name, oc.Name)
			p.Score = ScoreSharedName
			p.Heuristic = true
			return p
		}
	}
	return Proposal{}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
