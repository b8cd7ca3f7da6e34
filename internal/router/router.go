// Package router matches a task intent against the capability graph's
// routing edges and produces the ordered worker list that should handle it.
package router

import (
	"strings"

	"github.com/rahlplx/workforce/internal/graph"
)

// Intent is the declared type of an incoming task plus optional free-form
// context the core forwards but does not interpret.
type Intent struct {
	Type    string            `json:"type"`
	Context map[string]string `json:"context,omitempty"`
}

// Route selects the routes_to edge whose condition matches the intent type
// and resolves its target. Teams expand to their members in declaration
// order. Among matching edges the lowest priority wins; on equal priority
// the edge declared first wins; declaration order is part of the contract,
// not an accident. No matching edge yields an empty (nil) slice, never an
// error: "no route" is a representable outcome the caller forwards as
// "no specialist matched".
func Route(g *graph.Graph, intent Intent) []graph.WorkerNode {
	if g == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(intent.Type))
	if q == "" {
		return nil
	}

	var best *graph.Edge
	for i, e := range g.Edges() {
		if e.Kind != graph.EdgeRoutesTo {
			continue
		}
		if !conditionMatches(e.Condition, q) {
			continue
		}
		if best == nil || e.Priority < best.Priority {
			best = &g.Edges()[i]
		}
	}
	if best == nil {
		return nil
	}

	n, ok := g.FindByID(best.To)
	if !ok {
		// Load validates routes_to targets; an unknown id here means the
		// caller routed against a graph it did not load.
		return nil
	}
	if n.Team != nil {
		return g.TeamMembers(n.Team.ID)
	}
	if n.Worker != nil {
		return []graph.WorkerNode{*n.Worker}
	}
	return nil
}

// conditionMatches applies the graph-wide matching rule: case-insensitive
// substring in either direction between the edge condition and the intent type.
func conditionMatches(condition, q string) bool {
	c := strings.ToLower(strings.TrimSpace(condition))
	if c == "" {
		return false
	}
	return strings.Contains(c, q) || strings.Contains(q, c)
}

// WorkerIDs projects routed workers to their ids, in route order.
func WorkerIDs(workers []graph.WorkerNode) []string {
	if len(workers) == 0 {
		return nil
	}
	ids := make([]string, len(workers))
	for i, w := range workers {
		ids[i] = w.ID
	}
	return ids
}
