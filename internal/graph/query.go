package graph

import "strings"

// FindByID returns the node with the given id.
func (g *Graph) FindByID(id string) (Node, bool) {
	idx, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[idx], true
}

// FindByDomain returns workers whose domain keywords (or id) match the query.
// Matching is case-insensitive substring in either direction, so "front"
// matches "frontend" and "frontend development" matches "frontend". Result
// order is node declaration order.
func (g *Graph) FindByDomain(query string) []WorkerNode {
	return g.findWorkers(query, func(w *WorkerNode) []string { return w.Domain })
}

// FindByCapability is FindByDomain over capability keywords.
func (g *Graph) FindByCapability(query string) []WorkerNode {
	return g.findWorkers(query, func(w *WorkerNode) []string { return w.Capabilities })
}

func (g *Graph) findWorkers(query string, keywords func(*WorkerNode) []string) []WorkerNode {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []WorkerNode
	for _, n := range g.nodes {
		w := n.Worker
		if w == nil {
			continue
		}
		if matchKeyword(q, w.ID) || matchAny(q, keywords(w)) {
			out = append(out, *w)
		}
	}
	return out
}

func matchAny(q string, set []string) bool {
	for _, s := range set {
		if matchKeyword(q, s) {
			return true
		}
	}
	return false
}

func matchKeyword(q, keyword string) bool {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return false
	}
	return strings.Contains(k, q) || strings.Contains(q, k)
}

// TeamMembers returns the team's workers in member declaration order.
// Returns nil when id is not a team. Load guarantees members resolve.
func (g *Graph) TeamMembers(teamID string) []WorkerNode {
	n, ok := g.FindByID(teamID)
	if !ok || n.Team == nil {
		return nil
	}
	out := make([]WorkerNode, 0, len(n.Team.MemberIDs))
	for _, id := range n.Team.MemberIDs {
		m, ok := g.FindByID(id)
		if ok && m.Worker != nil {
			out = append(out, *m.Worker)
		}
	}
	return out
}

// Hierarchy walks reports_to edges upward from the given node, following the
// first declared edge at each step. The result starts with the node itself.
// Load rejects reports_to cycles, so the walk always terminates.
func (g *Graph) Hierarchy(id string) []Node {
	n, ok := g.FindByID(id)
	if !ok {
		return nil
	}
	chain := []Node{n}
	cur := id
	for {
		next, ok := g.reportsTo(cur)
		if !ok {
			return chain
		}
		nn, ok := g.FindByID(next)
		if !ok {
			return chain
		}
		chain = append(chain, nn)
		cur = next
	}
}
