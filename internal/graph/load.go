package graph

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadError describes why a graph document was rejected. Load is all-or-nothing:
// a graph that fails any check produces no partial Graph.
type LoadError struct {
	Elem   string // "node:<id>", "edge:<from>-><to>", or "graph"
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("invalid graph (%s): %s", e.Elem, e.Reason)
}

func loadErrf(elem, format string, args ...any) *LoadError {
	return &LoadError{Elem: elem, Reason: fmt.Sprintf(format, args...)}
}

// nodeDoc and edgeDoc are the YAML document shapes. Worker and team fields
// share one struct; Kind decides which side is read.
type nodeDoc struct {
	ID           string   `yaml:"id"`
	Kind         string   `yaml:"kind"`
	Domain       []string `yaml:"domain,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
	SkillRef     string   `yaml:"skill_ref,omitempty"`
	Purpose      string   `yaml:"purpose,omitempty"`
	Leader       string   `yaml:"leader,omitempty"`
	Members      []string `yaml:"members,omitempty"`
}

type edgeDoc struct {
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	Kind        string `yaml:"kind"`
	Condition   string `yaml:"condition,omitempty"`
	Priority    int    `yaml:"priority,omitempty"`
	Requirement string `yaml:"requirement,omitempty"`
}

type graphDoc struct {
	Version string    `yaml:"version"`
	Nodes   []nodeDoc `yaml:"nodes"`
	Edges   []edgeDoc `yaml:"edges,omitempty"`
}

// LoadFile loads and validates a graph document from disk.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load parses a YAML graph document and validates it. Any dangling reference,
// malformed node, or reports_to cycle rejects the whole document.
func Load(r io.Reader) (*Graph, error) {
	var doc graphDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, loadErrf("graph", "parse: %v", err)
	}
	if len(doc.Nodes) == 0 {
		return nil, loadErrf("graph", "no nodes declared")
	}
	version := doc.Version
	if version == "" {
		version = "1"
	}

	g := &Graph{
		Version: version,
		nodes:   make([]Node, 0, len(doc.Nodes)),
		edges:   make([]Edge, 0, len(doc.Edges)),
		byID:    make(map[string]int, len(doc.Nodes)),
	}

	for _, nd := range doc.Nodes {
		id := strings.TrimSpace(nd.ID)
		if id == "" {
			return nil, loadErrf("graph", "node with empty id")
		}
		if _, dup := g.byID[id]; dup {
			return nil, loadErrf("node:"+id, "duplicate id")
		}
		var node Node
		switch NodeKind(nd.Kind) {
		case KindSpecialist, KindLeader, KindOrchestrator:
			node = Node{Worker: &WorkerNode{
				ID:           id,
				Kind:         NodeKind(nd.Kind),
				Domain:       nd.Domain,
				Capabilities: nd.Capabilities,
				SkillRef:     nd.SkillRef,
			}}
		case KindTeam:
			node = Node{Team: &TeamNode{
				ID:        id,
				Purpose:   nd.Purpose,
				LeaderID:  nd.Leader,
				MemberIDs: nd.Members,
			}}
		default:
			return nil, loadErrf("node:"+id, "unknown kind %q", nd.Kind)
		}
		g.byID[id] = len(g.nodes)
		g.nodes = append(g.nodes, node)
	}

	// Team references must resolve to worker nodes.
	for _, n := range g.nodes {
		t := n.Team
		if t == nil {
			continue
		}
		if t.LeaderID == "" {
			return nil, loadErrf("node:"+t.ID, "team has no leader")
		}
		if err := g.requireWorker(t.ID, "leader", t.LeaderID); err != nil {
			return nil, err
		}
		if len(t.MemberIDs) == 0 {
			return nil, loadErrf("node:"+t.ID, "team has no members")
		}
		for _, m := range t.MemberIDs {
			if err := g.requireWorker(t.ID, "member", m); err != nil {
				return nil, err
			}
		}
	}

	for _, ed := range doc.Edges {
		elem := "edge:" + ed.From + "->" + ed.To
		kind := EdgeKind(ed.Kind)
		switch kind {
		case EdgeReportsTo, EdgeMemberOf, EdgeRoutesTo, EdgeDependsOn:
		default:
			return nil, loadErrf(elem, "unknown kind %q", ed.Kind)
		}
		if _, ok := g.byID[ed.From]; !ok {
			return nil, loadErrf(elem, "from references unknown node %q", ed.From)
		}
		if _, ok := g.byID[ed.To]; !ok {
			return nil, loadErrf(elem, "to references unknown node %q", ed.To)
		}
		if ed.From == ed.To && kind != EdgeDependsOn {
			return nil, loadErrf(elem, "self-loop not allowed for %s", kind)
		}
		if kind == EdgeRoutesTo && strings.TrimSpace(ed.Condition) == "" {
			return nil, loadErrf(elem, "routes_to edge has no condition")
		}
		g.edges = append(g.edges, Edge{
			From:        ed.From,
			To:          ed.To,
			Kind:        kind,
			Condition:   ed.Condition,
			Priority:    ed.Priority,
			Requirement: ed.Requirement,
		})
	}

	// A cycle in reports_to would make Hierarchy loop forever; reject at load.
	if err := g.checkReportsToCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) requireWorker(teamID, role, id string) error {
	idx, ok := g.byID[id]
	if !ok {
		return loadErrf("node:"+teamID, "%s %q does not exist", role, id)
	}
	if g.nodes[idx].Worker == nil {
		return loadErrf("node:"+teamID, "%s %q is not a worker node", role, id)
	}
	return nil
}

// checkReportsToCycles walks the reports_to chain from every node. Hierarchy
// follows the first declared reports_to edge, so the walk here does the same.
func (g *Graph) checkReportsToCycles() error {
	for _, start := range g.nodes {
		seen := map[string]bool{start.ID(): true}
		cur := start.ID()
		for {
			next, ok := g.reportsTo(cur)
			if !ok {
				break
			}
			if seen[next] {
				return loadErrf("node:"+start.ID(), "reports_to cycle through %q", next)
			}
			seen[next] = true
			cur = next
		}
	}
	return nil
}

func (g *Graph) reportsTo(id string) (string, bool) {
	for _, e := range g.edges {
		if e.Kind == EdgeReportsTo && e.From == id {
			return e.To, true
		}
	}
	return "", false
}
