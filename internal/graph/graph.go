// Package graph defines the capability graph: workers, teams, and the typed
// edges between them. A Graph is immutable after Load; concurrent readers
// share it without locking and a reload swaps the whole object (see Holder).
package graph

// NodeKind discriminates worker flavors and teams.
type NodeKind string

const (
	KindSpecialist   NodeKind = "specialist"
	KindLeader       NodeKind = "leader"
	KindOrchestrator NodeKind = "orchestrator"
	KindTeam         NodeKind = "team"
)

// WorkerNode is a routable unit of capability (specialist, leader, or orchestrator).
type WorkerNode struct {
	ID           string
	Kind         NodeKind
	Domain       []string // topic keywords
	Capabilities []string // ability keywords
	SkillRef     string   // opaque pointer to external skill content; not interpreted here
}

// TeamNode is a named group of workers with a designated leader.
type TeamNode struct {
	ID        string
	Purpose   string // free text, not machine-interpreted
	LeaderID  string
	MemberIDs []string // display order; duplicates are not meaningful
}

// Node is a tagged union: exactly one of Worker or Team is non-nil.
// Consumers switch on which side is set rather than probing fields.
type Node struct {
	Worker *WorkerNode
	Team   *TeamNode
}

// ID returns the node's stable identifier.
func (n Node) ID() string {
	if n.Worker != nil {
		return n.Worker.ID
	}
	if n.Team != nil {
		return n.Team.ID
	}
	return ""
}

// Kind returns the node kind (team for team nodes).
func (n Node) Kind() NodeKind {
	if n.Worker != nil {
		return n.Worker.Kind
	}
	if n.Team != nil {
		return KindTeam
	}
	return ""
}

// EdgeKind discriminates edge relations.
type EdgeKind string

const (
	EdgeReportsTo EdgeKind = "reports_to"
	EdgeMemberOf  EdgeKind = "member_of"
	EdgeRoutesTo  EdgeKind = "routes_to"
	EdgeDependsOn EdgeKind = "depends_on"
)

// Edge is a directed relation between two node ids. Condition and Priority
// are meaningful only for routes_to; Requirement only for depends_on.
type Edge struct {
	From string
	To   string
	Kind EdgeKind

	Condition   string // intent tags this routing edge satisfies
	Priority    int    // lower evaluates first; declaration order breaks ties
	Requirement string // advisory only
}

// Graph is the loaded capability graph. Node and edge order is the source
// declaration order, which query results preserve for determinism.
type Graph struct {
	Version string
	nodes   []Node
	edges   []Edge
	byID    map[string]int
}

// Nodes returns all nodes in declaration order. The slice must not be mutated.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns all edges in declaration order. The slice must not be mutated.
func (g *Graph) Edges() []Edge { return g.edges }
