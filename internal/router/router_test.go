package router

import (
	"strings"
	"testing"

	"github.com/rahlplx/workforce/internal/graph"
)

func load(t *testing.T, doc string) *graph.Graph {
	t.Helper()
	g, err := graph.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return g
}

const routingDoc = `
nodes:
  - {id: researcher, kind: specialist, domain: [research]}
  - {id: analyst, kind: specialist, domain: [analysis]}
  - {id: writer, kind: specialist, domain: [writing]}
  - {id: lead, kind: leader, domain: [research]}
  - {id: coordinator, kind: orchestrator}
  - id: research-team
    kind: team
    purpose: Investigations
    leader: lead
    members: [researcher, analyst, writer]
edges:
  - {from: coordinator, to: research-team, kind: routes_to, condition: research, priority: 1}
  - {from: coordinator, to: writer, kind: routes_to, condition: writing, priority: 1}
  - {from: coordinator, to: analyst, kind: routes_to, condition: research, priority: 5}
`

func TestRouteToTeamExpandsMembers(t *testing.T) {
	t.Parallel()
	g := load(t, routingDoc)
	got := Route(g, Intent{Type: "research"})
	want := []string{"researcher", "analyst", "writer"}
	ids := WorkerIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("route = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("route = %v, want %v", ids, want)
		}
	}
}

func TestRouteToWorker(t *testing.T) {
	t.Parallel()
	g := load(t, routingDoc)
	got := Route(g, Intent{Type: "writing"})
	if len(got) != 1 || got[0].ID != "writer" {
		t.Fatalf("route = %+v", got)
	}
}

func TestRoutePrefersLowestPriority(t *testing.T) {
	t.Parallel()
	// The priority-5 edge to analyst matches "research" too, but the
	// priority-1 team edge must win regardless of declaration order.
	g := load(t, `
nodes:
  - {id: analyst, kind: specialist}
  - {id: researcher, kind: specialist}
  - {id: hub, kind: orchestrator}
edges:
  - {from: hub, to: analyst, kind: routes_to, condition: research, priority: 5}
  - {from: hub, to: researcher, kind: routes_to, condition: research, priority: 1}
`)
	got := Route(g, Intent{Type: "research"})
	if len(got) != 1 || got[0].ID != "researcher" {
		t.Fatalf("route = %+v", got)
	}
}

func TestRouteTieBreak(t *testing.T) {
	t.Parallel()
	// Equal priority: the edge declared first wins.
	g := load(t, `
nodes:
  - {id: first, kind: specialist}
  - {id: second, kind: specialist}
  - {id: hub, kind: orchestrator}
edges:
  - {from: hub, to: first, kind: routes_to, condition: deploy, priority: 3}
  - {from: hub, to: second, kind: routes_to, condition: deploy, priority: 3}
`)
	got := Route(g, Intent{Type: "deploy"})
	if len(got) != 1 || got[0].ID != "first" {
		t.Fatalf("route = %+v", got)
	}
}

func TestRouteNoMatchIsEmpty(t *testing.T) {
	t.Parallel()
	g := load(t, routingDoc)
	if got := Route(g, Intent{Type: "gardening"}); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
	if got := Route(g, Intent{}); got != nil {
		t.Fatalf("empty intent should not route, got %+v", got)
	}
	if got := Route(nil, Intent{Type: "research"}); got != nil {
		t.Fatalf("nil graph should not route, got %+v", got)
	}
}

func TestRouteDeterminism(t *testing.T) {
	t.Parallel()
	g := load(t, routingDoc)
	first := WorkerIDs(Route(g, Intent{Type: "research"}))
	for i := 0; i < 20; i++ {
		again := WorkerIDs(Route(g, Intent{Type: "research"}))
		if strings.Join(again, ",") != strings.Join(first, ",") {
			t.Fatalf("route changed between calls: %v vs %v", again, first)
		}
	}
}

func TestRouteSubstringCondition(t *testing.T) {
	t.Parallel()
	g := load(t, routingDoc)
	// Intent "research-task" contains the condition "research".
	got := Route(g, Intent{Type: "research-task"})
	if len(got) != 3 {
		t.Fatalf("route = %+v", got)
	}
}
