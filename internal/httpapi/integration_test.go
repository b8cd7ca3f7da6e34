package httpapi

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rahlplx/workforce/pkg/client"
	"github.com/rahlplx/workforce/pkg/models"
)

// End-to-end over a real listener with the typed client.
func TestClientAgainstServer(t *testing.T) {
	app := newTestApp(t, ServerOptions{APIKey: "k"})
	srv := httptest.NewServer(app.Server.Handler)
	defer srv.Close()

	c := client.New(srv.URL, "k")
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	sum, err := c.GraphSummary(ctx)
	if err != nil {
		t.Fatalf("GraphSummary: %v", err)
	}
	if sum.Workers != 3 || sum.Teams != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	route, err := c.Route(ctx, models.Intent{Type: "analysis"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(route.Workers) != 1 || route.Workers[0].ID != "analyst" {
		t.Fatalf("route = %+v", route)
	}

	resp, err := c.Dispatch(ctx, models.DispatchRequest{
		Instruction: "summarize the quarterly metrics",
		Intent:      models.Intent{Type: "analysis"},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.State != models.StateDone {
		t.Fatalf("state = %s", resp.State)
	}

	ds, err := c.ListDecisions(ctx, 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(ds) != 1 {
		t.Fatalf("decisions = %+v", ds)
	}

	journal, err := c.Journal(ctx, 0)
	if err != nil {
		t.Fatalf("Journal: %v", err)
	}
	if !strings.Contains(journal, "summarize the quarterly metrics") {
		t.Fatalf("journal = %q", journal)
	}

	ws, err := c.FindWorkers(ctx, "", "metrics")
	if err != nil {
		t.Fatalf("FindWorkers: %v", err)
	}
	if len(ws) != 1 || ws[0].ID != "analyst" {
		t.Fatalf("workers = %+v", ws)
	}

	chain, err := c.Hierarchy(ctx, "analyst")
	if err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}
	if len(chain) != 2 || chain[1].ID != "lead" {
		t.Fatalf("chain = %+v", chain)
	}

	p, err := c.Analyze(ctx, models.AnalyzeRequest{Instruction: "wipe the fixtures"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p.Level != models.RiskMedium {
		t.Fatalf("profile = %+v", p)
	}

	// Wrong key surfaces the server's error body.
	bad := client.New(srv.URL, "wrong")
	if _, err := bad.ListDecisions(ctx, 1); err == nil {
		t.Fatal("expected auth error")
	}
}
