package store

import (
	"context"
	"testing"
	"time"
)

func open(t *testing.T) Store {
	t.Helper()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCheckpointAppendAndGet(t *testing.T) {
	t.Parallel()
	st := open(t)
	ctx := context.Background()

	cp := Checkpoint{
		ID:         "cp-1",
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
		TargetPath: "/work/project",
		Files:      []string{"main.go", "config/app.yaml"},
		Success:    true,
	}
	if err := st.AppendCheckpoint(ctx, cp); err != nil {
		t.Fatalf("AppendCheckpoint: %v", err)
	}

	got, err := st.GetCheckpoint(ctx, "cp-1")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if got == nil {
		t.Fatal("checkpoint not found")
	}
	if got.TargetPath != cp.TargetPath || !got.Success || len(got.Files) != 2 || got.Files[1] != "config/app.yaml" {
		t.Fatalf("got %+v", got)
	}
	if !got.CreatedAt.Equal(cp.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, cp.CreatedAt)
	}

	missing, err := st.GetCheckpoint(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing lookup = %v, %v", missing, err)
	}
}

func TestCheckpointAppendRejectsEmptyID(t *testing.T) {
	t.Parallel()
	st := open(t)
	if err := st.AppendCheckpoint(context.Background(), Checkpoint{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestCheckpointAppendIsAppendOnly(t *testing.T) {
	t.Parallel()
	st := open(t)
	ctx := context.Background()

	cp := Checkpoint{ID: "cp-dup", TargetPath: "/x", Files: []string{"a"}}
	if err := st.AppendCheckpoint(ctx, cp); err != nil {
		t.Fatalf("AppendCheckpoint: %v", err)
	}
	// A second append with the same id must not silently overwrite.
	if err := st.AppendCheckpoint(ctx, cp); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestDecisionsRoundTrip(t *testing.T) {
	t.Parallel()
	st := open(t)
	ctx := context.Background()

	for i, state := range []string{"DONE", "HALTED", "ROUTED"} {
		id, err := st.AppendDecision(ctx, Decision{
			Instruction:   "task",
			State:         state,
			HaltReason:    map[bool]string{true: "reasoning-guardrail", false: ""}[state == "HALTED"],
			RiskLevel:     "LOW",
			RiskScore:     i,
			RoutedWorkers: []string{"researcher", "analyst"},
		})
		if err != nil {
			t.Fatalf("AppendDecision: %v", err)
		}
		if id <= 0 {
			t.Fatalf("decision id = %d", id)
		}
	}

	got, err := st.ListDecisions(ctx, 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("decisions = %d", len(got))
	}
	// Newest first.
	if got[0].State != "ROUTED" || got[2].State != "DONE" {
		t.Fatalf("order wrong: %+v", got)
	}
	if got[1].HaltReason != "reasoning-guardrail" {
		t.Fatalf("halt reason = %q", got[1].HaltReason)
	}
	if len(got[0].RoutedWorkers) != 2 || got[0].RoutedWorkers[0] != "researcher" {
		t.Fatalf("routed = %v", got[0].RoutedWorkers)
	}
}

func TestCountDecisionsByState(t *testing.T) {
	t.Parallel()
	st := open(t)
	ctx := context.Background()

	empty, err := st.CountDecisionsByState(ctx)
	if err != nil {
		t.Fatalf("CountDecisionsByState: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("counts on empty store = %v", empty)
	}

	for _, state := range []string{"DONE", "DONE", "HALTED", "ROUTED"} {
		if _, err := st.AppendDecision(ctx, Decision{
			Instruction: "task",
			State:       state,
			RiskLevel:   "LOW",
		}); err != nil {
			t.Fatalf("AppendDecision: %v", err)
		}
	}

	counts, err := st.CountDecisionsByState(ctx)
	if err != nil {
		t.Fatalf("CountDecisionsByState: %v", err)
	}
	if counts["DONE"] != 2 || counts["HALTED"] != 1 || counts["ROUTED"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestListCheckpointsLimit(t *testing.T) {
	t.Parallel()
	st := open(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 5; i++ {
		cp := Checkpoint{
			ID:         "cp-" + string(rune('a'+i)),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			TargetPath: "/x",
			Files:      []string{"f"},
			Success:    true,
		}
		if err := st.AppendCheckpoint(ctx, cp); err != nil {
			t.Fatalf("AppendCheckpoint: %v", err)
		}
	}
	got, err := st.ListCheckpoints(ctx, 3)
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID != "cp-e" {
		t.Fatalf("newest first expected, got %+v", got[0])
	}
}
