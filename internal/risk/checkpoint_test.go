package risk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rahlplx/workforce/internal/store"
)

func TestCheckpointCreateSnapshotsFiles(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	target := filepath.Join(home, "project")
	if err := os.MkdirAll(filepath.Join(target, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "config", "app.yaml"), []byte("a: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(home)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = st.Close() }()

	m := &CheckpointManager{Dir: filepath.Join(home, "checkpoints"), Store: st}
	res := m.Create(context.Background(), target, []string{"main.go", "config/app.yaml"})
	if !res.Success || res.CheckpointID == "" {
		t.Fatalf("result = %+v", res)
	}

	snap := filepath.Join(home, "checkpoints", res.CheckpointID, "config", "app.yaml")
	data, err := os.ReadFile(snap)
	if err != nil || string(data) != "a: 1\n" {
		t.Fatalf("snapshot content = %q, err %v", data, err)
	}

	rec, err := st.GetCheckpoint(context.Background(), res.CheckpointID)
	if err != nil || rec == nil {
		t.Fatalf("record lookup: %v, %v", rec, err)
	}
	if !rec.Success || rec.TargetPath != target || len(rec.Files) != 2 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestCheckpointCreateReportsMissingFile(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	st, err := store.Open(home)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = st.Close() }()

	m := &CheckpointManager{Dir: filepath.Join(home, "checkpoints"), Store: st}
	res := m.Create(context.Background(), filepath.Join(home, "nope"), []string{"ghost.txt"})
	if res.Success {
		t.Fatalf("expected success=false: %+v", res)
	}
	if res.CheckpointID == "" {
		t.Fatal("a failed attempt still gets an id")
	}

	// Failed attempts are still recorded in the append-only log.
	rec, err := st.GetCheckpoint(context.Background(), res.CheckpointID)
	if err != nil || rec == nil {
		t.Fatalf("record lookup: %v, %v", rec, err)
	}
	if rec.Success {
		t.Fatalf("record should be unsuccessful: %+v", rec)
	}
}

func TestCheckpointRefusesPathTraversal(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	target := filepath.Join(home, "project")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(home, "outside.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &CheckpointManager{Dir: filepath.Join(home, "checkpoints")}
	res := m.Create(context.Background(), target, []string{"../outside.txt"})
	if res.Success {
		t.Fatal("traversal should mark the checkpoint unsuccessful")
	}
}

func TestCheckpointWorksWithoutStore(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	target := filepath.Join(home, "p")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := &CheckpointManager{Dir: filepath.Join(home, "checkpoints")}
	if res := m.Create(context.Background(), target, []string{"f"}); !res.Success {
		t.Fatalf("result = %+v", res)
	}
}
