package risk

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rahlplx/workforce/internal/store"
)

// CheckpointResult reports a snapshot attempt. Failure is a value, not an
// error: the caller decides whether to proceed without a safety net.
type CheckpointResult struct {
	Success      bool   `json:"success"`
	CheckpointID string `json:"checkpoint_id"`
}

// CheckpointManager snapshots files before risky actions. Snapshots land
// under Dir/<checkpoint-id>/ preserving relative layout, and every attempt
// (including failed ones) is appended to the store. Nothing here ever
// deletes a checkpoint; retention is an external policy.
type CheckpointManager struct {
	Dir   string      // snapshot root, e.g. <home>/checkpoints
	Store store.Store // optional; append-only record per attempt
}

// Create snapshots the listed files under targetPath. Best-effort: a file
// that cannot be copied marks the checkpoint unsuccessful but does not stop
// the remaining copies, and no failure mode panics or returns an error.
//
// The copies run synchronously on the caller's goroutine. A snapshot taken
// after the mutating action starts would have nothing to roll back to, so
// the dispatch waits here; "best-effort" means failures downgrade rather
// than block, not that the work happens in the background.
func (m *CheckpointManager) Create(ctx context.Context, targetPath string, files []string) CheckpointResult {
	id := uuid.NewString()
	ok := true

	dest := filepath.Join(m.Dir, id)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		slog.Warn("checkpoint dir create failed", "checkpoint", id, "err", err)
		ok = false
	} else {
		for _, rel := range files {
			if err := snapshotFile(targetPath, dest, rel); err != nil {
				slog.Warn("checkpoint file snapshot failed", "checkpoint", id, "file", rel, "err", err)
				ok = false
			}
		}
	}

	if m.Store != nil {
		cp := store.Checkpoint{
			ID:         id,
			CreatedAt:  time.Now().UTC(),
			TargetPath: targetPath,
			Files:      files,
			Success:    ok,
		}
		if err := m.Store.AppendCheckpoint(ctx, cp); err != nil {
			slog.Warn("checkpoint record append failed", "checkpoint", id, "err", err)
			ok = false
		}
	}
	return CheckpointResult{Success: ok, CheckpointID: id}
}

// snapshotFile copies targetPath/rel to destDir/rel. Paths escaping the
// target (".." traversal) are refused.
func snapshotFile(targetPath, destDir, rel string) error {
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return os.ErrInvalid
	}
	src := filepath.Join(targetPath, rel)
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	dst := filepath.Join(destDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	_, err = io.Copy(out, in)
	return err
}
