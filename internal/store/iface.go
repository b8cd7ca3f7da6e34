package store

import "context"

// Store is the persistence interface for the checkpoint and decision logs.
// Implementations: the SQLite store returned by Open (default) and
// *postgres.Store (PostgreSQL). Both are append-only: no update or delete
// operations exist.
type Store interface {
	// Checkpoints
	AppendCheckpoint(ctx context.Context, cp Checkpoint) error
	GetCheckpoint(ctx context.Context, id string) (*Checkpoint, error)
	ListCheckpoints(ctx context.Context, limit int) ([]Checkpoint, error)

	// Decisions
	AppendDecision(ctx context.Context, d Decision) (int64, error)
	ListDecisions(ctx context.Context, limit int) ([]Decision, error)
	CountDecisionsByState(ctx context.Context) (map[string]int64, error)

	Close() error
}
