// Package store defines append-only persistence for checkpoints and
// dispatch decisions. Rows are appended, never rewritten in place.
package store

import "time"

// Checkpoint is one snapshot attempt recorded before a risky action.
// Records are immutable after creation.
type Checkpoint struct {
	ID         string
	CreatedAt  time.Time
	TargetPath string
	Files      []string // relative paths, in snapshot order
	Success    bool
}

// Decision is the persisted trail of one dispatched request: terminal state,
// halt reason if any, and what the risk assessor and router said.
type Decision struct {
	DecisionID    int64
	Instruction   string
	State         string
	HaltReason    string
	RiskLevel     string
	RiskScore     int
	RoutedWorkers []string
	CreatedAt     time.Time
}
