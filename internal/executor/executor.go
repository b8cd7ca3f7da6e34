// Package executor defines the collaborator that performs the actual effect
// of a dispatched request. The decision core never inspects how the effect
// happens; it only proposes, validates, and forwards.
package executor

import (
	"context"
	"time"

	"github.com/rahlplx/workforce/internal/guardrail"
)

// Event is a progress notification emitted while executing.
type Event struct {
	Type      string         `json:"type"`
	Worker    string         `json:"worker,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Request is what the pipeline hands the executor: the instruction and the
// routed worker ids (possibly empty; "no specialist matched" is handled
// generically by the executor, not treated as an error upstream).
type Request struct {
	Instruction string   `json:"instruction"`
	IntentType  string   `json:"intent_type,omitempty"`
	Workers     []string `json:"workers,omitempty"`
}

// Result is the executor's opaque outcome. Err carries the collaborator's
// failure text; the core surfaces it without interpreting it.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Executor performs effects. Propose states the concrete action it intends
// to take so the action guardrail can inspect it before Execute runs.
type Executor interface {
	Name() string
	Propose(ctx context.Context, req Request) (guardrail.Action, error)
	Execute(ctx context.Context, action guardrail.Action, req Request, emit func(Event)) (Result, error)
}
