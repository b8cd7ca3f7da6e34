package executor

import (
	"context"
	"time"

	"github.com/rahlplx/workforce/internal/guardrail"
)

// Stub is a deterministic local executor that emits plausible events without
// spawning subprocesses or calling any external service. Used in tests and
// as the default when no executor is configured.
type Stub struct{}

func (Stub) Name() string { return "stub" }

// Propose intends a plain textual response; the payload mirrors the
// instruction so the action guardrail sees exactly what would be echoed.
func (Stub) Propose(ctx context.Context, req Request) (guardrail.Action, error) {
	return guardrail.Action{Type: "respond", Target: "caller", Payload: req.Instruction}, nil
}

func (Stub) Execute(ctx context.Context, action guardrail.Action, req Request, emit func(Event)) (Result, error) {
	now := time.Now().UTC()
	emit(Event{Type: "execution_started", Timestamp: now, Data: map[string]any{"workers": req.Workers}})
	for _, w := range req.Workers {
		emit(Event{Type: "worker_activity", Worker: w, Timestamp: time.Now().UTC(), Data: map[string]any{
			"summary": "stub executor simulated a turn",
		}})
	}
	emit(Event{Type: "execution_ended", Timestamp: time.Now().UTC()})
	return Result{Success: true, Output: "stub: ok"}, nil
}
