// Package pipeline runs the decision loop for one dispatched request: assess
// risk, gate the stated intent, route to workers, gate the proposed action,
// execute, gate the output. Every request walks the same stations in the same
// order; a failed gate halts the walk and records why.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rahlplx/workforce/internal/alerts"
	"github.com/rahlplx/workforce/internal/audit"
	"github.com/rahlplx/workforce/internal/executor"
	"github.com/rahlplx/workforce/internal/graph"
	"github.com/rahlplx/workforce/internal/guardrail"
	"github.com/rahlplx/workforce/internal/otel"
	"github.com/rahlplx/workforce/internal/risk"
	"github.com/rahlplx/workforce/internal/router"
	"github.com/rahlplx/workforce/internal/store"
)

// State is the request's position in the loop.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateRiskAssessed     State = "RISK_ASSESSED"
	StateReasoningChecked State = "REASONING_CHECKED"
	StateRouted           State = "ROUTED"
	StateActionChecked    State = "ACTION_CHECKED"
	StateExecuted         State = "EXECUTED"
	StateOutputChecked    State = "OUTPUT_CHECKED"
	StateDone             State = "DONE"
	StateHalted           State = "HALTED"
)

// Halt reasons; each names the station that stopped the request.
const (
	HaltBlockedByRisk      = "blocked-by-risk"
	HaltReasoningGuardrail = "reasoning-guardrail"
	HaltActionGuardrail    = "action-guardrail"
	HaltOutputGuardrail    = "output-guardrail"
)

// Request is one instruction to dispatch.
type Request struct {
	Instruction string        `json:"instruction"`
	TargetFiles []string      `json:"target_files,omitempty"`
	TargetPath  string        `json:"target_path,omitempty"` // checkpoint root, "." if empty
	Intent      router.Intent `json:"intent"`
}

// Response is the full dispatch outcome. Guardrails carries every check that
// ran, passed or failed, in execution order.
type Response struct {
	State               State              `json:"state"`
	HaltReason          string             `json:"halt_reason,omitempty"`
	Risk                risk.Profile       `json:"risk"`
	Guardrails          []guardrail.Result `json:"guardrails,omitempty"`
	RoutedWorkers       []string           `json:"routed_workers,omitempty"`
	Executor            *executor.Result   `json:"executor,omitempty"`
	CheckpointID        string             `json:"checkpoint_id,omitempty"`
	PendingConfirmation bool               `json:"pending_confirmation,omitempty"`
}

// Halted reports whether a gate stopped the request.
func (r Response) Halted() bool { return r.State == StateHalted }

// Engine wires the stations together. Graphs, Assessor, and Guards are
// required; everything else is optional and skipped when nil.
type Engine struct {
	Graphs      *graph.Holder
	Assessor    *risk.Assessor
	Guards      *guardrail.Pipeline
	Checkpoints *risk.CheckpointManager
	Exec        executor.Executor
	Journal     *audit.Journal
	Store       store.Store
	Alerts      *alerts.Registry

	// Confirm resolves the confirmation requirement for HIGH and CRITICAL
	// requests. Nil means nobody can confirm: such requests hold at ROUTED.
	Confirm func(risk.Profile) bool

	// Emit receives execution progress events, e.g. for the SSE hub.
	Emit func(executor.Event)
}

// Dispatch walks one request through the loop. The returned error covers
// malformed input and executor failures only; halting at a gate is a normal
// outcome reported in the response.
func (e *Engine) Dispatch(ctx context.Context, req Request) (Response, error) {
	if e.Graphs == nil || e.Assessor == nil || e.Guards == nil {
		return Response{}, errors.New("pipeline: graph holder, assessor, and guardrails are required")
	}
	if req.Instruction == "" {
		return Response{}, errors.New("pipeline: instruction is required")
	}
	start := time.Now()
	resp := Response{State: StateReceived}

	// Risk first: a blocked instruction must not reach routing or execution.
	resp.Risk = e.Assessor.Analyze(risk.Request{Instruction: req.Instruction, TargetFiles: req.TargetFiles})
	resp.State = StateRiskAssessed
	otel.RecordRiskAssessment(ctx, string(resp.Risk.Level))
	if resp.Risk.Blocked() {
		e.halt(ctx, &resp, req, HaltBlockedByRisk, start)
		return resp, nil
	}

	if res := e.Guards.ValidateReasoning(req.Instruction); !recordCheck(ctx, &resp, res) {
		e.halt(ctx, &resp, req, HaltReasoningGuardrail, start)
		return resp, nil
	}
	resp.State = StateReasoningChecked

	workers := router.Route(e.Graphs.Current(), req.Intent)
	resp.RoutedWorkers = router.WorkerIDs(workers)
	resp.State = StateRouted

	// Confirmation holds the request at ROUTED; it is a pause, not a halt.
	if resp.Risk.RequiresConfirmation && (e.Confirm == nil || !e.Confirm(resp.Risk)) {
		resp.PendingConfirmation = true
		e.finish(ctx, resp, req, start)
		return resp, nil
	}

	if resp.Risk.RequiresBackup && e.Checkpoints != nil {
		target := req.TargetPath
		if target == "" {
			target = "."
		}
		cp := e.Checkpoints.Create(ctx, target, req.TargetFiles)
		resp.CheckpointID = cp.CheckpointID
		otel.RecordCheckpoint(ctx, cp.Success)
		if !cp.Success {
			slog.Warn("dispatch proceeding with failed checkpoint", "checkpoint", cp.CheckpointID)
		}
	}

	exec := e.Exec
	if exec == nil {
		exec = executor.Stub{}
	}
	execReq := executor.Request{
		Instruction: req.Instruction,
		IntentType:  req.Intent.Type,
		Workers:     resp.RoutedWorkers,
	}
	action, err := exec.Propose(ctx, execReq)
	if err != nil {
		return resp, err
	}
	if res := e.Guards.ValidateAction(action); !recordCheck(ctx, &resp, res) {
		e.halt(ctx, &resp, req, HaltActionGuardrail, start)
		return resp, nil
	}
	resp.State = StateActionChecked

	result, err := exec.Execute(ctx, action, execReq, e.emit)
	if err != nil {
		return resp, err
	}
	resp.Executor = &result
	resp.State = StateExecuted

	if res := e.Guards.ValidateOutput(result.Output); !recordCheck(ctx, &resp, res) {
		// Never surface output that tripped the secret scan.
		resp.Executor.Output = ""
		e.halt(ctx, &resp, req, HaltOutputGuardrail, start)
		return resp, nil
	}
	resp.State = StateOutputChecked

	resp.State = StateDone
	e.finish(ctx, resp, req, start)
	return resp, nil
}

func (e *Engine) emit(ev executor.Event) {
	if e.Emit != nil {
		e.Emit(ev)
	}
}

// recordCheck appends the result and reports whether it passed.
func recordCheck(ctx context.Context, resp *Response, res guardrail.Result) bool {
	resp.Guardrails = append(resp.Guardrails, res)
	if !res.Passed {
		otel.RecordGuardrailFailure(ctx, string(res.Level), res.Reason)
	}
	return res.Passed
}

func (e *Engine) halt(ctx context.Context, resp *Response, req Request, reason string, start time.Time) {
	resp.State = StateHalted
	resp.HaltReason = reason
	if e.Alerts != nil {
		e.Alerts.NotifyAll(ctx, alerts.HaltAlert(req.Instruction, reason, string(resp.Risk.Level)))
	}
	e.finish(ctx, *resp, req, start)
}

// finish records the terminal (or held) outcome everywhere it belongs. All
// sinks are best-effort: persistence trouble is logged, never bounced back to
// the caller after the decision is already made.
func (e *Engine) finish(ctx context.Context, resp Response, req Request, start time.Time) {
	now := time.Now().UTC()
	otel.RecordDispatch(ctx, string(resp.State), time.Since(start))

	if e.Store != nil {
		_, err := e.Store.AppendDecision(ctx, store.Decision{
			Instruction:   req.Instruction,
			State:         string(resp.State),
			HaltReason:    resp.HaltReason,
			RiskLevel:     string(resp.Risk.Level),
			RiskScore:     resp.Risk.Score,
			RoutedWorkers: resp.RoutedWorkers,
			CreatedAt:     now,
		})
		if err != nil {
			slog.Warn("decision append failed", "err", err)
		}
	}
	if e.Journal != nil {
		err := e.Journal.Append(ctx, audit.Entry{
			Instruction:   req.Instruction,
			State:         string(resp.State),
			HaltReason:    resp.HaltReason,
			RiskLevel:     string(resp.Risk.Level),
			RiskScore:     resp.Risk.Score,
			RoutedWorkers: resp.RoutedWorkers,
			CheckpointID:  resp.CheckpointID,
			CreatedAt:     now,
		})
		if err != nil {
			slog.Warn("journal append failed", "err", err)
		}
	}
	e.emit(executor.Event{
		Type:      "dispatch_" + lowerState(resp.State),
		Timestamp: now,
		Data: map[string]any{
			"state":       string(resp.State),
			"halt_reason": resp.HaltReason,
			"risk_level":  string(resp.Risk.Level),
			"workers":     resp.RoutedWorkers,
		},
	})
}

func lowerState(s State) string {
	switch s {
	case StateDone:
		return "done"
	case StateHalted:
		return "halted"
	default:
		return "held"
	}
}
