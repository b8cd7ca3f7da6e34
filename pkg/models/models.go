// Package models provides shared types for the Workforce HTTP API and external
// tools. These types mirror the API JSON and are stable for use by pkg/client
// and other consumers.
package models

import "time"

// Intent is the declared type of an incoming task plus optional free-form
// context forwarded to the routed workers.
type Intent struct {
	Type    string            `json:"type"`
	Context map[string]string `json:"context,omitempty"`
}

// DispatchRequest submits one instruction to the decision loop.
type DispatchRequest struct {
	Instruction string   `json:"instruction"`
	TargetFiles []string `json:"target_files,omitempty"`
	TargetPath  string   `json:"target_path,omitempty"`
	Intent      Intent   `json:"intent"`
	Confirm     bool     `json:"confirm,omitempty"`
}

// RiskProfile is the assessment of one instruction.
type RiskProfile struct {
	Level                string   `json:"level"`
	Score                int      `json:"score"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
	RequiresBackup       bool     `json:"requires_backup"`
	Reasons              []string `json:"reasons,omitempty"`
}

// GuardrailResult is one validation gate outcome.
type GuardrailResult struct {
	Passed bool   `json:"passed"`
	Level  string `json:"level"`
	Reason string `json:"reason,omitempty"`
}

// ExecutorResult is the opaque outcome of the executing collaborator.
type ExecutorResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DispatchResponse is the full outcome of one dispatched request.
type DispatchResponse struct {
	State               string            `json:"state"`
	HaltReason          string            `json:"halt_reason,omitempty"`
	Risk                RiskProfile       `json:"risk"`
	Guardrails          []GuardrailResult `json:"guardrails,omitempty"`
	RoutedWorkers       []string          `json:"routed_workers,omitempty"`
	Executor            *ExecutorResult   `json:"executor,omitempty"`
	CheckpointID        string            `json:"checkpoint_id,omitempty"`
	PendingConfirmation bool              `json:"pending_confirmation,omitempty"`
}

// AnalyzeRequest asks for a risk assessment without dispatching.
type AnalyzeRequest struct {
	Instruction string   `json:"instruction"`
	TargetFiles []string `json:"target_files,omitempty"`
}

// ValidateRequest runs a single guardrail level against the given input.
// Level is "reasoning", "action", or "output". Action fields are read only
// for the action level.
type ValidateRequest struct {
	Level   string `json:"level"`
	Text    string `json:"text,omitempty"`
	Type    string `json:"type,omitempty"`
	Target  string `json:"target,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// RouteRequest resolves an intent against the capability graph.
type RouteRequest struct {
	Intent Intent `json:"intent"`
}

// Worker is one routed worker node.
type Worker struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Domain       []string `json:"domain,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	SkillRef     string   `json:"skill_ref,omitempty"`
}

// HierarchyNode is one step of a reports_to chain.
type HierarchyNode struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// RouteResponse lists the workers an intent resolves to, in route order.
// Empty means no specialist matched; that is a valid outcome, not an error.
type RouteResponse struct {
	Workers []Worker `json:"workers"`
}

// GraphSummary describes the loaded capability graph.
type GraphSummary struct {
	Version string `json:"version"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Workers int    `json:"workers"`
	Teams   int    `json:"teams"`
}

// Checkpoint is one recorded snapshot attempt.
type Checkpoint struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	TargetPath string    `json:"target_path"`
	Files      []string  `json:"files,omitempty"`
	Success    bool      `json:"success"`
}

// Decision is the persisted trail of one dispatched request.
type Decision struct {
	DecisionID    int64     `json:"decision_id"`
	Instruction   string    `json:"instruction"`
	State         string    `json:"state"`
	HaltReason    string    `json:"halt_reason,omitempty"`
	RiskLevel     string    `json:"risk_level"`
	RiskScore     int       `json:"risk_score"`
	RoutedWorkers []string  `json:"routed_workers,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
