package models

// Dispatch states in loop order; HALTED can follow any gate.
const (
	StateReceived         = "RECEIVED"
	StateRiskAssessed     = "RISK_ASSESSED"
	StateReasoningChecked = "REASONING_CHECKED"
	StateRouted           = "ROUTED"
	StateActionChecked    = "ACTION_CHECKED"
	StateExecuted         = "EXECUTED"
	StateOutputChecked    = "OUTPUT_CHECKED"
	StateDone             = "DONE"
	StateHalted           = "HALTED"
)

// Risk levels from lowest to most severe. BLOCKED is not a score tier; it is
// forced by the absolute denylist.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
	RiskBlocked  = "BLOCKED"
)

// Guardrail levels.
const (
	GuardrailReasoning = "reasoning"
	GuardrailAction    = "action"
	GuardrailOutput    = "output"
)

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultListLimit           = 500
	DefaultSSEChannelBuffer    = 256
)
