package model

import "time"

// Execution status constants.
const (
	ExecutionStatusPending    = "pending"
	ExecutionStatusInProgress = "in_progress"
	ExecutionStatusCompleted  = "completed"
	ExecutionStatusFailed     = "failed"
	ExecutionStatusCancelled  = "cancelled"
)

// ActionKind identifies the side-effecting operation a step performs.
// The set is closed; the dispatcher matches exhaustively and rejects
// anything else as a configuration error.
type ActionKind string

const (
	ActionNotify       ActionKind = "notify"
	ActionCreateRecord ActionKind = "create_record"
	ActionUpdateRecord ActionKind = "update_record"
	ActionCallExternal ActionKind = "call_external"
	ActionWait         ActionKind = "wait"
)

// Valid reports whether k is one of the known action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionNotify, ActionCreateRecord, ActionUpdateRecord, ActionCallExternal, ActionWait:
		return true
	}
	return false
}

// ConditionOp is a comparison operator in a step condition.
type ConditionOp string

const (
	OpEquals      ConditionOp = "equals"
	OpNotEquals   ConditionOp = "not_equals"
	OpGreaterThan ConditionOp = "greater_than"
	OpLessThan    ConditionOp = "less_than"
	OpContains    ConditionOp = "contains"
)

// Condition is a single predicate over the execution context. A condition
// referencing a field absent from the context evaluates to false; the step
// is skipped, not failed.
type Condition struct {
	Field string      `yaml:"field" json:"field"`
	Op    ConditionOp `yaml:"op" json:"op"`
	Value any         `yaml:"value" json:"value"`
}

// Step is one conditional action within a workflow. Param values may be
// literals or "{key}" placeholders resolved against the execution context
// at dispatch time. All conditions must hold (AND) for the step to run.
type Step struct {
	Name       string         `yaml:"name" json:"name"`
	Action     ActionKind     `yaml:"action" json:"action"`
	Params     map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Conditions []Condition    `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// WorkflowDefinition is a named, ordered sequence of steps. Definitions are
// registered once at startup and immutable afterwards.
type WorkflowDefinition struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// ExecutionContext is the mutable key-value scratch space threaded through
// one workflow run. Each execution gets its own instance; contexts are
// never shared across runs.
type ExecutionContext map[string]any

// Clone returns a shallow copy. Nil-safe.
func (ec ExecutionContext) Clone() ExecutionContext {
	out := make(ExecutionContext, len(ec))
	for k, v := range ec {
		out[k] = v
	}
	return out
}

// ExecutionRecord captures one call to Execute: its terminal status,
// timing, and a snapshot of the final context. Records live in the
// engine's bounded in-memory history only.
type ExecutionRecord struct {
	ID          string           `json:"id"`
	WorkflowID  string           `json:"workflow_id"`
	Status      string           `json:"status"`
	Context     ExecutionContext `json:"context,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExecutionStats summarizes the history of one workflow's executions.
type ExecutionStats struct {
	WorkflowID  string        `json:"workflow_id"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	SuccessRate float64       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
}
