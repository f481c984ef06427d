package model

import "time"

// Severity orders alert levels from informational to emergency.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityEmergency
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityEmergency:
		return "emergency"
	}
	return "unknown"
}

// ParseSeverity maps a lowercase severity name to its level. Unknown
// names fall back to warning.
func ParseSeverity(name string) Severity {
	switch name {
	case "info":
		return SeverityInfo
	case "critical":
		return SeverityCritical
	case "emergency":
		return SeverityEmergency
	}
	return SeverityWarning
}

// Alert is a deduplicated threshold-breach notification. Its ID is the
// dedup key: while an alert with the same ID is unresolved, the scheduler
// will not recreate it.
type Alert struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Severity   Severity   `json:"severity"`
	Category   string     `json:"category"`
	Resolved   bool       `json:"resolved"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// AutomationRule maps an external automation-type event to a target
// workflow, with an optional base context merged under the payload.
type AutomationRule struct {
	Type        string           `json:"type"`
	WorkflowID  string           `json:"workflow_id"`
	BaseContext ExecutionContext `json:"base_context,omitempty"`
}
