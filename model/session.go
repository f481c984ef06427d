package model

import "time"

// SessionMode is the chatbot's per-session operating mode.
type SessionMode string

const (
	ModeConversational    SessionMode = "conversational"
	ModeTaskExecution     SessionMode = "task_execution"
	ModeEmergencyResponse SessionMode = "emergency_response"
)

// Intent is the classified purpose of a single chat message.
type Intent string

const (
	IntentGreeting           Intent = "greeting"
	IntentGoodbye            Intent = "goodbye"
	IntentHelp               Intent = "help"
	IntentMaintenanceRequest Intent = "maintenance_request"
	IntentVisitSchedule      Intent = "visit_schedule"
	IntentReservationBook    Intent = "reservation_book"
	IntentPaymentQuery       Intent = "payment_query"
	IntentSecurityReport     Intent = "security_report"
	IntentAutomationRequest  Intent = "automation_request"
	IntentEmergency          Intent = "emergency"
	IntentGeneralQuery       Intent = "general_query"
)

// Message is one entry in a session's conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    Intent    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is an in-progress multi-turn data-collection flow. A session holds
// at most one active task.
type Task struct {
	Type string           `json:"type"`
	Step string           `json:"step"`
	Data ExecutionContext `json:"data"`
}

// ConversationSession is one ongoing chat conversation's state. It is
// mutated only under the owning store's per-session lock; turns within a
// session are strictly sequential.
type ConversationSession struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	UserName    string      `json:"user_name,omitempty"`
	Mode        SessionMode `json:"mode"`
	History     []Message   `json:"history"`
	CurrentTask *Task       `json:"current_task,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
