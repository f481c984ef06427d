package model

import (
	"context"
	"time"
)

// Repository persists records created or updated by workflow actions.
// Implementations are expected to reject unknown model names with a typed
// error rather than accept arbitrary tables.
type Repository interface {
	// Create stores a new record and returns its generated ID.
	Create(ctx context.Context, model string, fields map[string]any) (string, error)

	// Update applies fields to an existing record.
	Update(ctx context.Context, model, id string, fields map[string]any) error
}

// Notifier delivers a message to a set of recipients over a channel
// (internal, email, whatsapp). Delivery is best-effort.
type Notifier interface {
	Send(ctx context.Context, recipients []string, title, body, channel string) error
}

// RecipientResolver expands a role group name (e.g. "maintenance_team",
// "all_residents") into concrete recipients.
type RecipientResolver interface {
	Resolve(ctx context.Context, roleOrID string) ([]string, error)
}

// IntentClassifier maps a chat message to an Intent.
type IntentClassifier interface {
	Classify(text string) Intent
}

// ExternalCall is a named external integration invoked by call_external
// steps. Failures propagate as the step's failure.
type ExternalCall func(ctx context.Context, params map[string]any) error

// MetricsSource samples a named metric for threshold checks.
type MetricsSource interface {
	Sample(ctx context.Context, metric string) (float64, error)
}

// Clock abstracts time for deterministic scheduler tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}

// SessionMirror persists a session's full state after each turn so a
// restart can rehydrate in-flight tasks.
type SessionMirror interface {
	Save(ctx context.Context, session ConversationSession) error
	Load(ctx context.Context, sessionID string) (ConversationSession, error)
}
