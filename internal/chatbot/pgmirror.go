package chatbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcastro2021/barrioflow/model"
)

// PgMirror persists session state to PostgreSQL using pgx/v5. Each save
// upserts the full session as JSON keyed by session id, so a restarted
// process can pick up in-flight tasks.
type PgMirror struct {
	pool *pgxpool.Pool
}

// NewPgMirror creates the mirror and bootstraps its table.
func NewPgMirror(ctx context.Context, pool *pgxpool.Pool) (*PgMirror, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id         TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("create chat_sessions table: %w", err)
	}
	return &PgMirror{pool: pool}, nil
}

// Save upserts the session state.
func (m *PgMirror) Save(ctx context.Context, session model.ConversationSession) error {
	stateJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = m.pool.Exec(ctx, `
		INSERT INTO chat_sessions (id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		session.ID, stateJSON, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", session.ID, err)
	}
	return nil
}

// Load retrieves a mirrored session by id.
func (m *PgMirror) Load(ctx context.Context, sessionID string) (model.ConversationSession, error) {
	var stateJSON []byte
	err := m.pool.QueryRow(ctx,
		`SELECT state FROM chat_sessions WHERE id = $1`,
		sessionID,
	).Scan(&stateJSON)
	if err == pgx.ErrNoRows {
		return model.ConversationSession{}, model.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return model.ConversationSession{}, fmt.Errorf("query session %s: %w", sessionID, err)
	}

	var session model.ConversationSession
	if err := json.Unmarshal(stateJSON, &session); err != nil {
		return model.ConversationSession{}, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return session, nil
}

// HealthCheck reports mirror reachability for the readiness endpoint.
func (m *PgMirror) HealthCheck(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

// NoopMirror discards saves; loads always miss. Used when no durable
// mirror is configured.
type NoopMirror struct{}

// Save implements model.SessionMirror.
func (NoopMirror) Save(context.Context, model.ConversationSession) error { return nil }

// Load implements model.SessionMirror.
func (NoopMirror) Load(_ context.Context, sessionID string) (model.ConversationSession, error) {
	return model.ConversationSession{}, model.NewSessionNotFoundError(sessionID)
}
