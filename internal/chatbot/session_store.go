package chatbot

import (
	"sync"

	"github.com/mcastro2021/barrioflow/model"
)

// sessionEntry pairs a session with its own lock. Turns within one
// session are strictly sequential; different sessions never contend.
type sessionEntry struct {
	mu      sync.Mutex
	session model.ConversationSession
}

// SessionStore holds active sessions in memory. The outer lock only
// guards the map; per-turn work runs under the entry lock.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]*sessionEntry)}
}

// Put inserts or replaces a session.
func (s *SessionStore) Put(session model.ConversationSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[session.ID]; ok {
		entry.mu.Lock()
		entry.session = session
		entry.mu.Unlock()
		return
	}
	s.entries[session.ID] = &sessionEntry{session: session}
}

// Get returns a snapshot of a session.
func (s *SessionStore) Get(id string) (model.ConversationSession, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return model.ConversationSession{}, model.NewSessionNotFoundError(id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session, nil
}

// WithSession runs fn against the session under its entry lock. The
// session state fn leaves behind is what subsequent turns observe.
func (s *SessionStore) WithSession(id string, fn func(*model.ConversationSession) error) error {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return model.NewSessionNotFoundError(id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(&entry.session)
}

// Delete removes a session and returns its final state.
func (s *SessionStore) Delete(id string) (model.ConversationSession, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return model.ConversationSession{}, model.NewSessionNotFoundError(id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session, nil
}

// Len returns the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
