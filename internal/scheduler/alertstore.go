// Package scheduler runs interval-bound workflow jobs and metric
// threshold checks, raising deduplicated alerts on breaches.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/mcastro2021/barrioflow/model"
)

// AlertStore holds alerts keyed by dedup ID. An unresolved alert blocks
// re-creation under the same ID until Resolve reopens the gate.
type AlertStore struct {
	mu     sync.Mutex
	alerts map[string]model.Alert
}

// NewAlertStore creates an empty alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[string]model.Alert)}
}

// CreateIfAbsent stores the alert unless an unresolved alert with the
// same ID exists. It reports whether the alert was stored.
func (s *AlertStore) CreateIfAbsent(alert model.Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.alerts[alert.ID]; ok && !existing.Resolved {
		return false
	}
	s.alerts[alert.ID] = alert
	return true
}

// Resolve marks the alert resolved at the given time.
func (s *AlertStore) Resolve(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[id]
	if !ok {
		return model.NewRecordNotFoundError("alert", id)
	}
	if alert.Resolved {
		return model.NewConflictError("alert " + id + " is already resolved")
	}
	alert.Resolved = true
	alert.ResolvedAt = &at
	s.alerts[id] = alert
	return nil
}

// Get returns an alert by ID.
func (s *AlertStore) Get(id string) (model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[id]
	return alert, ok
}

// Active lists unresolved alerts, newest first.
func (s *AlertStore) Active() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alert
	for _, alert := range s.alerts {
		if !alert.Resolved {
			out = append(out, alert)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
