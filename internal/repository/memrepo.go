// Package repository provides the in-memory record store backing
// create_record and update_record actions.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mcastro2021/barrioflow/model"
)

// knownModels is the closed set of record kinds workflows may touch.
var knownModels = map[string]struct{}{
	"maintenance":     {},
	"visit":           {},
	"reservation":     {},
	"notification":    {},
	"security_report": {},
	"user":            {},
}

// MemRepo is a mutex-guarded in-memory Repository. Records live for the
// process lifetime only.
type MemRepo struct {
	mu      sync.RWMutex
	records map[string]map[string]map[string]any
}

// NewMemRepo creates an empty repository.
func NewMemRepo() *MemRepo {
	return &MemRepo{records: make(map[string]map[string]map[string]any)}
}

// Create implements model.Repository. Unknown model names are rejected.
func (r *MemRepo) Create(_ context.Context, modelName string, fields map[string]any) (string, error) {
	if _, ok := knownModels[modelName]; !ok {
		return "", model.NewInvalidArgumentError(fmt.Sprintf("unknown record model %q", modelName))
	}

	id := uuid.New().String()
	stored := make(map[string]any, len(fields))
	for k, v := range fields {
		stored[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[modelName] == nil {
		r.records[modelName] = make(map[string]map[string]any)
	}
	r.records[modelName][id] = stored
	return id, nil
}

// Update implements model.Repository.
func (r *MemRepo) Update(_ context.Context, modelName, id string, fields map[string]any) error {
	if _, ok := knownModels[modelName]; !ok {
		return model.NewInvalidArgumentError(fmt.Sprintf("unknown record model %q", modelName))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[modelName][id]
	if !ok {
		return model.NewRecordNotFoundError(modelName, id)
	}
	for k, v := range fields {
		record[k] = v
	}
	return nil
}

// Get returns a copy of a stored record.
func (r *MemRepo) Get(modelName, id string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[modelName][id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out, true
}

// Count returns the number of records stored for a model.
func (r *MemRepo) Count(modelName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records[modelName])
}
