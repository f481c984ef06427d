package workflow

import (
	"sync"
	"time"

	"github.com/mcastro2021/barrioflow/model"
)

// History is a bounded in-memory list of execution records. When the
// limit is reached the oldest record is evicted first. Records live for
// the process lifetime only.
type History struct {
	mu    sync.RWMutex
	limit int
	order []string
	byID  map[string]model.ExecutionRecord
}

// NewHistory creates a History bounded to limit records.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{
		limit: limit,
		byID:  make(map[string]model.ExecutionRecord),
	}
}

// Append adds a record, evicting the oldest when over the limit.
func (h *History) Append(rec model.ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.byID[rec.ID]; !exists {
		h.order = append(h.order, rec.ID)
	}
	h.byID[rec.ID] = rec

	for len(h.order) > h.limit {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.byID, oldest)
	}
}

// Update applies fn to the stored record, if it still exists (it may have
// been evicted), and returns the updated copy.
func (h *History) Update(id string, fn func(*model.ExecutionRecord)) (model.ExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.byID[id]
	if !ok {
		return model.ExecutionRecord{}, false
	}
	fn(&rec)
	h.byID[id] = rec
	return rec, true
}

// Get returns the record with the given execution ID.
func (h *History) Get(id string) (model.ExecutionRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.byID[id]
	return rec, ok
}

// List returns records in insertion order, optionally filtered by
// workflow ID ("" matches all).
func (h *History) List(workflowID string) []model.ExecutionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]model.ExecutionRecord, 0, len(h.order))
	for _, id := range h.order {
		rec := h.byID[id]
		if workflowID != "" && rec.WorkflowID != workflowID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// Stats summarizes success rate and average latency for one workflow's
// retained executions. In-flight records count toward the total but not
// toward latency.
func (h *History) Stats(workflowID string) model.ExecutionStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := model.ExecutionStats{WorkflowID: workflowID}
	var totalLatency time.Duration
	var finished int

	for _, id := range h.order {
		rec := h.byID[id]
		if rec.WorkflowID != workflowID {
			continue
		}
		stats.Total++
		switch rec.Status {
		case model.ExecutionStatusCompleted:
			stats.Succeeded++
		case model.ExecutionStatusFailed:
			stats.Failed++
		}
		if rec.CompletedAt != nil {
			totalLatency += rec.CompletedAt.Sub(rec.StartedAt)
			finished++
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
	}
	if finished > 0 {
		stats.AvgLatency = totalLatency / time.Duration(finished)
	}
	return stats
}
