package scheduler

import (
	"context"

	"github.com/mcastro2021/barrioflow/model"
)

// RecordCounter reports how many records a model currently holds.
// Implemented by the in-memory repository.
type RecordCounter interface {
	Count(modelName string) int
}

// ExecutionLister exposes retained execution records. Implemented by
// the workflow engine ("" lists every workflow).
type ExecutionLister interface {
	History(workflowID string) []model.ExecutionRecord
}

// RegisterDefaultSamplers installs the built-in metric samplers over
// the in-process stores, so threshold rules on these metrics work out
// of the box: open record counts per model, and the failure rate of
// retained workflow executions.
func RegisterDefaultSamplers(source *FuncSource, counter RecordCounter, execs ExecutionLister) {
	counts := map[string]string{
		"pending_maintenance": "maintenance",
		"pending_visits":      "visit",
		"active_reservations": "reservation",
		"security_incidents":  "security_report",
	}
	for metric, modelName := range counts {
		name := modelName
		source.Register(metric, func(context.Context) (float64, error) {
			return float64(counter.Count(name)), nil
		})
	}

	source.Register("workflow_error_rate", func(context.Context) (float64, error) {
		records := execs.History("")
		if len(records) == 0 {
			return 0, nil
		}
		failed := 0
		for _, rec := range records {
			if rec.Status == model.ExecutionStatusFailed {
				failed++
			}
		}
		return float64(failed) / float64(len(records)), nil
	})
}
