package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcastro2021/barrioflow/model"
)

type fakeCounter map[string]int

func (f fakeCounter) Count(modelName string) int { return f[modelName] }

type fakeLister struct {
	records []model.ExecutionRecord
}

func (f fakeLister) History(string) []model.ExecutionRecord { return f.records }

func TestRegisterDefaultSamplers(t *testing.T) {
	source := NewFuncSource()
	RegisterDefaultSamplers(source,
		fakeCounter{"maintenance": 4, "security_report": 2},
		fakeLister{records: []model.ExecutionRecord{
			{Status: model.ExecutionStatusFailed},
			{Status: model.ExecutionStatusCompleted},
			{Status: model.ExecutionStatusCompleted},
			{Status: model.ExecutionStatusFailed},
		}},
	)

	cases := map[string]float64{
		"pending_maintenance": 4,
		"pending_visits":      0,
		"active_reservations": 0,
		"security_incidents":  2,
		"workflow_error_rate": 0.5,
	}
	for metric, want := range cases {
		got, err := source.Sample(context.Background(), metric)
		require.NoError(t, err, metric)
		assert.Equal(t, want, got, metric)
	}
}

func TestRegisterDefaultSamplers_emptyHistoryHasZeroErrorRate(t *testing.T) {
	source := NewFuncSource()
	RegisterDefaultSamplers(source, fakeCounter{}, fakeLister{})

	got, err := source.Sample(context.Background(), "workflow_error_rate")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestRegisterDefaultSamplers_feedsThresholdChecker(t *testing.T) {
	repo := fakeCounter{"maintenance": 12}
	source := NewFuncSource()
	RegisterDefaultSamplers(source, repo, fakeLister{})

	store := NewAlertStore()
	checker := NewThresholdChecker(source, store, nil, nil, nil, []Rule{{
		Metric:    "pending_maintenance",
		Category:  "mantenimiento",
		Threshold: 10,
		Severity:  model.SeverityWarning,
		Title:     "Mantenimiento acumulado",
		Message:   "Solicitudes de mantenimiento pendientes",
	}})

	checker.Check(context.Background(), time.Now().UTC())
	require.Len(t, checker.Active(), 1)
	assert.Equal(t, "pending_maintenance:mantenimiento", checker.Active()[0].ID)
}
