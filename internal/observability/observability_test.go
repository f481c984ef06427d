package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcastro2021/barrioflow/internal/config"
)

func TestNewLogger_invalidLevelFallsBack(t *testing.T) {
	logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "chatty"})
	if err != nil {
		t.Fatalf("NewLogger error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestInitMetrics_registersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	if m.WorkflowExecutionsTotal == nil || m.ChatTurnsTotal == nil {
		t.Fatal("instruments not initialized")
	}

	m.WorkflowExecutionsTotal.WithLabelValues("wf", "completed").Inc()
	m.ChatSessionsActive.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error { return errors.New("down") }

func TestHandleReady(t *testing.T) {
	okHandler := HandleReady(ReadinessChecks{
		WorkflowsRegistered: func() bool { return true },
	})
	rec := httptest.NewRecorder()
	okHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	degraded := HandleReady(ReadinessChecks{
		WorkflowsRegistered: func() bool { return true },
		SessionMirror:       failingChecker{},
	})
	rec = httptest.NewRecorder()
	degraded(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestInitTracing_disabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "test", "dev")
	if err != nil {
		t.Fatalf("InitTracing error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error: %v", err)
	}
}
