// Package integration provides a reusable test harness for end-to-end
// testing of the barrioflow daemon. It starts a full HTTP server with
// the real engine, dispatcher, automation manager, chatbot, and
// threshold checker, backed by in-memory stores and a capturing
// notifier.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mcastro2021/barrioflow/internal/action"
	"github.com/mcastro2021/barrioflow/internal/automation"
	"github.com/mcastro2021/barrioflow/internal/chatbot"
	"github.com/mcastro2021/barrioflow/internal/notify"
	"github.com/mcastro2021/barrioflow/internal/observability"
	"github.com/mcastro2021/barrioflow/internal/repository"
	"github.com/mcastro2021/barrioflow/internal/scheduler"
	"github.com/mcastro2021/barrioflow/internal/transport"
	"github.com/mcastro2021/barrioflow/internal/workflow"
	"github.com/mcastro2021/barrioflow/model"
)

// Notification is a single delivery captured by the harness notifier.
type Notification struct {
	Recipients []string
	Title      string
	Body       string
	Channel    string
}

// CaptureNotifier records every notification instead of delivering it.
type CaptureNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *CaptureNotifier) Send(_ context.Context, recipients []string, title, body, channel string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{
		Recipients: append([]string(nil), recipients...),
		Title:      title,
		Body:       body,
		Channel:    channel,
	})
	return nil
}

// Sent returns a snapshot of the captured notifications.
func (n *CaptureNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// ManualTimer replaces the engine's wait timers with explicitly fired
// callbacks so tests control when a suspended execution resumes.
type ManualTimer struct {
	mu      sync.Mutex
	pending []func()
}

// Timer is the workflow.TimerFunc the harness installs.
func (m *ManualTimer) Timer(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
	return func() {}
}

// Fire runs and clears all pending continuations.
func (m *ManualTimer) Fire() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// Pending reports how many continuations are armed.
func (m *ManualTimer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// TestHarness encapsulates a fully wired daemon instance for
// integration testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server

	Engine      *workflow.Engine
	Automations *automation.Manager
	Chatbot     *chatbot.StateMachine
	Checker     *scheduler.ThresholdChecker
	Source      *scheduler.FuncSource
	Repo        *repository.MemRepo
	Notifier    *CaptureNotifier
	Timer       *ManualTimer
}

// NewHarness wires the full stack behind an httptest server.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	repo := repository.NewMemRepo()
	notifier := &CaptureNotifier{}
	resolver := notify.NewStaticResolver()
	dispatcher := action.NewDispatcher(repo, notifier, resolver, logger)

	timer := &ManualTimer{}
	engine := workflow.NewEngine(dispatcher, logger, workflow.Options{
		Timer: timer.Timer,
	})

	mgr := automation.NewManager(engine, logger, nil)
	if err := automation.RegisterDefaults(engine, mgr); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}

	machine := chatbot.NewStateMachine(
		chatbot.NewRegistry(),
		chatbot.NewRegexClassifier(),
		engine,
		mgr,
		chatbot.NoopMirror{},
		logger,
		nil,
		nil,
	)

	source := scheduler.NewFuncSource()
	checker := scheduler.NewThresholdChecker(
		source,
		scheduler.NewAlertStore(),
		engine,
		logger,
		nil,
		[]scheduler.Rule{
			{
				Metric:    "pending_payments",
				Category:  "finanzas",
				Threshold: 10,
				Severity:  model.SeverityWarning,
				Title:     "Pagos pendientes",
				Message:   "Expensas impagas por encima del umbral",
			},
			{
				Metric:     "security_incidents",
				Category:   "seguridad",
				Threshold:  3,
				Severity:   model.SeverityCritical,
				Title:      "Incidentes de seguridad",
				Message:    "Incidentes de seguridad por encima del umbral",
				WorkflowID: "security_alert_workflow",
			},
		},
	)

	router := transport.NewRouter(transport.Dependencies{
		Engine:        engine,
		Automations:   mgr,
		Chatbot:       machine,
		Alerts:        checker,
		Logger:        logger,
		HealthHandler: observability.HandleHealth(),
		ReadyHandler: observability.HandleReady(observability.ReadinessChecks{
			WorkflowsRegistered: engine.Registered,
		}),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &TestHarness{
		t:           t,
		server:      srv,
		Engine:      engine,
		Automations: mgr,
		Chatbot:     machine,
		Checker:     checker,
		Source:      source,
		Repo:        repo,
		Notifier:    notifier,
		Timer:       timer,
	}
}

// URL returns the base URL of the test server.
func (h *TestHarness) URL() string { return h.server.URL }

// Do performs an HTTP request against the harness server and decodes
// the JSON response body into a generic map (nil for empty bodies).
func (h *TestHarness) Do(method, path string, body any) (int, map[string]any) {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, h.server.URL+path, &buf)
	if err != nil {
		h.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		h.t.Fatalf("decode response body %q: %v", raw, err)
	}
	return resp.StatusCode, decoded
}

// ErrorCode extracts the error envelope code from a decoded response.
func ErrorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

// RegisterWorkflow registers an additional definition on the engine.
func (h *TestHarness) RegisterWorkflow(def model.WorkflowDefinition) {
	h.t.Helper()
	if err := h.Engine.Register(def); err != nil {
		h.t.Fatalf("Register %s: %v", def.ID, err)
	}
}
