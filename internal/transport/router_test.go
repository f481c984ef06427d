package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcastro2021/barrioflow/internal/chatbot"
	"github.com/mcastro2021/barrioflow/model"
)

// --- fakes ---

type fakeEngine struct {
	executed    []string
	cancelled   []string
	executeErr  error
	executions  map[string]model.ExecutionRecord
	history     []model.ExecutionRecord
	stats       model.ExecutionStats
	lastContext model.ExecutionContext
}

func (f *fakeEngine) Execute(_ context.Context, workflowID string, initial model.ExecutionContext) (model.ExecutionRecord, error) {
	f.executed = append(f.executed, workflowID)
	f.lastContext = initial
	if f.executeErr != nil {
		return model.ExecutionRecord{}, f.executeErr
	}
	return model.ExecutionRecord{ID: "exec-1", WorkflowID: workflowID, Status: model.ExecutionStatusCompleted}, nil
}

func (f *fakeEngine) Execution(executionID string) (model.ExecutionRecord, error) {
	rec, ok := f.executions[executionID]
	if !ok {
		return model.ExecutionRecord{}, model.NewExecutionNotFoundError(executionID)
	}
	return rec, nil
}

func (f *fakeEngine) History(workflowID string) []model.ExecutionRecord { return f.history }
func (f *fakeEngine) Stats(workflowID string) model.ExecutionStats     { return f.stats }

func (f *fakeEngine) Cancel(executionID string) error {
	if _, ok := f.executions[executionID]; !ok {
		return model.NewExecutionNotFoundError(executionID)
	}
	f.cancelled = append(f.cancelled, executionID)
	return nil
}

type fakeAutomations struct {
	types       []string
	lastPayload model.ExecutionContext
	err         error
}

func (f *fakeAutomations) Execute(_ context.Context, automationType string, payload model.ExecutionContext) (model.ExecutionRecord, error) {
	f.types = append(f.types, automationType)
	f.lastPayload = payload
	if f.err != nil {
		return model.ExecutionRecord{}, f.err
	}
	return model.ExecutionRecord{ID: "exec-auto", Status: model.ExecutionStatusCompleted}, nil
}

type fakeBot struct {
	sessions map[string]model.ConversationSession
	ended    []string
	reply    chatbot.Reply
}

func (f *fakeBot) StartSession(_ context.Context, userID, userName string) (model.ConversationSession, error) {
	s := model.ConversationSession{ID: "sess-1", UserID: userID, UserName: userName, Mode: model.ModeConversational}
	if f.sessions == nil {
		f.sessions = map[string]model.ConversationSession{}
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeBot) Process(_ context.Context, sessionID, text string) (chatbot.Reply, error) {
	if _, ok := f.sessions[sessionID]; !ok {
		return chatbot.Reply{}, model.NewSessionNotFoundError(sessionID)
	}
	return f.reply, nil
}

func (f *fakeBot) History(sessionID string) ([]model.Message, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, model.NewSessionNotFoundError(sessionID)
	}
	return s.History, nil
}

func (f *fakeBot) EndSession(_ context.Context, sessionID string) error {
	if _, ok := f.sessions[sessionID]; !ok {
		return model.NewSessionNotFoundError(sessionID)
	}
	delete(f.sessions, sessionID)
	f.ended = append(f.ended, sessionID)
	return nil
}

type fakeAlerts struct {
	active   []model.Alert
	resolved []string
	err      error
}

func (f *fakeAlerts) Active() []model.Alert { return f.active }

func (f *fakeAlerts) Resolve(id string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.resolved = append(f.resolved, id)
	return nil
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func testDeps() (Dependencies, *fakeEngine, *fakeAutomations, *fakeBot, *fakeAlerts) {
	engine := &fakeEngine{executions: map[string]model.ExecutionRecord{}}
	automations := &fakeAutomations{}
	bot := &fakeBot{}
	alerts := &fakeAlerts{}
	deps := Dependencies{
		Engine:         engine,
		Automations:    automations,
		Chatbot:        bot,
		Alerts:         alerts,
		HealthHandler:  okHandler,
		ReadyHandler:   okHandler,
		MetricsHandler: http.HandlerFunc(okHandler),
	}
	return deps, engine, automations, bot, alerts
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- Router tests ---

func TestNewRouter_health(t *testing.T) {
	deps, _, _, _, _ := testDeps()
	r := NewRouter(deps)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := doJSON(t, r, "GET", path, nil)
		if w.Code != 200 {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestNewRouter_workflowExecute(t *testing.T) {
	deps, engine, _, _, _ := testDeps()
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/workflows/preventive_maintenance/executions", map[string]any{
		"context": map[string]any{"location": "tower A"},
	})
	if w.Code != 201 {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(engine.executed) != 1 || engine.executed[0] != "preventive_maintenance" {
		t.Errorf("executed = %v, want [preventive_maintenance]", engine.executed)
	}
	if engine.lastContext["location"] != "tower A" {
		t.Errorf("context = %v, missing location", engine.lastContext)
	}

	var rec model.ExecutionRecord
	json.NewDecoder(w.Body).Decode(&rec)
	if rec.ID != "exec-1" {
		t.Errorf("record id = %q, want exec-1", rec.ID)
	}
}

func TestNewRouter_workflowExecute_emptyBody(t *testing.T) {
	deps, engine, _, _, _ := testDeps()
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/workflows/expense_alert/executions", nil)
	if w.Code != 201 {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(engine.executed) != 1 {
		t.Errorf("executed = %v, want one execution", engine.executed)
	}
}

func TestNewRouter_workflowExecute_unknownWorkflow(t *testing.T) {
	deps, engine, _, _, _ := testDeps()
	engine.executeErr = model.NewUnknownWorkflowError("nope")
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/workflows/nope/executions", nil)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Error.Code != model.ErrUnknownWorkflow {
		t.Errorf("code = %q, want %q", body.Error.Code, model.ErrUnknownWorkflow)
	}
}

func TestNewRouter_workflowExecute_badJSON(t *testing.T) {
	deps, _, _, _, _ := testDeps()
	r := NewRouter(deps)

	req := httptest.NewRequest("POST", "/v1/workflows/wf/executions", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNewRouter_workflowHistoryAndStats(t *testing.T) {
	deps, engine, _, _, _ := testDeps()
	engine.history = []model.ExecutionRecord{{ID: "e1"}, {ID: "e2"}}
	engine.stats = model.ExecutionStats{WorkflowID: "wf", Total: 2, Succeeded: 2, SuccessRate: 1}
	r := NewRouter(deps)

	w := doJSON(t, r, "GET", "/v1/workflows/wf/executions", nil)
	if w.Code != 200 {
		t.Fatalf("history status = %d, want 200", w.Code)
	}
	var hist struct {
		Executions []model.ExecutionRecord `json:"executions"`
	}
	json.NewDecoder(w.Body).Decode(&hist)
	if len(hist.Executions) != 2 {
		t.Errorf("executions = %d, want 2", len(hist.Executions))
	}

	w = doJSON(t, r, "GET", "/v1/workflows/wf/stats", nil)
	if w.Code != 200 {
		t.Fatalf("stats status = %d, want 200", w.Code)
	}
	var stats model.ExecutionStats
	json.NewDecoder(w.Body).Decode(&stats)
	if stats.Total != 2 || stats.SuccessRate != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNewRouter_executionGetAndCancel(t *testing.T) {
	deps, engine, _, _, _ := testDeps()
	engine.executions["exec-9"] = model.ExecutionRecord{ID: "exec-9", Status: model.ExecutionStatusInProgress}
	r := NewRouter(deps)

	w := doJSON(t, r, "GET", "/v1/executions/exec-9", nil)
	if w.Code != 200 {
		t.Fatalf("get status = %d, want 200", w.Code)
	}

	w = doJSON(t, r, "GET", "/v1/executions/missing", nil)
	if w.Code != 404 {
		t.Errorf("get missing status = %d, want 404", w.Code)
	}

	w = doJSON(t, r, "POST", "/v1/executions/exec-9/cancel", nil)
	if w.Code != 200 {
		t.Fatalf("cancel status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if len(engine.cancelled) != 1 || engine.cancelled[0] != "exec-9" {
		t.Errorf("cancelled = %v, want [exec-9]", engine.cancelled)
	}

	w = doJSON(t, r, "POST", "/v1/executions/missing/cancel", nil)
	if w.Code != 404 {
		t.Errorf("cancel missing status = %d, want 404", w.Code)
	}
}

func TestNewRouter_automationExecute(t *testing.T) {
	deps, _, automations, _, _ := testDeps()
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/automations/security_monitoring", map[string]any{
		"alert_description": "movimiento detectado",
		"priority":          "emergency",
	})
	if w.Code != 201 {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(automations.types) != 1 || automations.types[0] != "security_monitoring" {
		t.Errorf("types = %v, want [security_monitoring]", automations.types)
	}
	if automations.lastPayload["priority"] != "emergency" {
		t.Errorf("payload = %v, missing priority", automations.lastPayload)
	}
}

func TestNewRouter_automationExecute_unknownType(t *testing.T) {
	deps, _, automations, _, _ := testDeps()
	automations.err = model.NewUnknownAutomationTypeError("bogus")
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/automations/bogus", nil)
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestNewRouter_chatSessionLifecycle(t *testing.T) {
	deps, _, _, bot, _ := testDeps()
	bot.reply = chatbot.Reply{Message: "¡Hola Ana!", Mode: model.ModeConversational, Intent: model.IntentGreeting}
	r := NewRouter(deps)

	// Start.
	w := doJSON(t, r, "POST", "/v1/chat/sessions", map[string]string{
		"user_id": "user-7", "user_name": "Ana",
	})
	if w.Code != 201 {
		t.Fatalf("start status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var session model.ConversationSession
	json.NewDecoder(w.Body).Decode(&session)
	if session.ID == "" || session.UserID != "user-7" {
		t.Fatalf("session = %+v", session)
	}

	// Message.
	w = doJSON(t, r, "POST", "/v1/chat/sessions/"+session.ID+"/messages", map[string]string{
		"message": "hola",
	})
	if w.Code != 200 {
		t.Fatalf("message status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var reply chatbot.Reply
	json.NewDecoder(w.Body).Decode(&reply)
	if reply.Message != "¡Hola Ana!" {
		t.Errorf("reply = %q", reply.Message)
	}

	// History.
	w = doJSON(t, r, "GET", "/v1/chat/sessions/"+session.ID+"/history", nil)
	if w.Code != 200 {
		t.Errorf("history status = %d, want 200", w.Code)
	}

	// End.
	w = doJSON(t, r, "DELETE", "/v1/chat/sessions/"+session.ID, nil)
	if w.Code != 204 {
		t.Errorf("end status = %d, want 204", w.Code)
	}
	if len(bot.ended) != 1 {
		t.Errorf("ended = %v, want one session", bot.ended)
	}
}

func TestNewRouter_chatSessionStart_requiresUserID(t *testing.T) {
	deps, _, _, _, _ := testDeps()
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/chat/sessions", map[string]string{"user_name": "Ana"})
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNewRouter_chatMessage_requiresMessage(t *testing.T) {
	deps, _, _, bot, _ := testDeps()
	bot.sessions = map[string]model.ConversationSession{"sess-1": {ID: "sess-1"}}
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/chat/sessions/sess-1/messages", map[string]string{})
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNewRouter_chatMessage_unknownSession(t *testing.T) {
	deps, _, _, _, _ := testDeps()
	r := NewRouter(deps)

	w := doJSON(t, r, "POST", "/v1/chat/sessions/ghost/messages", map[string]string{
		"message": "hola",
	})
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestNewRouter_alerts(t *testing.T) {
	deps, _, _, _, alerts := testDeps()
	alerts.active = []model.Alert{{ID: "pending_payments:finanzas", Severity: model.SeverityWarning}}
	r := NewRouter(deps)

	w := doJSON(t, r, "GET", "/v1/alerts/", nil)
	if w.Code != 200 {
		t.Fatalf("active status = %d, want 200", w.Code)
	}
	var body struct {
		Alerts []model.Alert `json:"alerts"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Alerts) != 1 {
		t.Errorf("alerts = %d, want 1", len(body.Alerts))
	}

	w = doJSON(t, r, "POST", "/v1/alerts/pending_payments:finanzas/resolve", nil)
	if w.Code != 204 {
		t.Fatalf("resolve status = %d, want 204: %s", w.Code, w.Body.String())
	}
	if len(alerts.resolved) != 1 {
		t.Errorf("resolved = %v, want one alert", alerts.resolved)
	}

	alerts.err = model.NewRecordNotFoundError("alert", "ghost")
	w = doJSON(t, r, "POST", "/v1/alerts/ghost/resolve", nil)
	if w.Code != 404 {
		t.Errorf("resolve missing status = %d, want 404", w.Code)
	}
}

func TestWriteError_unknownError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, context.DeadlineExceeded)
	if w.Code != 500 {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Error.Code)
	}
}
