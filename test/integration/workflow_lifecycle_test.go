package integration

import (
	"context"
	"testing"

	"github.com/mcastro2021/barrioflow/model"
)

func TestWorkflowLifecycle_executeAndQuery(t *testing.T) {
	h := NewHarness(t)

	status, body := h.Do("POST", "/v1/workflows/preventive_maintenance/executions", map[string]any{
		"context": map[string]any{
			"description": "Revisión mensual de bombas",
			"location":    "sala de máquinas",
			"priority":    "medium",
		},
	})
	if status != 201 {
		t.Fatalf("execute status = %d, body = %v", status, body)
	}
	if body["status"] != model.ExecutionStatusCompleted {
		t.Fatalf("execution status = %v, want completed", body["status"])
	}

	if n := h.Repo.Count("maintenance"); n != 1 {
		t.Errorf("maintenance records = %d, want 1", n)
	}
	sent := h.Notifier.Sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if len(sent[0].Recipients) == 0 || sent[0].Recipients[0] != "maintenance_team" {
		t.Errorf("recipients = %v, want maintenance_team", sent[0].Recipients)
	}

	// The execution shows up in history and stats.
	status, body = h.Do("GET", "/v1/workflows/preventive_maintenance/executions", nil)
	if status != 200 {
		t.Fatalf("history status = %d", status)
	}
	execs, _ := body["executions"].([]any)
	if len(execs) != 1 {
		t.Errorf("history entries = %d, want 1", len(execs))
	}

	status, body = h.Do("GET", "/v1/workflows/preventive_maintenance/stats", nil)
	if status != 200 {
		t.Fatalf("stats status = %d", status)
	}
	if body["total"] != float64(1) || body["success_rate"] != float64(1) {
		t.Errorf("stats = %v", body)
	}
}

func TestWorkflowLifecycle_unknownWorkflow(t *testing.T) {
	h := NewHarness(t)

	status, body := h.Do("POST", "/v1/workflows/no_such_workflow/executions", nil)
	if status != 404 {
		t.Fatalf("status = %d, want 404", status)
	}
	if code := ErrorCode(body); code != model.ErrUnknownWorkflow {
		t.Errorf("code = %q, want %q", code, model.ErrUnknownWorkflow)
	}
}

func TestWorkflowLifecycle_waitThenResume(t *testing.T) {
	h := NewHarness(t)

	visitID, err := h.Repo.Create(context.Background(), "visit", map[string]any{
		"visitor_name": "Carlos Pérez",
		"status":       "pending",
	})
	if err != nil {
		t.Fatalf("seed visit: %v", err)
	}

	status, body := h.Do("POST", "/v1/workflows/auto_visit_approval/executions", map[string]any{
		"context": map[string]any{
			"resident_id":  "user-12",
			"visitor_id":   "visitor-3",
			"visit_id":     visitID,
			"visitor_type": "frequent",
		},
	})
	if status != 201 {
		t.Fatalf("execute status = %d, body = %v", status, body)
	}
	if body["status"] != model.ExecutionStatusInProgress {
		t.Fatalf("execution status = %v, want in_progress at wait step", body["status"])
	}
	execID, _ := body["id"].(string)
	if h.Timer.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", h.Timer.Pending())
	}

	// The visit is untouched while the execution is suspended.
	if rec, _ := h.Repo.Get("visit", visitID); rec["status"] != "pending" {
		t.Fatalf("visit status before resume = %v", rec["status"])
	}

	h.Timer.Fire()

	status, body = h.Do("GET", "/v1/executions/"+execID, nil)
	if status != 200 {
		t.Fatalf("get status = %d", status)
	}
	if body["status"] != model.ExecutionStatusCompleted {
		t.Fatalf("execution status after resume = %v, want completed", body["status"])
	}
	if rec, _ := h.Repo.Get("visit", visitID); rec["status"] != "approved" {
		t.Errorf("visit status after resume = %v, want approved", rec["status"])
	}
}

func TestWorkflowLifecycle_cancelWhileWaiting(t *testing.T) {
	h := NewHarness(t)

	visitID, err := h.Repo.Create(context.Background(), "visit", map[string]any{
		"status": "pending",
	})
	if err != nil {
		t.Fatalf("seed visit: %v", err)
	}

	status, body := h.Do("POST", "/v1/workflows/auto_visit_approval/executions", map[string]any{
		"context": map[string]any{
			"resident_id":  "user-12",
			"visitor_id":   "visitor-3",
			"visit_id":     visitID,
			"visitor_type": "frequent",
		},
	})
	if status != 201 {
		t.Fatalf("execute status = %d, body = %v", status, body)
	}
	execID, _ := body["id"].(string)

	status, body = h.Do("POST", "/v1/executions/"+execID+"/cancel", nil)
	if status != 200 {
		t.Fatalf("cancel status = %d, body = %v", status, body)
	}
	if body["status"] != model.ExecutionStatusCancelled {
		t.Errorf("execution status = %v, want cancelled", body["status"])
	}

	// A late timer fire must not resume a cancelled execution.
	h.Timer.Fire()
	if rec, _ := h.Repo.Get("visit", visitID); rec["status"] != "pending" {
		t.Errorf("visit status = %v, want pending after cancel", rec["status"])
	}

	// Cancelling again conflicts.
	status, body = h.Do("POST", "/v1/executions/"+execID+"/cancel", nil)
	if status != 409 {
		t.Errorf("second cancel status = %d, want 409", status)
	}
	if code := ErrorCode(body); code != model.ErrConflict {
		t.Errorf("code = %q, want %q", code, model.ErrConflict)
	}
}

func TestWorkflowLifecycle_automationEvent(t *testing.T) {
	h := NewHarness(t)

	status, body := h.Do("POST", "/v1/automations/security_monitoring", map[string]any{
		"alert_description": "puerta trasera abierta",
		"priority":          "high",
		"user_id":           "guard-1",
	})
	if status != 201 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["status"] != model.ExecutionStatusCompleted {
		t.Errorf("execution status = %v, want completed", body["status"])
	}
	if n := h.Repo.Count("security_report"); n != 1 {
		t.Errorf("security reports = %d, want 1", n)
	}
}
