package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_defaultsApplied(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Engine.HistoryLimit != 1000 {
		t.Errorf("HistoryLimit = %d, want default 1000", cfg.Engine.HistoryLimit)
	}
	if cfg.Scheduler.TickInterval != 60*time.Second {
		t.Errorf("TickInterval = %v", cfg.Scheduler.TickInterval)
	}
	if cfg.Chatbot.Mirror.Driver != "none" {
		t.Errorf("Mirror.Driver = %q", cfg.Chatbot.Mirror.Driver)
	}
}

func TestLoad_thresholds(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  tick_interval: 30s
  thresholds:
    - metric: failed_logins
      category: security
      threshold: 5
      severity: critical
      title: Intentos de acceso fallidos
      workflow_id: security_alert_workflow
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Scheduler.Thresholds) != 1 {
		t.Fatalf("Thresholds = %d", len(cfg.Scheduler.Thresholds))
	}
	th := cfg.Scheduler.Thresholds[0]
	if th.Metric != "failed_logins" || th.Threshold != 5 || th.Severity != "critical" {
		t.Errorf("threshold = %+v", th)
	}
}

func TestLoad_jobs(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  jobs:
    - workflow_id: preventive_maintenance
      interval: 24h
    - workflow_id: expense_alert
      interval: 1h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Scheduler.Jobs) != 2 {
		t.Fatalf("Jobs = %d", len(cfg.Scheduler.Jobs))
	}
	job := cfg.Scheduler.Jobs[0]
	if job.WorkflowID != "preventive_maintenance" || job.Interval != 24*time.Hour {
		t.Errorf("job = %+v", job)
	}
}

func TestLoad_validationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 0\n"},
		{"bad mirror driver", "chatbot:\n  mirror:\n    driver: redis\n"},
		{"threshold missing metric", "scheduler:\n  thresholds:\n    - category: security\n"},
		{"job missing workflow", "scheduler:\n  jobs:\n    - interval: 1h\n"},
		{"job bad interval", "scheduler:\n  jobs:\n    - workflow_id: expense_alert\n"},
		{"bad severity", "scheduler:\n  thresholds:\n    - metric: x\n      severity: fatal\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("BARRIO_SERVER_PORT", "7070")
	t.Setenv("BARRIO_LOG_LEVEL", "debug")
	t.Setenv("BARRIO_MIRROR_DRIVER", "postgres")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.Observability.LogLevel)
	}
	if cfg.Chatbot.Mirror.Driver != "postgres" {
		t.Errorf("Mirror.Driver = %q", cfg.Chatbot.Mirror.Driver)
	}
}
