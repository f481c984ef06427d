package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Histogram bucket definitions.
var (
	executionDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120}
	turnDurationBuckets      = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5}
)

// Metrics holds all Prometheus metric instruments for the engine.
type Metrics struct {
	// Workflow metrics
	WorkflowExecutionsTotal   *prometheus.CounterVec
	WorkflowDuration          *prometheus.HistogramVec
	WorkflowStepsSkippedTotal *prometheus.CounterVec
	WorkflowWaitsScheduled    *prometheus.CounterVec

	// Automation metrics
	AutomationExecutionsTotal *prometheus.CounterVec

	// Scheduler metrics
	SchedulerJobFiresTotal *prometheus.CounterVec
	AlertsCreatedTotal     *prometheus.CounterVec
	AlertsActive           prometheus.Gauge

	// Chatbot metrics
	ChatTurnsTotal     *prometheus.CounterVec
	ChatTurnDuration   *prometheus.HistogramVec
	ChatSessionsActive prometheus.Gauge
	ChatTasksCommitted *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WorkflowExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_workflow_executions_total",
			Help: "Total number of workflow executions by terminal status.",
		}, []string{"workflow_id", "status"}),
		WorkflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barrioflow_workflow_duration_seconds",
			Help:    "Workflow execution duration in seconds.",
			Buckets: executionDurationBuckets,
		}, []string{"workflow_id"}),
		WorkflowStepsSkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_workflow_steps_skipped_total",
			Help: "Total number of steps skipped by failing conditions.",
		}, []string{"workflow_id"}),
		WorkflowWaitsScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_workflow_waits_scheduled_total",
			Help: "Total number of wait continuations scheduled.",
		}, []string{"workflow_id"}),

		AutomationExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_automation_executions_total",
			Help: "Total number of automation-type executions.",
		}, []string{"automation_type", "status"}),

		SchedulerJobFiresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_scheduler_job_fires_total",
			Help: "Total number of interval job fires.",
		}, []string{"workflow_id"}),
		AlertsCreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_alerts_created_total",
			Help: "Total number of alerts created by threshold breaches.",
		}, []string{"category", "severity"}),
		AlertsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "barrioflow_alerts_active",
			Help: "Number of unresolved alerts.",
		}),

		ChatTurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_chat_turns_total",
			Help: "Total number of processed chat turns.",
		}, []string{"mode", "intent"}),
		ChatTurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barrioflow_chat_turn_duration_seconds",
			Help:    "Chat turn processing duration in seconds.",
			Buckets: turnDurationBuckets,
		}, []string{"mode"}),
		ChatSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "barrioflow_chat_sessions_active",
			Help: "Number of active conversation sessions.",
		}),
		ChatTasksCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barrioflow_chat_tasks_committed_total",
			Help: "Total number of chat tasks committed to workflows.",
		}, []string{"task_type"}),
	}

	reg.MustRegister(
		m.WorkflowExecutionsTotal,
		m.WorkflowDuration,
		m.WorkflowStepsSkippedTotal,
		m.WorkflowWaitsScheduled,
		m.AutomationExecutionsTotal,
		m.SchedulerJobFiresTotal,
		m.AlertsCreatedTotal,
		m.AlertsActive,
		m.ChatTurnsTotal,
		m.ChatTurnDuration,
		m.ChatSessionsActive,
		m.ChatTasksCommitted,
	)

	return m
}
