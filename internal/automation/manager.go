// Package automation maps external automation-type events onto
// registered workflows.
package automation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mcastro2021/barrioflow/internal/observability"
	"github.com/mcastro2021/barrioflow/model"
)

// WorkflowEngine is the engine surface the manager depends on.
type WorkflowEngine interface {
	Register(def model.WorkflowDefinition) error
	Execute(ctx context.Context, workflowID string, initial model.ExecutionContext) (model.ExecutionRecord, error)
}

// Manager resolves automation-type events to workflows. An unregistered
// type is a typed error to the caller, never a panic.
type Manager struct {
	engine  WorkflowEngine
	logger  *zap.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	rules map[string]model.AutomationRule
}

// NewManager creates an automation manager over the given engine.
func NewManager(engine WorkflowEngine, logger *zap.Logger, metrics *observability.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		engine:  engine,
		logger:  logger,
		metrics: metrics,
		rules:   make(map[string]model.AutomationRule),
	}
}

// Register binds an automation type to a target workflow.
func (m *Manager) Register(rule model.AutomationRule) error {
	if rule.Type == "" {
		return model.NewInvalidArgumentError("automation type is required")
	}
	if rule.WorkflowID == "" {
		return model.NewInvalidArgumentError("automation " + rule.Type + ": workflow id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rules[rule.Type]; exists {
		return model.NewConflictError("automation type " + rule.Type + " is already registered")
	}
	m.rules[rule.Type] = rule
	return nil
}

// Types lists the registered automation types.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.rules))
	for t := range m.rules {
		out = append(out, t)
	}
	return out
}

// Execute runs the workflow bound to the automation type. The rule's
// base context is merged first; payload keys win on collision.
func (m *Manager) Execute(ctx context.Context, automationType string, payload model.ExecutionContext) (model.ExecutionRecord, error) {
	m.mu.RLock()
	rule, ok := m.rules[automationType]
	m.mu.RUnlock()
	if !ok {
		m.observe(automationType, "rejected")
		return model.ExecutionRecord{}, model.NewUnknownAutomationTypeError(automationType)
	}

	ctx, span := observability.Tracer().Start(ctx, "automation.Execute")
	defer span.End()
	span.SetAttributes(
		observability.AttrAutomationType.String(automationType),
		observability.AttrWorkflowID.String(rule.WorkflowID),
	)

	initial := rule.BaseContext.Clone()
	for k, v := range payload {
		initial[k] = v
	}

	rec, err := m.engine.Execute(ctx, rule.WorkflowID, initial)
	if err != nil {
		m.observe(automationType, "failed")
		m.logger.Error("automation execution failed",
			zap.String("automation_type", automationType),
			zap.String("workflow_id", rule.WorkflowID),
			zap.Error(err))
		return rec, err
	}

	m.observe(automationType, rec.Status)
	m.logger.Info("automation executed",
		zap.String("automation_type", automationType),
		zap.String("workflow_id", rule.WorkflowID),
		zap.String("execution_id", rec.ID),
		zap.String("status", rec.Status))
	return rec, nil
}

func (m *Manager) observe(automationType, status string) {
	if m.metrics != nil {
		m.metrics.AutomationExecutionsTotal.WithLabelValues(automationType, status).Inc()
	}
}
