package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcastro2021/barrioflow/internal/config"
	"github.com/mcastro2021/barrioflow/internal/observability"
	"github.com/mcastro2021/barrioflow/model"
)

// Rule is one compiled threshold rule. A breach (sample > Threshold)
// raises an alert; critical and emergency breaches with a configured
// workflow also trigger an escalation execution.
type Rule struct {
	Metric     string
	Category   string
	Threshold  float64
	Severity   model.Severity
	Title      string
	Message    string
	WorkflowID string
}

// RulesFromConfig compiles configured threshold rules.
func RulesFromConfig(cfgs []config.ThresholdConfig) []Rule {
	rules := make([]Rule, 0, len(cfgs))
	for _, c := range cfgs {
		rules = append(rules, Rule{
			Metric:     c.Metric,
			Category:   c.Category,
			Threshold:  c.Threshold,
			Severity:   model.ParseSeverity(c.Severity),
			Title:      c.Title,
			Message:    c.Message,
			WorkflowID: c.WorkflowID,
		})
	}
	return rules
}

// ThresholdChecker samples metrics and raises deduplicated alerts on
// breaches. The dedup key is metric plus category, so a still-breaching
// metric does not spam a new alert every tick.
type ThresholdChecker struct {
	source   model.MetricsSource
	store    *AlertStore
	executor Executor
	logger   *zap.Logger
	metrics  *observability.Metrics
	rules    []Rule
}

// NewThresholdChecker creates a checker over the given rules.
func NewThresholdChecker(source model.MetricsSource, store *AlertStore, executor Executor, logger *zap.Logger, metrics *observability.Metrics, rules []Rule) *ThresholdChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThresholdChecker{
		source:   source,
		store:    store,
		executor: executor,
		logger:   logger,
		metrics:  metrics,
		rules:    rules,
	}
}

// Check samples every rule's metric once and processes breaches. A
// sampling error skips that rule for this round; the rest still run.
func (c *ThresholdChecker) Check(ctx context.Context, now time.Time) {
	for _, rule := range c.rules {
		value, err := c.source.Sample(ctx, rule.Metric)
		if err != nil {
			c.logger.Warn("metric sample failed",
				zap.String("metric", rule.Metric),
				zap.Error(err))
			continue
		}
		if value <= rule.Threshold {
			continue
		}
		c.breach(ctx, rule, value, now)
	}
}

func (c *ThresholdChecker) breach(ctx context.Context, rule Rule, value float64, now time.Time) {
	alert := model.Alert{
		ID:        rule.Metric + ":" + rule.Category,
		Title:     rule.Title,
		Message:   fmt.Sprintf("%s (valor %.2f, umbral %.2f)", rule.Message, value, rule.Threshold),
		Severity:  rule.Severity,
		Category:  rule.Category,
		CreatedAt: now,
	}
	if !c.store.CreateIfAbsent(alert) {
		// An unresolved alert for this rule is already open.
		return
	}

	if c.metrics != nil {
		c.metrics.AlertsCreatedTotal.WithLabelValues(rule.Category, rule.Severity.String()).Inc()
		c.metrics.AlertsActive.Set(float64(len(c.store.Active())))
	}
	c.logger.Warn("threshold alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("severity", rule.Severity.String()),
		zap.Float64("value", value),
		zap.Float64("threshold", rule.Threshold))

	if rule.Severity < model.SeverityCritical || rule.WorkflowID == "" {
		return
	}
	rec, err := c.executor.Execute(ctx, rule.WorkflowID, model.ExecutionContext{
		"alert_id":          alert.ID,
		"alert_description": alert.Message,
		"severity":          rule.Severity.String(),
		"category":          rule.Category,
		"metric":            rule.Metric,
		"value":             value,
	})
	if err != nil {
		c.logger.Error("alert escalation workflow failed",
			zap.String("alert_id", alert.ID),
			zap.String("workflow_id", rule.WorkflowID),
			zap.Error(err))
		return
	}
	c.logger.Info("alert escalation workflow started",
		zap.String("alert_id", alert.ID),
		zap.String("workflow_id", rule.WorkflowID),
		zap.String("execution_id", rec.ID))
}

// Resolve closes an alert and updates the active gauge.
func (c *ThresholdChecker) Resolve(id string, at time.Time) error {
	if err := c.store.Resolve(id, at); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.AlertsActive.Set(float64(len(c.store.Active())))
	}
	return nil
}

// Active lists the currently open alerts.
func (c *ThresholdChecker) Active() []model.Alert {
	return c.store.Active()
}

// FuncSource adapts a map of sampler functions to the MetricsSource
// interface. Unknown metrics return an error.
type FuncSource struct {
	mu       sync.RWMutex
	samplers map[string]func(ctx context.Context) (float64, error)
}

// NewFuncSource creates an empty FuncSource.
func NewFuncSource() *FuncSource {
	return &FuncSource{samplers: make(map[string]func(ctx context.Context) (float64, error))}
}

// Register adds or replaces a sampler for the named metric.
func (f *FuncSource) Register(metric string, sampler func(ctx context.Context) (float64, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samplers[metric] = sampler
}

// Sample implements model.MetricsSource.
func (f *FuncSource) Sample(ctx context.Context, metric string) (float64, error) {
	f.mu.RLock()
	sampler, ok := f.samplers[metric]
	f.mu.RUnlock()
	if !ok {
		return 0, model.NewRecordNotFoundError("metric", metric)
	}
	return sampler(ctx)
}
