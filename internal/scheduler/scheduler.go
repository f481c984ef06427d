package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcastro2021/barrioflow/internal/observability"
	"github.com/mcastro2021/barrioflow/model"
)

// Executor runs a workflow. Implemented by the workflow engine and by
// the automation manager.
type Executor interface {
	Execute(ctx context.Context, workflowID string, initial model.ExecutionContext) (model.ExecutionRecord, error)
}

// ContextFactory builds the initial execution context for each firing of
// an interval job. A nil factory means an empty context.
type ContextFactory func() model.ExecutionContext

type intervalJob struct {
	workflowID string
	interval   time.Duration
	factory    ContextFactory
	nextRun    time.Time
}

// Scheduler fires registered workflow jobs on fixed intervals and runs
// threshold checks against a metrics source on every tick.
type Scheduler struct {
	executor Executor
	checker  *ThresholdChecker
	logger   *zap.Logger
	clock    model.Clock
	metrics  *observability.Metrics
	tick     time.Duration

	mu   sync.Mutex
	jobs []*intervalJob
}

// New creates a scheduler. checker may be nil when no threshold rules
// are configured.
func New(executor Executor, checker *ThresholdChecker, logger *zap.Logger, clock model.Clock, metrics *observability.Metrics, tick time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = model.SystemClock()
	}
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		executor: executor,
		checker:  checker,
		logger:   logger,
		clock:    clock,
		metrics:  metrics,
		tick:     tick,
	}
}

// Every registers a workflow to run once per interval. The first firing
// happens one full interval after registration.
func (s *Scheduler) Every(interval time.Duration, workflowID string, factory ContextFactory) error {
	if interval <= 0 {
		return model.NewInvalidArgumentError("job interval must be positive")
	}
	if workflowID == "" {
		return model.NewInvalidArgumentError("job workflow id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &intervalJob{
		workflowID: workflowID,
		interval:   interval,
		factory:    factory,
		nextRun:    s.clock.Now().Add(interval),
	})
	return nil
}

// Tick fires every due job exactly once and advances its next-run mark,
// then runs the threshold checks. Exposed so tests and operational
// endpoints can drive the scheduler without the background loop.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*intervalJob
	for _, job := range s.jobs {
		if !now.Before(job.nextRun) {
			due = append(due, job)
			// Anchor the next run to the schedule, not the firing
			// time, so slow ticks do not drift the period.
			for !now.Before(job.nextRun) {
				job.nextRun = job.nextRun.Add(job.interval)
			}
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		s.fire(ctx, job)
	}

	if s.checker != nil {
		s.checker.Check(ctx, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, job *intervalJob) {
	var initial model.ExecutionContext
	if job.factory != nil {
		initial = job.factory()
	}
	if s.metrics != nil {
		s.metrics.SchedulerJobFiresTotal.WithLabelValues(job.workflowID).Inc()
	}
	rec, err := s.executor.Execute(ctx, job.workflowID, initial)
	if err != nil {
		s.logger.Error("scheduled workflow failed",
			zap.String("workflow_id", job.workflowID),
			zap.Error(err))
		return
	}
	s.logger.Info("scheduled workflow fired",
		zap.String("workflow_id", job.workflowID),
		zap.String("execution_id", rec.ID),
		zap.String("status", rec.Status))
}

// Run drives Tick on the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("tick_interval", s.tick))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
