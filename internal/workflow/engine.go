// Package workflow implements the step-based workflow engine: definition
// registration, conditional sequential execution, wait continuations, and
// bounded execution history.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mcastro2021/barrioflow/internal/action"
	"github.com/mcastro2021/barrioflow/internal/condition"
	"github.com/mcastro2021/barrioflow/internal/observability"
	"github.com/mcastro2021/barrioflow/model"
)

const (
	defaultHistoryLimit = 1000
	defaultExecTimeout  = 30 * time.Second
)

// StepDispatcher executes one step's action against the current context.
type StepDispatcher interface {
	Handle(ctx context.Context, step model.Step, ec model.ExecutionContext) error
}

// TimerFunc schedules fn after d and returns a cancel function. The
// default is time.AfterFunc; tests substitute a synchronous variant.
type TimerFunc func(d time.Duration, fn func()) (cancel func())

// Options carries optional engine settings; zero values get defaults.
type Options struct {
	HistoryLimit int
	ExecTimeout  time.Duration
	Clock        model.Clock
	Timer        TimerFunc
	Metrics      *observability.Metrics
}

// Engine owns the workflow definitions and runs executions against a step
// dispatcher. Definitions are registered at startup and read-only after;
// every Execute call gets a private context, so concurrent executions of
// the same definition never observe each other's mutations.
type Engine struct {
	dispatcher  StepDispatcher
	logger      *zap.Logger
	clock       model.Clock
	timer       TimerFunc
	metrics     *observability.Metrics
	execTimeout time.Duration

	defs    map[string]model.WorkflowDefinition
	history *History

	waits *waitTable
}

// NewEngine creates a workflow engine over the given dispatcher.
func NewEngine(dispatcher StepDispatcher, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.ExecTimeout <= 0 {
		opts.ExecTimeout = defaultExecTimeout
	}
	if opts.Clock == nil {
		opts.Clock = model.SystemClock()
	}
	if opts.Timer == nil {
		opts.Timer = func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return func() { t.Stop() }
		}
	}
	return &Engine{
		dispatcher:  dispatcher,
		logger:      logger,
		clock:       opts.Clock,
		timer:       opts.Timer,
		metrics:     opts.Metrics,
		execTimeout: opts.ExecTimeout,
		defs:        make(map[string]model.WorkflowDefinition),
		history:     NewHistory(opts.HistoryLimit),
		waits:       newWaitTable(),
	}
}

// Register adds a workflow definition. Registration happens once at
// process start; the definition map is not synchronized for writes after
// executions begin.
func (e *Engine) Register(def model.WorkflowDefinition) error {
	if def.ID == "" {
		return model.NewInvalidArgumentError("workflow id is required")
	}
	for _, step := range def.Steps {
		if !step.Action.Valid() {
			return model.NewInvalidArgumentError(
				"workflow " + def.ID + ": step " + step.Name + " has unknown action kind " + string(step.Action))
		}
	}
	if _, exists := e.defs[def.ID]; exists {
		return model.NewDuplicateWorkflowError(def.ID)
	}
	e.defs[def.ID] = def
	return nil
}

// Registered reports whether any workflows have been registered. Used by
// the readiness check.
func (e *Engine) Registered() bool { return len(e.defs) > 0 }

// Definition returns a registered definition by ID.
func (e *Engine) Definition(workflowID string) (model.WorkflowDefinition, bool) {
	def, ok := e.defs[workflowID]
	return def, ok
}

// Execute runs one workflow and returns its execution record. Steps run
// in order; a step whose conditions do not hold against the current
// context is skipped and iteration continues. The first failing handler
// marks the whole execution failed and stops iteration — side effects
// already committed by earlier steps are NOT rolled back, matching the
// at-least-once behavior of the system this engine replaces.
//
// A wait step does not block the caller: the engine schedules a timer
// continuation and returns the in-progress record; the run resumes from
// the following step on a detached context bounded by ExecTimeout. Each
// call executes at most once; retries are the caller's responsibility.
func (e *Engine) Execute(ctx context.Context, workflowID string, initial model.ExecutionContext) (model.ExecutionRecord, error) {
	def, ok := e.defs[workflowID]
	if !ok {
		return model.ExecutionRecord{}, model.NewUnknownWorkflowError(workflowID)
	}

	ctx, span := observability.Tracer().Start(ctx, "workflow.Execute")
	defer span.End()

	ec := initial.Clone()
	rec := model.ExecutionRecord{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Status:     model.ExecutionStatusInProgress,
		Context:    ec.Clone(),
		StartedAt:  e.clock.Now(),
	}
	e.history.Append(rec)

	span.SetAttributes(
		observability.AttrWorkflowID.String(workflowID),
		observability.AttrExecutionID.String(rec.ID),
	)

	e.logger.Info("workflow execution started",
		zap.String("workflow_id", workflowID),
		zap.String("execution_id", rec.ID))

	out, err := e.run(ctx, def, rec.ID, ec, 0)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	return out, err
}

// Execution returns a record from the history by execution ID.
func (e *Engine) Execution(executionID string) (model.ExecutionRecord, error) {
	rec, ok := e.history.Get(executionID)
	if !ok {
		return model.ExecutionRecord{}, model.NewExecutionNotFoundError(executionID)
	}
	return rec, nil
}

// History lists retained execution records, optionally filtered by
// workflow ID ("" matches all).
func (e *Engine) History(workflowID string) []model.ExecutionRecord {
	return e.history.List(workflowID)
}

// Stats summarizes retained executions of one workflow.
func (e *Engine) Stats(workflowID string) model.ExecutionStats {
	return e.history.Stats(workflowID)
}

// Cancel aborts an execution that is suspended on a wait step. Executions
// that are not waiting cannot be cancelled.
func (e *Engine) Cancel(executionID string) error {
	cancel, ok := e.waits.remove(executionID)
	if !ok {
		rec, found := e.history.Get(executionID)
		if !found {
			return model.NewExecutionNotFoundError(executionID)
		}
		return model.NewConflictError("execution " + rec.ID + " is not suspended on a wait")
	}
	cancel()

	rec, _ := e.finish(executionID, model.ExecutionStatusCancelled, nil, "cancelled while waiting")
	e.logger.Info("workflow execution cancelled",
		zap.String("workflow_id", rec.WorkflowID),
		zap.String("execution_id", executionID))
	return nil
}

// run executes steps from index from. It is entered once by Execute and
// once per resumed wait continuation; the execution context is owned by
// exactly one goroutine at a time.
func (e *Engine) run(ctx context.Context, def model.WorkflowDefinition, execID string, ec model.ExecutionContext, from int) (model.ExecutionRecord, error) {
	for i := from; i < len(def.Steps); i++ {
		if err := ctx.Err(); err != nil {
			rec, _ := e.finish(execID, model.ExecutionStatusCancelled, ec, err.Error())
			return rec, model.NewActionExecutionError(def.Steps[i].Name, err)
		}

		step := def.Steps[i]
		if !condition.Evaluate(step.Conditions, ec) {
			e.logger.Debug("step skipped, conditions not met",
				zap.String("workflow_id", def.ID),
				zap.String("execution_id", execID),
				zap.String("step", step.Name))
			if e.metrics != nil {
				e.metrics.WorkflowStepsSkippedTotal.WithLabelValues(def.ID).Inc()
			}
			continue
		}

		if step.Action == model.ActionWait {
			rec, err := e.scheduleWait(def, execID, ec, step, i+1)
			if err == nil {
				return rec, nil
			}
			rec, _ = e.finish(execID, model.ExecutionStatusFailed, ec, err.Error())
			return rec, model.NewActionExecutionError(step.Name, err)
		}

		if err := e.dispatcher.Handle(ctx, step, ec); err != nil {
			actErr := model.NewActionExecutionError(step.Name, err)
			rec, _ := e.finish(execID, model.ExecutionStatusFailed, ec, actErr.Message)
			e.logger.Error("workflow execution failed",
				zap.String("workflow_id", def.ID),
				zap.String("execution_id", execID),
				zap.String("step", step.Name),
				zap.Error(err))
			return rec, actErr
		}
	}

	rec, _ := e.finish(execID, model.ExecutionStatusCompleted, ec, "")
	e.logger.Info("workflow execution completed",
		zap.String("workflow_id", def.ID),
		zap.String("execution_id", execID))
	return rec, nil
}

// scheduleWait suspends the execution and arms the continuation timer.
func (e *Engine) scheduleWait(def model.WorkflowDefinition, execID string, ec model.ExecutionContext, step model.Step, next int) (model.ExecutionRecord, error) {
	d, err := action.WaitDuration(step, ec)
	if err != nil {
		return model.ExecutionRecord{}, err
	}

	rec, _ := e.history.Update(execID, func(r *model.ExecutionRecord) {
		r.Context = ec.Clone()
	})

	cancel := e.timer(d, func() { e.resume(def, execID, ec, next) })
	e.waits.add(execID, cancel)

	if e.metrics != nil {
		e.metrics.WorkflowWaitsScheduled.WithLabelValues(def.ID).Inc()
	}
	e.logger.Info("wait continuation scheduled",
		zap.String("workflow_id", def.ID),
		zap.String("execution_id", execID),
		zap.Duration("duration", d),
		zap.String("step", step.Name))
	return rec, nil
}

// resume continues a suspended execution after its wait timer fires.
func (e *Engine) resume(def model.WorkflowDefinition, execID string, ec model.ExecutionContext, from int) {
	if _, ok := e.waits.remove(execID); !ok {
		// Cancelled between timer fire and resume.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.execTimeout)
	defer cancel()

	if _, err := e.run(ctx, def, execID, ec, from); err != nil {
		e.logger.Error("resumed execution failed",
			zap.String("workflow_id", def.ID),
			zap.String("execution_id", execID),
			zap.Error(err))
	}
}

// finish stamps the record's terminal state and records metrics.
func (e *Engine) finish(execID, status string, ec model.ExecutionContext, errMsg string) (model.ExecutionRecord, bool) {
	now := e.clock.Now()
	rec, ok := e.history.Update(execID, func(r *model.ExecutionRecord) {
		r.Status = status
		r.Error = errMsg
		if ec != nil {
			r.Context = ec.Clone()
		}
		r.CompletedAt = &now
	})
	if ok && e.metrics != nil {
		e.metrics.WorkflowExecutionsTotal.WithLabelValues(rec.WorkflowID, status).Inc()
		e.metrics.WorkflowDuration.WithLabelValues(rec.WorkflowID).Observe(now.Sub(rec.StartedAt).Seconds())
	}
	return rec, ok
}

// waitTable tracks pending wait continuations by execution ID.
type waitTable struct {
	mu    sync.Mutex
	items map[string]func()
}

func newWaitTable() *waitTable {
	return &waitTable{items: make(map[string]func())}
}

func (w *waitTable) add(id string, cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items[id] = cancel
}

func (w *waitTable) remove(id string) (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cancel, ok := w.items[id]
	if ok {
		delete(w.items, id)
	}
	return cancel, ok
}
