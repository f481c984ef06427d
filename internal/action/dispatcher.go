// Package action renders step parameters and dispatches step actions to
// their side-effecting handlers.
package action

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcastro2021/barrioflow/model"
)

// Dispatcher routes each action kind to its handler. The kind set is
// closed; an unknown kind is a configuration error surfaced as a typed
// error, never a panic.
type Dispatcher struct {
	repo     model.Repository
	notifier model.Notifier
	resolver model.RecipientResolver
	logger   *zap.Logger

	mu        sync.RWMutex
	externals map[string]model.ExternalCall
}

// NewDispatcher creates a Dispatcher over the given collaborators.
func NewDispatcher(repo model.Repository, notifier model.Notifier, resolver model.RecipientResolver, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		repo:      repo,
		notifier:  notifier,
		resolver:  resolver,
		logger:    logger,
		externals: make(map[string]model.ExternalCall),
	}
}

// RegisterExternal registers a named external-call integration for
// call_external steps.
func (d *Dispatcher) RegisterExternal(name string, call model.ExternalCall) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.externals[name] = call
}

// Handle executes the step's action against the current context. Params
// are rendered first; successful create_record handlers append the new
// record's ID to the context. Wait steps are scheduled by the engine and
// never reach the dispatcher.
func (d *Dispatcher) Handle(ctx context.Context, step model.Step, ec model.ExecutionContext) error {
	params := RenderParams(step.Params, ec)

	switch step.Action {
	case model.ActionNotify:
		return d.notify(ctx, params, ec)
	case model.ActionCreateRecord:
		return d.createRecord(ctx, params, ec)
	case model.ActionUpdateRecord:
		return d.updateRecord(ctx, params)
	case model.ActionCallExternal:
		return d.callExternal(ctx, params)
	case model.ActionWait:
		return model.NewInvalidArgumentError("wait steps are scheduled by the engine, not dispatched")
	}
	return model.NewInvalidArgumentError(fmt.Sprintf("unsupported action kind %q", step.Action))
}

func (d *Dispatcher) notify(ctx context.Context, params map[string]any, ec model.ExecutionContext) error {
	recipients, err := d.resolveRecipients(ctx, params["recipients"])
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	title := stringParam(params, "title", "Notificación Automática")
	body := stringParam(params, "message", "")
	channel := stringParam(params, "channel", "internal")

	if err := d.notifier.Send(ctx, recipients, title, body, channel); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	d.logger.Debug("notification sent",
		zap.Int("recipients", len(recipients)),
		zap.String("channel", channel))
	return nil
}

func (d *Dispatcher) createRecord(ctx context.Context, params map[string]any, ec model.ExecutionContext) error {
	modelName := stringParam(params, "model", "")
	if modelName == "" {
		return model.NewInvalidArgumentError("create_record requires a model param")
	}
	fields := mapParam(params, "fields")

	id, err := d.repo.Create(ctx, modelName, fields)
	if err != nil {
		return fmt.Errorf("create %s: %w", modelName, err)
	}

	ec[strings.ToLower(modelName)+"_id"] = id
	d.logger.Debug("record created", zap.String("model", modelName), zap.String("id", id))
	return nil
}

func (d *Dispatcher) updateRecord(ctx context.Context, params map[string]any) error {
	modelName := stringParam(params, "model", "")
	recordID := stringParam(params, "record_id", "")
	if modelName == "" || recordID == "" {
		return model.NewInvalidArgumentError("update_record requires model and record_id params")
	}

	if err := d.repo.Update(ctx, modelName, recordID, mapParam(params, "fields")); err != nil {
		return fmt.Errorf("update %s %s: %w", modelName, recordID, err)
	}
	return nil
}

func (d *Dispatcher) callExternal(ctx context.Context, params map[string]any) error {
	name := stringParam(params, "name", "")
	if name == "" {
		return model.NewInvalidArgumentError("call_external requires a name param")
	}

	d.mu.RLock()
	call, ok := d.externals[name]
	d.mu.RUnlock()
	if !ok {
		return model.NewInvalidArgumentError(fmt.Sprintf("external call %q is not registered", name))
	}

	if err := call(ctx, params); err != nil {
		return fmt.Errorf("external call %q: %w", name, err)
	}
	return nil
}

// resolveRecipients accepts an explicit list or a role group name. A bare
// string is resolved through the RecipientResolver.
func (d *Dispatcher) resolveRecipients(ctx context.Context, v any) ([]string, error) {
	switch recipients := v.(type) {
	case nil:
		return nil, model.NewInvalidArgumentError("notify requires a recipients param")
	case []string:
		return recipients, nil
	case []any:
		out := make([]string, 0, len(recipients))
		for _, r := range recipients {
			out = append(out, fmt.Sprint(r))
		}
		return out, nil
	case string:
		return d.resolver.Resolve(ctx, recipients)
	}
	return nil, model.NewInvalidArgumentError(fmt.Sprintf("unsupported recipients type %T", v))
}

// WaitDuration extracts the wait duration from a wait step's params.
// Accepts a Go duration string ("90s") or a numeric seconds value, the
// form the reference configuration used.
func WaitDuration(step model.Step, ec model.ExecutionContext) (time.Duration, error) {
	params := RenderParams(step.Params, ec)
	raw, ok := params["duration"]
	if !ok {
		raw, ok = params["wait_time"]
	}
	if !ok {
		return 0, model.NewInvalidArgumentError("wait requires a duration param")
	}

	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, model.NewInvalidArgumentError(fmt.Sprintf("invalid wait duration %q", v))
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return 0, model.NewInvalidArgumentError(fmt.Sprintf("invalid wait duration type %T", raw))
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		return fmt.Sprint(v)
	}
	return fallback
}

func mapParam(params map[string]any, key string) map[string]any {
	if v, ok := params[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}
