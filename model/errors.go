package model

import (
	"errors"
	"fmt"
)

// Standard error codes.
const (
	ErrUnknownWorkflow       = "UNKNOWN_WORKFLOW"
	ErrDuplicateWorkflow     = "DUPLICATE_WORKFLOW"
	ErrUnknownAutomationType = "UNKNOWN_AUTOMATION_TYPE"
	ErrActionExecution       = "ACTION_EXECUTION_ERROR"
	ErrSessionNotFound       = "SESSION_NOT_FOUND"
	ErrTaskHandlerMismatch   = "TASK_HANDLER_MISMATCH"
	ErrRecordNotFound        = "RECORD_NOT_FOUND"
	ErrConflict              = "CONFLICT"
	ErrInvalidArgument       = "INVALID_ARGUMENT"
	ErrExecutionNotFound     = "EXECUTION_NOT_FOUND"
)

// ErrorEnvelope is the typed error carried across component boundaries.
// It implements the error interface; no control-flow-by-panic crosses
// package boundaries.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *ErrorEnvelope) Unwrap() error { return e.cause }

// CodeOf returns the envelope code of err, or "" if err is not an
// ErrorEnvelope.
func CodeOf(err error) string {
	var env *ErrorEnvelope
	if errors.As(err, &env) {
		return env.Code
	}
	return ""
}

// NewUnknownWorkflowError returns an UNKNOWN_WORKFLOW error.
func NewUnknownWorkflowError(workflowID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUnknownWorkflow,
		Message: fmt.Sprintf("workflow %q is not registered", workflowID),
	}
}

// NewDuplicateWorkflowError returns a DUPLICATE_WORKFLOW error.
func NewDuplicateWorkflowError(workflowID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrDuplicateWorkflow,
		Message: fmt.Sprintf("workflow %q is already registered", workflowID),
	}
}

// NewUnknownAutomationTypeError returns an UNKNOWN_AUTOMATION_TYPE error.
func NewUnknownAutomationTypeError(automationType string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUnknownAutomationType,
		Message: fmt.Sprintf("automation type %q is not registered", automationType),
	}
}

// NewActionExecutionError wraps a failing action handler's cause. The
// workflow halts at the failing step; side effects already committed by
// earlier steps are not rolled back.
func NewActionExecutionError(step string, cause error) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrActionExecution,
		Message: fmt.Sprintf("step %q failed: %v", step, cause),
		cause:   cause,
	}
}

// NewSessionNotFoundError returns a SESSION_NOT_FOUND error. Callers
// should surface it as "start a new session".
func NewSessionNotFoundError(sessionID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrSessionNotFound,
		Message: fmt.Sprintf("session %q not found, start a new session", sessionID),
	}
}

// NewTaskHandlerMismatchError flags a task configuration bug: no handler
// registered for the session's (task type, step) pair.
func NewTaskHandlerMismatchError(taskType, step string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrTaskHandlerMismatch,
		Message: fmt.Sprintf("no handler for task %q step %q", taskType, step),
	}
}

// NewRecordNotFoundError returns a RECORD_NOT_FOUND error.
func NewRecordNotFoundError(model, id string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrRecordNotFound,
		Message: fmt.Sprintf("%s record %q not found", model, id),
	}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewInvalidArgumentError returns an INVALID_ARGUMENT error.
func NewInvalidArgumentError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidArgument, Message: msg}
}

// NewExecutionNotFoundError returns an EXECUTION_NOT_FOUND error.
func NewExecutionNotFoundError(executionID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrExecutionNotFound,
		Message: fmt.Sprintf("execution %q not found in history", executionID),
	}
}
