// Package transport contains the HTTP router and request handlers for
// the daemon's API: chat sessions, workflow executions, automation
// events, and alerts.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcastro2021/barrioflow/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes.
var statusForCode = map[string]int{
	model.ErrUnknownWorkflow:       http.StatusNotFound,
	model.ErrDuplicateWorkflow:     http.StatusConflict,
	model.ErrUnknownAutomationType: http.StatusNotFound,
	model.ErrActionExecution:       http.StatusBadGateway,
	model.ErrSessionNotFound:       http.StatusNotFound,
	model.ErrTaskHandlerMismatch:   http.StatusInternalServerError,
	model.ErrRecordNotFound:        http.StatusNotFound,
	model.ErrConflict:              http.StatusConflict,
	model.ErrInvalidArgument:       http.StatusBadRequest,
	model.ErrExecutionNotFound:     http.StatusNotFound,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes an ErrorEnvelope as JSON with the mapped status
// code. Non-envelope errors become a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		ee = &model.ErrorEnvelope{Code: "INTERNAL_ERROR", Message: "internal error"}
	}

	status := statusForCode[ee.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: ee})
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, msg string) {
	WriteError(w, model.NewInvalidArgumentError(msg))
}
