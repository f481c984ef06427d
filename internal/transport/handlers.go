package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mcastro2021/barrioflow/internal/chatbot"
	"github.com/mcastro2021/barrioflow/model"
)

// EngineAPI is the workflow engine surface exposed over HTTP.
type EngineAPI interface {
	Execute(ctx context.Context, workflowID string, initial model.ExecutionContext) (model.ExecutionRecord, error)
	Execution(executionID string) (model.ExecutionRecord, error)
	History(workflowID string) []model.ExecutionRecord
	Stats(workflowID string) model.ExecutionStats
	Cancel(executionID string) error
}

// AutomationAPI fires automation-type events.
type AutomationAPI interface {
	Execute(ctx context.Context, automationType string, payload model.ExecutionContext) (model.ExecutionRecord, error)
}

// ChatbotAPI is the conversation surface exposed over HTTP.
type ChatbotAPI interface {
	StartSession(ctx context.Context, userID, userName string) (model.ConversationSession, error)
	Process(ctx context.Context, sessionID, text string) (chatbot.Reply, error)
	History(sessionID string) ([]model.Message, error)
	EndSession(ctx context.Context, sessionID string) error
}

// AlertAPI lists and resolves threshold alerts.
type AlertAPI interface {
	Active() []model.Alert
	Resolve(id string, at time.Time) error
}

func handleWorkflowExecute(engine EngineAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowID := chi.URLParam(r, "workflowID")

		var body struct {
			Context model.ExecutionContext `json:"context"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				WriteBadRequest(w, "invalid JSON body")
				return
			}
		}

		rec, err := engine.Execute(r.Context(), workflowID, body.Context)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, rec)
	}
}

func handleWorkflowHistory(engine EngineAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowID := chi.URLParam(r, "workflowID")
		WriteJSON(w, http.StatusOK, map[string]any{
			"executions": engine.History(workflowID),
		})
	}
}

func handleWorkflowStats(engine EngineAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, engine.Stats(chi.URLParam(r, "workflowID")))
	}
}

func handleExecutionGet(engine EngineAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := engine.Execution(chi.URLParam(r, "executionID"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, rec)
	}
}

func handleExecutionCancel(engine EngineAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		executionID := chi.URLParam(r, "executionID")
		if err := engine.Cancel(executionID); err != nil {
			WriteError(w, err)
			return
		}
		rec, err := engine.Execution(executionID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, rec)
	}
}

func handleAutomationExecute(automations AutomationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		automationType := chi.URLParam(r, "automationType")

		var payload model.ExecutionContext
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				WriteBadRequest(w, "invalid JSON body")
				return
			}
		}

		rec, err := automations.Execute(r.Context(), automationType, payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, rec)
	}
}

func handleSessionStart(bot ChatbotAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID   string `json:"user_id"`
			UserName string `json:"user_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteBadRequest(w, "invalid JSON body")
			return
		}
		if body.UserID == "" {
			WriteBadRequest(w, "user_id is required")
			return
		}

		session, err := bot.StartSession(r.Context(), body.UserID, body.UserName)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, session)
	}
}

func handleSessionMessage(bot ChatbotAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteBadRequest(w, "invalid JSON body")
			return
		}
		if body.Message == "" {
			WriteBadRequest(w, "message is required")
			return
		}

		reply, err := bot.Process(r.Context(), sessionID, body.Message)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, reply)
	}
}

func handleSessionHistory(bot ChatbotAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := bot.History(chi.URLParam(r, "sessionID"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"messages": history})
	}
}

func handleSessionEnd(bot ChatbotAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := bot.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusNoContent, nil)
	}
}

func handleAlertsActive(alerts AlertAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts.Active()})
	}
}

func handleAlertResolve(alerts AlertAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := alerts.Resolve(chi.URLParam(r, "alertID"), time.Now().UTC()); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusNoContent, nil)
	}
}
