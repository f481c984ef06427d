package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Dependencies holds the injected dependencies for the HTTP layer.
type Dependencies struct {
	Engine      EngineAPI
	Automations AutomationAPI
	Chatbot     ChatbotAPI
	Alerts      AlertAPI
	Logger      *zap.Logger

	HealthHandler  http.HandlerFunc
	ReadyHandler   http.HandlerFunc
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter creates the chi router with all route registrations. Health,
// readiness, and metrics live beside the API under the same listener.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(Recovery)

	r.Get("/healthz", deps.HealthHandler)
	r.Get("/readyz", deps.ReadyHandler)
	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, deps.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/{workflowID}/executions", handleWorkflowExecute(deps.Engine))
			r.Get("/{workflowID}/executions", handleWorkflowHistory(deps.Engine))
			r.Get("/{workflowID}/stats", handleWorkflowStats(deps.Engine))
		})
		r.Route("/executions", func(r chi.Router) {
			r.Get("/{executionID}", handleExecutionGet(deps.Engine))
			r.Post("/{executionID}/cancel", handleExecutionCancel(deps.Engine))
		})
		r.Post("/automations/{automationType}", handleAutomationExecute(deps.Automations))
		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", handleSessionStart(deps.Chatbot))
			r.Post("/{sessionID}/messages", handleSessionMessage(deps.Chatbot))
			r.Get("/{sessionID}/history", handleSessionHistory(deps.Chatbot))
			r.Delete("/{sessionID}", handleSessionEnd(deps.Chatbot))
		})
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", handleAlertsActive(deps.Alerts))
			r.Post("/{alertID}/resolve", handleAlertResolve(deps.Alerts))
		})
	})

	return r
}
