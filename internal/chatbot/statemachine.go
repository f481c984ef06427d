package chatbot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mcastro2021/barrioflow/internal/observability"
	"github.com/mcastro2021/barrioflow/model"
)

// WorkflowRunner runs a task's commit workflow.
type WorkflowRunner interface {
	Execute(ctx context.Context, workflowID string, initial model.ExecutionContext) (model.ExecutionRecord, error)
}

// AutomationRunner fires an automation-type event. Used for the
// emergency protocol.
type AutomationRunner interface {
	Execute(ctx context.Context, automationType string, payload model.ExecutionContext) (model.ExecutionRecord, error)
}

const emergencyAutomationType = "security_monitoring"

const emergencyReply = "🚨 **ALERTA DE EMERGENCIA ACTIVADA** 🚨\n\n" +
	"He notificado inmediatamente al equipo de seguridad y administración.\n\n" +
	"**Mantén la calma y sigue estas instrucciones:**\n" +
	"1. Si estás en peligro, llama al 911\n" +
	"2. Aléjate del área si es necesario\n" +
	"3. El equipo de seguridad llegará pronto\n" +
	"4. Mantente disponible para más información\n\n" +
	"¿Necesitas ayuda adicional?"

// Canned replies for conversational intents.
var conversationalReplies = map[model.Intent]string{
	model.IntentGreeting:          "¡Hola! Soy el asistente virtual del barrio. ¿En qué puedo ayudarte hoy?",
	model.IntentGoodbye:           "¡Hasta luego! No dudes en volver si necesitas ayuda.",
	model.IntentHelp:              "Puedo ayudarte con:\n• Solicitudes de mantenimiento\n• Programación de visitas\n• Reservas de espacios comunes\n• Consultas de pagos\n• Reportes de seguridad\n¿Qué necesitas?",
	model.IntentPaymentQuery:      "Te ayudo con la consulta de pagos. Déjame verificar tu información.",
	model.IntentSecurityReport:    "Entiendo que necesitas reportar un incidente de seguridad. Esto es importante.",
	model.IntentAutomationRequest: "Te ayudo a configurar automatizaciones. ¿Qué proceso quieres automatizar?",
	model.IntentGeneralQuery:      "Entiendo tu consulta. ¿Podrías darme más detalles para ayudarte mejor?",
}

// Reply is the assistant's answer to one user message.
type Reply struct {
	Message       string            `json:"message"`
	Mode          model.SessionMode `json:"mode"`
	Intent        model.Intent      `json:"intent"`
	NextStep      string            `json:"next_step,omitempty"`
	TaskCompleted bool              `json:"task_completed,omitempty"`
}

// StateMachine drives conversational sessions: it classifies each
// message, dispatches on the session mode, and commits finished tasks
// through the workflow engine. Turns within a session are serialized by
// the session store's per-session lock.
type StateMachine struct {
	store       *SessionStore
	registry    *Registry
	classifier  model.IntentClassifier
	engine      WorkflowRunner
	automations AutomationRunner
	mirror      model.SessionMirror
	logger      *zap.Logger
	metrics     *observability.Metrics
	clock       model.Clock
}

// NewStateMachine wires the state machine. mirror may be a NoopMirror;
// clock and metrics may be nil.
func NewStateMachine(registry *Registry, classifier model.IntentClassifier, engine WorkflowRunner, automations AutomationRunner, mirror model.SessionMirror, logger *zap.Logger, metrics *observability.Metrics, clock model.Clock) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = model.SystemClock()
	}
	if mirror == nil {
		mirror = NoopMirror{}
	}
	return &StateMachine{
		store:       NewSessionStore(),
		registry:    registry,
		classifier:  classifier,
		engine:      engine,
		automations: automations,
		mirror:      mirror,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
	}
}

// StartSession opens a new conversation for the user.
func (m *StateMachine) StartSession(ctx context.Context, userID, userName string) (model.ConversationSession, error) {
	now := m.clock.Now()
	session := model.ConversationSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		UserName:  userName,
		Mode:      model.ModeConversational,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.store.Put(session)
	if m.metrics != nil {
		m.metrics.ChatSessionsActive.Set(float64(m.store.Len()))
	}
	if err := m.mirror.Save(ctx, session); err != nil {
		m.logger.Warn("session mirror save failed",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
	m.logger.Info("chat session started",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID))
	return session, nil
}

// Resume rehydrates a mirrored session after a restart.
func (m *StateMachine) Resume(ctx context.Context, sessionID string) (model.ConversationSession, error) {
	if session, err := m.store.Get(sessionID); err == nil {
		return session, nil
	}
	session, err := m.mirror.Load(ctx, sessionID)
	if err != nil {
		return model.ConversationSession{}, err
	}
	m.store.Put(session)
	if m.metrics != nil {
		m.metrics.ChatSessionsActive.Set(float64(m.store.Len()))
	}
	return session, nil
}

// EndSession closes a conversation and mirrors its final state.
func (m *StateMachine) EndSession(ctx context.Context, sessionID string) error {
	session, err := m.store.Delete(sessionID)
	if err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.ChatSessionsActive.Set(float64(m.store.Len()))
	}
	session.UpdatedAt = m.clock.Now()
	if err := m.mirror.Save(ctx, session); err != nil {
		m.logger.Warn("session mirror save failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
	m.logger.Info("chat session ended", zap.String("session_id", sessionID))
	return nil
}

// History returns a session's conversation history.
func (m *StateMachine) History(sessionID string) ([]model.Message, error) {
	session, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return append([]model.Message(nil), session.History...), nil
}

// Process handles one user message and returns the assistant's reply.
// The full session state is mirrored after both messages of the turn
// are appended.
func (m *StateMachine) Process(ctx context.Context, sessionID, text string) (Reply, error) {
	ctx, span := observability.Tracer().Start(ctx, "chatbot.Process")
	defer span.End()
	span.SetAttributes(observability.AttrSessionID.String(sessionID))

	start := m.clock.Now()
	var reply Reply
	var mirrored model.ConversationSession

	err := m.store.WithSession(sessionID, func(session *model.ConversationSession) error {
		now := m.clock.Now()
		intent := m.classifier.Classify(text)
		session.History = append(session.History, model.Message{
			Role:      "user",
			Content:   text,
			Intent:    intent,
			Timestamp: now,
		})

		modeBefore := session.Mode
		switch session.Mode {
		case model.ModeEmergencyResponse:
			reply = m.handleEmergencyFollowUp(session)
		case model.ModeTaskExecution:
			reply = m.handleTaskTurn(ctx, session, text, intent)
		default:
			reply = m.handleConversationalTurn(ctx, session, text, intent)
		}
		reply.Intent = intent

		session.History = append(session.History, model.Message{
			Role:      "assistant",
			Content:   reply.Message,
			Intent:    intent,
			Timestamp: m.clock.Now(),
		})
		session.UpdatedAt = m.clock.Now()
		mirrored = *session

		span.SetAttributes(
			observability.AttrSessionMode.String(string(session.Mode)),
			observability.AttrIntent.String(string(intent)),
		)
		if m.metrics != nil {
			m.metrics.ChatTurnsTotal.WithLabelValues(string(modeBefore), string(intent)).Inc()
			m.metrics.ChatTurnDuration.WithLabelValues(string(modeBefore)).Observe(m.clock.Now().Sub(start).Seconds())
		}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}

	if err := m.mirror.Save(ctx, mirrored); err != nil {
		m.logger.Warn("session mirror save failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
	return reply, nil
}

func (m *StateMachine) handleConversationalTurn(ctx context.Context, session *model.ConversationSession, text string, intent model.Intent) Reply {
	if intent == model.IntentEmergency {
		return m.activateEmergency(ctx, session, text)
	}

	if flow, ok := m.registry.FlowForIntent(intent); ok {
		session.Mode = model.ModeTaskExecution
		session.CurrentTask = &model.Task{
			Type: flow.Type,
			Step: flow.FirstStep,
			Data: model.ExecutionContext{},
		}
		return Reply{
			Message:  flow.Intro,
			Mode:     model.ModeTaskExecution,
			NextStep: flow.FirstPrompt,
		}
	}

	message, ok := conversationalReplies[intent]
	if !ok {
		message = conversationalReplies[model.IntentGeneralQuery]
	}
	return Reply{Message: message, Mode: model.ModeConversational}
}

func (m *StateMachine) handleTaskTurn(ctx context.Context, session *model.ConversationSession, text string, intent model.Intent) Reply {
	// An emergency overrides whatever task is in flight; the collected
	// data is discarded.
	if intent == model.IntentEmergency {
		if session.CurrentTask != nil {
			m.logger.Warn("task discarded by emergency override",
				zap.String("session_id", session.ID),
				zap.String("task_type", session.CurrentTask.Type),
				zap.String("task_step", session.CurrentTask.Step))
			session.CurrentTask = nil
		}
		return m.activateEmergency(ctx, session, text)
	}

	if session.CurrentTask == nil {
		session.Mode = model.ModeConversational
		return Reply{
			Message: "Volviendo al modo conversacional. ¿En qué puedo ayudarte?",
			Mode:    model.ModeConversational,
		}
	}

	task := session.CurrentTask
	flow, ok := m.registry.Flow(task.Type)
	var handler StepHandler
	if ok {
		handler, ok = flow.Handler(task.Step)
	}
	if !ok {
		// Configuration bug: fail closed to conversational instead of
		// propagating.
		mismatch := model.NewTaskHandlerMismatchError(task.Type, task.Step)
		m.logger.Error("task handler mismatch",
			zap.String("session_id", session.ID),
			zap.Error(mismatch))
		session.Mode = model.ModeConversational
		session.CurrentTask = nil
		return Reply{
			Message: "Lo siento, ocurrió un problema con la tarea en curso. Volvamos a empezar: ¿en qué puedo ayudarte?",
			Mode:    model.ModeConversational,
		}
	}

	outcome := handler(task, text, m.clock.Now())
	if outcome.NextStep != "" {
		task.Step = outcome.NextStep
	}
	if !outcome.Commit {
		return Reply{
			Message:  outcome.Reply,
			Mode:     model.ModeTaskExecution,
			NextStep: task.Step,
		}
	}
	return m.commitTask(ctx, session, flow)
}

func (m *StateMachine) commitTask(ctx context.Context, session *model.ConversationSession, flow *Flow) Reply {
	task := session.CurrentTask
	trace.SpanFromContext(ctx).SetAttributes(observability.AttrTaskType.String(flow.Type))

	initial := task.Data.Clone()
	initial["user_id"] = session.UserID
	initial["user_name"] = session.UserName

	rec, err := m.engine.Execute(ctx, flow.CommitWorkflowID, initial)

	session.Mode = model.ModeConversational
	session.CurrentTask = nil

	if err != nil {
		m.logger.Error("task commit workflow failed",
			zap.String("session_id", session.ID),
			zap.String("task_type", task.Type),
			zap.String("workflow_id", flow.CommitWorkflowID),
			zap.Error(err))
		return Reply{
			Message: "Lo siento, no pude completar la solicitud en este momento. Por favor, intenta nuevamente más tarde.",
			Mode:    model.ModeConversational,
		}
	}

	if m.metrics != nil {
		m.metrics.ChatTasksCommitted.WithLabelValues(task.Type).Inc()
	}
	m.logger.Info("chat task committed",
		zap.String("session_id", session.ID),
		zap.String("task_type", task.Type),
		zap.String("execution_id", rec.ID))
	return Reply{
		Message:       flow.CommitReply(task.Data, rec),
		Mode:          model.ModeConversational,
		TaskCompleted: true,
	}
}

// activateEmergency fires the security-monitoring automation and moves
// the session to emergency mode for one turn.
func (m *StateMachine) activateEmergency(ctx context.Context, session *model.ConversationSession, text string) Reply {
	session.Mode = model.ModeEmergencyResponse

	userName := session.UserName
	if userName == "" {
		userName = "Usuario"
	}
	payload := model.ExecutionContext{
		"alert_description": fmt.Sprintf("Emergencia reportada por %s: %s", userName, text),
		"priority":          "emergency",
		"user_id":           session.UserID,
	}
	if _, err := m.automations.Execute(ctx, emergencyAutomationType, payload); err != nil {
		// The user still gets the protocol instructions; the failed
		// escalation is an operator problem.
		m.logger.Error("emergency automation failed",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}

	return Reply{Message: emergencyReply, Mode: model.ModeEmergencyResponse}
}

// handleEmergencyFollowUp acknowledges the message after an emergency
// and returns the session to conversational mode.
func (m *StateMachine) handleEmergencyFollowUp(session *model.ConversationSession) Reply {
	session.Mode = model.ModeConversational
	return Reply{
		Message: "El equipo de seguridad ya fue notificado y está en camino. ¿Puedo ayudarte con algo más?",
		Mode:    model.ModeConversational,
	}
}
