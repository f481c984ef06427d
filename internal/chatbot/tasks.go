package chatbot

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcastro2021/barrioflow/model"
)

// visitDateLayout is the date format asked of users (DD/MM/YYYY HH:MM).
const visitDateLayout = "02/01/2006 15:04"

// StepOutcome is the result of feeding one user message into a task
// step handler.
type StepOutcome struct {
	// Reply is the assistant message, except on commit, where the
	// flow's CommitReply builds it from the execution result.
	Reply string
	// NextStep is the step the task advances to; an empty value keeps
	// the current step (re-prompt).
	NextStep string
	// Commit ends the task by running the flow's commit workflow.
	Commit bool
}

// StepHandler consumes one user message for a (task type, step) pair.
type StepHandler func(task *model.Task, input string, now time.Time) StepOutcome

// Flow is one multi-turn data-collection task.
type Flow struct {
	Type             string
	FirstStep        string
	Intro            string
	FirstPrompt      string
	CommitWorkflowID string
	CommitReply      func(data model.ExecutionContext, rec model.ExecutionRecord) string

	handlers map[string]StepHandler
}

// Handler returns the step handler for the given step.
func (f *Flow) Handler(step string) (StepHandler, bool) {
	h, ok := f.handlers[step]
	return h, ok
}

// Registry holds the task flows by type and maps task intents to them.
type Registry struct {
	flows    map[string]*Flow
	byIntent map[model.Intent]string
}

// NewRegistry builds the registry with the three built-in flows.
func NewRegistry() *Registry {
	r := &Registry{
		flows: make(map[string]*Flow),
		byIntent: map[model.Intent]string{
			model.IntentMaintenanceRequest: "maintenance_request",
			model.IntentVisitSchedule:      "visit_schedule",
			model.IntentReservationBook:    "reservation_book",
		},
	}
	r.register(maintenanceFlow())
	r.register(visitFlow())
	r.register(reservationFlow())
	return r
}

func (r *Registry) register(f *Flow) {
	r.flows[f.Type] = f
}

// Flow returns a flow by task type.
func (r *Registry) Flow(taskType string) (*Flow, bool) {
	f, ok := r.flows[taskType]
	return f, ok
}

// FlowForIntent returns the flow a task intent starts, if any.
func (r *Registry) FlowForIntent(intent model.Intent) (*Flow, bool) {
	taskType, ok := r.byIntent[intent]
	if !ok {
		return nil, false
	}
	return r.Flow(taskType)
}

func maintenanceFlow() *Flow {
	priorityByChoice := map[string]string{
		"1": "low",
		"2": "medium",
		"3": "high",
		"4": "emergency",
	}

	return &Flow{
		Type:             "maintenance_request",
		FirstStep:        "collecting_details",
		Intro:            "Entiendo que necesitas reportar un problema de mantenimiento. Te ayudo a crear la solicitud.",
		FirstPrompt:      "Por favor, describe el problema de mantenimiento que necesitas reportar.",
		CommitWorkflowID: "chat.maintenance_request",
		CommitReply: func(data model.ExecutionContext, rec model.ExecutionRecord) string {
			return fmt.Sprintf(
				"✅ Solicitud de mantenimiento creada exitosamente.\n\n**Detalles:**\n• Problema: %v\n• Ubicación: %v\n• Prioridad: %s\n• ID: #%v\n\nEl equipo de mantenimiento será notificado automáticamente.",
				data["description"], data["location"],
				capitalize(fmt.Sprint(data["priority"])),
				rec.Context["maintenance_id"])
		},
		handlers: map[string]StepHandler{
			"collecting_details": func(task *model.Task, input string, _ time.Time) StepOutcome {
				task.Data["description"] = input
				return StepOutcome{
					Reply:    "Entiendo el problema. ¿En qué área o ubicación específica se encuentra?",
					NextStep: "collecting_location",
				}
			},
			"collecting_location": func(task *model.Task, input string, _ time.Time) StepOutcome {
				task.Data["location"] = input
				return StepOutcome{
					Reply:    "Gracias. ¿Qué tan urgente es este problema?\n1. Baja prioridad\n2. Media prioridad\n3. Alta prioridad\n4. Emergencia",
					NextStep: "collecting_priority",
				}
			},
			"collecting_priority": func(task *model.Task, input string, _ time.Time) StepOutcome {
				priority, ok := priorityByChoice[strings.TrimSpace(input)]
				if !ok {
					priority = "medium"
				}
				task.Data["priority"] = priority
				return StepOutcome{Commit: true}
			},
		},
	}
}

func visitFlow() *Flow {
	return &Flow{
		Type:             "visit_schedule",
		FirstStep:        "collecting_visitor_info",
		Intro:            "Te ayudo a programar la visita. Necesito algunos datos del visitante.",
		FirstPrompt:      "¿Cuál es el nombre del visitante y cuándo planeas recibirlo?",
		CommitWorkflowID: "chat.visit_schedule",
		CommitReply: func(data model.ExecutionContext, rec model.ExecutionRecord) string {
			return fmt.Sprintf(
				"✅ Solicitud de visita creada exitosamente.\n\n**Detalles:**\n• Visitante: %v\n• Fecha: %v\n• ID: #%v\n\nLa solicitud será revisada por administración.",
				data["visitor_name"], data["visit_date"], rec.Context["visit_id"])
		},
		handlers: map[string]StepHandler{
			"collecting_visitor_info": func(task *model.Task, input string, _ time.Time) StepOutcome {
				task.Data["visitor_name"] = input
				return StepOutcome{
					Reply:    "Gracias. ¿Para qué fecha y hora planeas recibir al visitante? (formato: DD/MM/YYYY HH:MM)",
					NextStep: "collecting_visit_date",
				}
			},
			"collecting_visit_date": func(task *model.Task, input string, _ time.Time) StepOutcome {
				visitDate, err := time.Parse(visitDateLayout, strings.TrimSpace(input))
				if err != nil {
					return StepOutcome{
						Reply: "No pude entender la fecha. Por favor, usa el formato DD/MM/YYYY HH:MM",
					}
				}
				task.Data["visit_date"] = visitDate.Format(visitDateLayout)
				return StepOutcome{
					Reply: fmt.Sprintf(
						"Perfecto. Voy a crear la solicitud de visita.\n\n¿Confirmas los datos?\n• Visitante: %v\n• Fecha: %s",
						task.Data["visitor_name"], visitDate.Format(visitDateLayout)),
					NextStep: "confirming_visit",
				}
			},
			"confirming_visit": func(task *model.Task, input string, _ time.Time) StepOutcome {
				switch strings.ToLower(strings.TrimSpace(input)) {
				case "sí", "si", "yes", "confirmo", "correcto":
					return StepOutcome{Commit: true}
				}
				// Anything else restarts the collection; the session
				// stays in task mode.
				return StepOutcome{
					Reply:    "Entendido. Vamos a empezar de nuevo. ¿Cuál es el nombre del visitante?",
					NextStep: "collecting_visitor_info",
				}
			},
		},
	}
}

func reservationFlow() *Flow {
	return &Flow{
		Type:             "reservation_book",
		FirstStep:        "collecting_reservation_details",
		Intro:            "Te ayudo con la reserva del espacio común. ¿Qué espacio necesitas y para cuándo?",
		FirstPrompt:      "¿Qué espacio necesitas reservar y para qué fecha?",
		CommitWorkflowID: "chat.reservation_book",
		CommitReply: func(data model.ExecutionContext, rec model.ExecutionRecord) string {
			return fmt.Sprintf(
				"✅ Reserva creada exitosamente.\n\n**Detalles:**\n• Espacio: %v\n• Fecha: %v\n• ID: #%v\n\nLa reserva será confirmada por administración.",
				data["space"], data["reservation_date"], rec.Context["reservation_id"])
		},
		handlers: map[string]StepHandler{
			"collecting_reservation_details": func(task *model.Task, input string, _ time.Time) StepOutcome {
				task.Data["space"] = input
				return StepOutcome{
					Reply:    "Gracias. ¿Para qué fecha y hora necesitas la reserva? (formato: DD/MM/YYYY HH:MM)",
					NextStep: "collecting_reservation_date",
				}
			},
			"collecting_reservation_date": func(task *model.Task, input string, _ time.Time) StepOutcome {
				reservationDate, err := time.Parse(visitDateLayout, strings.TrimSpace(input))
				if err != nil {
					return StepOutcome{
						Reply: "No pude entender la fecha. Por favor, usa el formato DD/MM/YYYY HH:MM",
					}
				}
				task.Data["reservation_date"] = reservationDate.Format(visitDateLayout)
				return StepOutcome{Commit: true}
			},
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
