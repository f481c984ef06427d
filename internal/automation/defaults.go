package automation

import "github.com/mcastro2021/barrioflow/model"

// Built-in automation types accepted from the host application.
const (
	TypeMaintenanceScheduling = "maintenance_scheduling"
	TypeVisitApproval         = "visit_approval"
	TypeExpenseAlerts         = "expense_alerts"
	TypeSecurityMonitoring    = "security_monitoring"
)

// Chat commit workflow IDs. The conversational state machine runs these
// when a task reaches its terminal step.
const (
	WorkflowChatMaintenance = "chat.maintenance_request"
	WorkflowChatVisit       = "chat.visit_schedule"
	WorkflowChatReservation = "chat.reservation_book"
)

// DefaultWorkflows returns the built-in workflow definitions.
func DefaultWorkflows() []model.WorkflowDefinition {
	return []model.WorkflowDefinition{
		{
			ID:   "preventive_maintenance",
			Name: "Mantenimiento Preventivo",
			Steps: []model.Step{
				{
					Name:   "create_maintenance_record",
					Action: model.ActionCreateRecord,
					Params: map[string]any{
						"model": "maintenance",
						"fields": map[string]any{
							"title":          "Mantenimiento Preventivo Programado",
							"description":    "Mantenimiento preventivo automático para {equipment}",
							"priority":       "medium",
							"status":         "scheduled",
							"scheduled_date": "{scheduled_date}",
							"equipment":      "{equipment}",
						},
					},
				},
				{
					Name:   "notify_maintenance_team",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "maintenance_team",
						"title":      "Nuevo Mantenimiento Programado",
						"message":    "Se ha programado mantenimiento preventivo para {equipment} el {scheduled_date}",
					},
				},
			},
		},
		{
			ID:   "expense_alert",
			Name: "Alerta de Gastos",
			Steps: []model.Step{
				{
					Name:   "notify_admins",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "admin_users",
						"title":      "Alerta de Gasto Excesivo",
						"message":    "El gasto en {category} ha superado el límite establecido: ${amount}",
					},
				},
			},
		},
		{
			ID:   "auto_visit_approval",
			Name: "Aprobación Automática de Visitas",
			Steps: []model.Step{
				{
					Name:   "notify_resident",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "{resident_id}",
						"title":      "Solicitud de Visita Recibida",
						"message":    "Nueva solicitud de visita de {visitor_name} para el {visit_date}",
					},
				},
				{
					Name:   "grace_period",
					Action: model.ActionWait,
					Params: map[string]any{"wait_time": 3600},
				},
				{
					Name:   "approve_visit",
					Action: model.ActionUpdateRecord,
					Params: map[string]any{
						"model":     "visit",
						"record_id": "{visit_id}",
						"fields":    map[string]any{"status": "approved"},
					},
					// Only frequent visitors are auto-approved; anyone
					// else stays pending for manual review.
					Conditions: []model.Condition{
						{Field: "visitor_type", Op: model.OpEquals, Value: "frequent"},
					},
				},
				{
					Name:   "notify_visitor",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "{visitor_id}",
						"title":      "Visita Aprobada",
						"message":    "Tu solicitud de visita ha sido aprobada automáticamente",
					},
					Conditions: []model.Condition{
						{Field: "visitor_type", Op: model.OpEquals, Value: "frequent"},
					},
				},
			},
		},
		{
			ID:   "security_alert_workflow",
			Name: "Alerta de Seguridad",
			Steps: []model.Step{
				{
					Name:   "create_security_report",
					Action: model.ActionCreateRecord,
					Params: map[string]any{
						"model": "security_report",
						"fields": map[string]any{
							"title":       "Alerta de Seguridad Automática",
							"description": "{alert_description}",
							"priority":    "high",
							"status":      "active",
						},
					},
				},
				{
					Name:   "notify_security_team",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "security_team",
						"title":      "Alerta de Seguridad",
						"message":    "Nueva alerta de seguridad: {alert_description}",
					},
				},
				{
					Name:   "notify_residents",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "all_residents",
						"title":      "Alerta de Seguridad",
						"message":    "Se ha detectado una actividad sospechosa. Por favor, mantengan la calma y sigan las instrucciones de seguridad.",
					},
				},
			},
		},
		{
			ID:   WorkflowChatMaintenance,
			Name: "Alta de Solicitud de Mantenimiento",
			Steps: []model.Step{
				{
					Name:   "create_maintenance_record",
					Action: model.ActionCreateRecord,
					Params: map[string]any{
						"model": "maintenance",
						"fields": map[string]any{
							"title":       "Solicitud vía chatbot",
							"description": "{description}",
							"location":    "{location}",
							"priority":    "{priority}",
							"status":      "pending",
							"reported_by": "{user_id}",
						},
					},
				},
				{
					Name:   "notify_maintenance_team",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "maintenance_team",
						"title":      "Nueva Solicitud de Mantenimiento",
						"message":    "Solicitud de {user_name}: {description} en {location} (prioridad {priority})",
					},
				},
			},
		},
		{
			ID:   WorkflowChatVisit,
			Name: "Registro de Visita",
			Steps: []model.Step{
				{
					Name:   "create_visit_record",
					Action: model.ActionCreateRecord,
					Params: map[string]any{
						"model": "visit",
						"fields": map[string]any{
							"visitor_name": "{visitor_name}",
							"visit_date":   "{visit_date}",
							"status":       "pending",
							"resident_id":  "{user_id}",
						},
					},
				},
				{
					Name:   "notify_security_team",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "security_team",
						"title":      "Visita Programada",
						"message":    "{user_name} registró la visita de {visitor_name} para el {visit_date}",
					},
				},
			},
		},
		{
			ID:   WorkflowChatReservation,
			Name: "Reserva de Espacio Común",
			Steps: []model.Step{
				{
					Name:   "create_reservation_record",
					Action: model.ActionCreateRecord,
					Params: map[string]any{
						"model": "reservation",
						"fields": map[string]any{
							"space":            "{space}",
							"reservation_date": "{reservation_date}",
							"status":           "pending",
							"resident_id":      "{user_id}",
						},
					},
				},
				{
					Name:   "notify_admins",
					Action: model.ActionNotify,
					Params: map[string]any{
						"recipients": "admin_users",
						"title":      "Nueva Reserva",
						"message":    "{user_name} reservó {space} para el {reservation_date}",
					},
				},
			},
		},
	}
}

// DefaultRules returns the built-in automation-type bindings.
func DefaultRules() []model.AutomationRule {
	return []model.AutomationRule{
		{Type: TypeMaintenanceScheduling, WorkflowID: "preventive_maintenance"},
		{Type: TypeVisitApproval, WorkflowID: "auto_visit_approval"},
		{Type: TypeExpenseAlerts, WorkflowID: "expense_alert"},
		{Type: TypeSecurityMonitoring, WorkflowID: "security_alert_workflow", BaseContext: model.ExecutionContext{
			"alert_description": "Actividad sospechosa detectada",
		}},
	}
}

// RegisterDefaults installs the built-in workflows and bindings.
func RegisterDefaults(engine WorkflowEngine, mgr *Manager) error {
	for _, def := range DefaultWorkflows() {
		if err := engine.Register(def); err != nil {
			return err
		}
	}
	for _, rule := range DefaultRules() {
		if err := mgr.Register(rule); err != nil {
			return err
		}
	}
	return nil
}
