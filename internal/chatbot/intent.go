// Package chatbot implements the conversational task state machine:
// intent classification, per-session turn handling, and the multi-turn
// data-collection flows that end in a workflow commit.
package chatbot

import (
	"regexp"
	"strings"

	"github.com/mcastro2021/barrioflow/model"
)

type intentRule struct {
	intent   model.Intent
	patterns []*regexp.Regexp
}

// RegexClassifier matches messages against ordered Spanish and English
// keyword patterns. Emergency is evaluated first: the security patterns
// also mention "emergencia", and an emergency must never be downgraded
// to a routine security report.
type RegexClassifier struct {
	rules []intentRule
}

// NewRegexClassifier builds the classifier with the built-in patterns.
func NewRegexClassifier() *RegexClassifier {
	compile := func(exprs ...string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(exprs))
		for i, expr := range exprs {
			out[i] = regexp.MustCompile(expr)
		}
		return out
	}

	return &RegexClassifier{rules: []intentRule{
		{model.IntentEmergency, compile(
			`\b(emergencia|emergency|urgente|urgent|peligro|danger)\b`,
			`\b(ayuda inmediata|immediate help|socorro)\b`,
		)},
		{model.IntentGreeting, compile(
			`\b(hola|buenos días|buenas tardes|buenas noches|saludos)\b`,
			`\b(hello|hi|good morning|good afternoon|good evening)\b`,
		)},
		{model.IntentGoodbye, compile(
			`\b(adiós|hasta luego|nos vemos|chao|bye)\b`,
			`\b(goodbye|see you|bye bye|farewell)\b`,
		)},
		{model.IntentHelp, compile(
			`\b(ayuda|soporte|asistencia|help|support)\b`,
			`\b(qué puedes hacer|what can you do|funciones|features)\b`,
		)},
		{model.IntentMaintenanceRequest, compile(
			`\b(mantenimiento|reparación|arreglar|fix|repair|maintenance)\b`,
			`\b(problema con|issue with|broken|dañado|averiado|rota|roto)\b`,
		)},
		{model.IntentVisitSchedule, compile(
			`\b(visita|visitante|visitor|schedule visit|agendar visita)\b`,
			`\b(invitado|guest|invitar|invite)\b`,
		)},
		{model.IntentReservationBook, compile(
			`\b(reserva|reservar|booking|book|reservation)\b`,
			`\b(salón|espacio común|common area|hall|room)\b`,
		)},
		{model.IntentPaymentQuery, compile(
			`\b(pago|cuota|payment|fee|bill|invoice)\b`,
			`\b(cuánto debo|how much|balance|saldo)\b`,
		)},
		{model.IntentSecurityReport, compile(
			`\b(seguridad|security|incidente|incident|alerta|alert)\b`,
			`\b(sospechoso|suspicious)\b`,
		)},
		{model.IntentAutomationRequest, compile(
			`\b(automatizar|automate|programar|schedule|automático|automatic)\b`,
			`\b(recordatorio|reminder|notificación automática|auto notification)\b`,
		)},
	}}
}

// Classify implements model.IntentClassifier. Unmatched messages fall
// back to general_query.
func (c *RegexClassifier) Classify(text string) model.Intent {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(lower) {
				return rule.intent
			}
		}
	}
	return model.IntentGeneralQuery
}
