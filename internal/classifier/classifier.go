// Package classifier turns an inbound patient message into a structured
// Classification through three ordered layers: a deterministic emergency
// trigger table, an LLM call, and a keyword fallback.
package classifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/medassist-ai/triage-platform/internal/llm"
)

// Intent values for a classified message.
const (
	IntentGeneralQuery       = "general_query"
	IntentAppointmentRequest = "appointment_request"
	IntentDoctorInfo         = "doctor_info"
	IntentSymptomReport      = "symptom_report"
	IntentEmergency          = "emergency"
	IntentInsurance          = "insurance"
	IntentComplaint          = "complaint"
	IntentGreeting           = "greeting"
	IntentFarewell           = "farewell"
)

// Urgency levels, lowest to highest.
const (
	UrgencyNonUrgent = "non_urgent"
	UrgencyUrgent    = "urgent"
	UrgencyCritical  = "critical"
)

// Classification is the structured verdict for one inbound message.
// Produced once per message and never mutated afterward.
type Classification struct {
	Intent         string         `json:"intent"`
	Urgency        string         `json:"urgency"`
	Department     string         `json:"department,omitempty"`
	NeedsAmbulance bool           `json:"needs_ambulance"`
	Confidence     float64        `json:"confidence"`
	Entities       map[string]any `json:"entities,omitempty"`
}

var validIntents = map[string]bool{
	IntentGeneralQuery:       true,
	IntentAppointmentRequest: true,
	IntentDoctorInfo:         true,
	IntentSymptomReport:      true,
	IntentEmergency:          true,
	IntentInsurance:          true,
	IntentComplaint:          true,
	IntentGreeting:           true,
	IntentFarewell:           true,
}

var validUrgencies = map[string]bool{
	UrgencyNonUrgent: true,
	UrgencyUrgent:    true,
	UrgencyCritical:  true,
}

type emergencyTrigger struct {
	phrase     string
	department string
}

// emergencyTriggers is the layer-1 safety net. It runs before any model
// call and can never be bypassed. Checked in order.
var emergencyTriggers = []emergencyTrigger{
	{"chest pain", "Cardiology"},
	{"heart attack", "Cardiology"},
	{"can't breathe", "Pulmonology"},
	{"cannot breathe", "Pulmonology"},
	{"difficulty breathing", "Pulmonology"},
	{"choking", "Emergency"},
	{"severe bleeding", "Emergency"},
	{"bleeding heavily", "Emergency"},
	{"seizure", "Neurology"},
	{"convulsion", "Neurology"},
	{"unconscious", "Emergency"},
	{"not conscious", "Emergency"},
	{"passed out", "Emergency"},
	{"stroke", "Neurology"},
	{"slurred speech", "Neurology"},
	{"face drooping", "Neurology"},
	{"severe burn", "Emergency"},
	{"poisoning", "Emergency"},
	{"overdose", "Emergency"},
	{"suicidal", "Psychiatry"},
	{"suicide", "Psychiatry"},
	{"anaphylaxis", "Emergency"},
	{"allergic reaction severe", "Emergency"},
}

const classificationPrompt = `You are an AI assistant for a hospital communication system. Your job is to classify the patient's message into a structured intent.

CLASSIFY the message into one of these intents:
- general_query: General questions about the hospital, departments, services, visiting hours
- appointment_request: Wants to book, reschedule, or cancel an appointment
- doctor_info: Asking about a specific doctor, their schedule, specialization
- symptom_report: Describing symptoms or health concerns
- emergency: Reporting an emergency situation (chest pain, difficulty breathing, severe bleeding, seizures, unconsciousness, stroke symptoms)
- insurance: Questions about insurance, billing, payments, policies
- complaint: Filing a complaint or expressing dissatisfaction
- greeting: Simple hello or greeting
- farewell: Goodbye or end of conversation

URGENCY LEVELS:
- non_urgent: Normal query, no health risk
- urgent: Health concern that should be addressed soon
- critical: Immediate medical attention needed (always for emergency intent)

SAFETY RULES:
- If ANY emergency keywords are present (chest pain, can't breathe, bleeding heavily, seizure, unconscious, stroke), ALWAYS classify as emergency with critical urgency
- When in doubt about severity, escalate to higher urgency
- NEVER provide medical diagnosis or prescriptions
- NEVER downplay potential emergencies

Respond ONLY in this JSON format:
{
    "intent": "<intent_type>",
    "urgency": "<urgency_level>",
    "department": "<relevant department or null>",
    "needs_ambulance": <true/false>,
    "confidence": <0.0 to 1.0>,
    "entities": {"key": "value"}
}`

const defaultLLMTimeout = 5 * time.Second

// Cascade classifies messages. The LLM client may be nil, in which case
// layer 2 is skipped and only the rule layers run.
type Cascade struct {
	llm     llm.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCascade builds a classifier cascade around an optional LLM client.
func NewCascade(client llm.Client, model string, timeout time.Duration, logger *slog.Logger) *Cascade {
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{
		llm:     client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Classify runs the three layers in order, short-circuiting on the first
// that produces a verdict. It always returns a Classification and never
// returns an error; collaborator failures degrade to the keyword fallback.
func (c *Cascade) Classify(ctx context.Context, message string) Classification {
	if result, ok := c.checkEmergencyRules(message); ok {
		c.logger.Warn("rule-based emergency detected", "trigger", result.Entities["trigger"])
		return result
	}

	if c.llm != nil {
		if result, ok := c.llmClassify(ctx, message); ok {
			c.logger.Info("classified intent",
				"intent", result.Intent,
				"urgency", result.Urgency,
			)
			return result
		}
	}

	return c.fallbackClassify(message)
}

// checkEmergencyRules is the layer-1 safety net.
func (c *Cascade) checkEmergencyRules(message string) (Classification, bool) {
	lower := strings.ToLower(message)
	for _, trigger := range emergencyTriggers {
		if strings.Contains(lower, trigger.phrase) {
			return Classification{
				Intent:         IntentEmergency,
				Urgency:        UrgencyCritical,
				Department:     trigger.department,
				NeedsAmbulance: true,
				Confidence:     1.0,
				Entities:       map[string]any{"trigger": trigger.phrase},
			}, true
		}
	}
	return Classification{}, false
}

// llmClassify is layer 2. Any failure (timeout, transport error,
// malformed JSON, unknown enum value) reports ok=false so the cascade
// falls through to the keyword layer.
func (c *Cascade) llmClassify(ctx context.Context, message string) (Classification, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.llm.Complete(ctx, llm.Request{
		Model: c.model,
		Messages: []llm.ChatMessage{
			{Role: llm.ChatRoleSystem, Content: classificationPrompt},
			{Role: llm.ChatRoleUser, Content: message},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		c.logger.Error("LLM classification failed", "error", err)
		return Classification{}, false
	}

	// Extract JSON from response (LLM might add extra text).
	content := strings.TrimSpace(resp.Text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var result struct {
		Intent         string         `json:"intent"`
		Urgency        string         `json:"urgency"`
		Department     string         `json:"department"`
		NeedsAmbulance bool           `json:"needs_ambulance"`
		Confidence     *float64       `json:"confidence"`
		Entities       map[string]any `json:"entities"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		c.logger.Error("LLM classification parse failed", "error", err)
		return Classification{}, false
	}

	if !validIntents[result.Intent] || !validUrgencies[result.Urgency] {
		c.logger.Warn("LLM classification returned unknown enum",
			"intent", result.Intent,
			"urgency", result.Urgency,
		)
		return Classification{}, false
	}

	confidence := 0.8
	if result.Confidence != nil {
		confidence = *result.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	classification := Classification{
		Intent:         result.Intent,
		Urgency:        result.Urgency,
		Department:     result.Department,
		NeedsAmbulance: result.NeedsAmbulance,
		Confidence:     confidence,
		Entities:       result.Entities,
	}

	// An emergency verdict is always critical, whatever the model said.
	if classification.Intent == IntentEmergency {
		classification.Urgency = UrgencyCritical
	}

	return classification, true
}

var greetingKeywords = []string{"hello", "hi", "hey", "good morning", "good evening"}
var farewellKeywords = []string{"bye", "goodbye", "thank", "thanks"}
var appointmentKeywords = []string{"appointment", "book", "schedule", "slot", "reschedule", "cancel appointment"}
var doctorKeywords = []string{"doctor", "dr.", "specialist", "surgeon"}
var insuranceKeywords = []string{"insurance", "bill", "payment", "cost", "charge", "policy"}
var complaintKeywords = []string{"complaint", "unhappy", "bad experience", "rude"}
var symptomKeywords = []string{"pain", "fever", "headache", "cough", "vomit", "nausea", "dizzy", "symptom", "sick", "ill", "hurts"}

// fallbackClassify is layer 3. It always succeeds.
func (c *Cascade) fallbackClassify(message string) Classification {
	lower := strings.ToLower(message)

	containsAny := func(keywords []string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny(greetingKeywords):
		return Classification{Intent: IntentGreeting, Urgency: UrgencyNonUrgent, Confidence: 0.9}
	case containsAny(farewellKeywords):
		return Classification{Intent: IntentFarewell, Urgency: UrgencyNonUrgent, Confidence: 0.9}
	case containsAny(appointmentKeywords):
		return Classification{Intent: IntentAppointmentRequest, Urgency: UrgencyNonUrgent, Confidence: 0.7}
	case containsAny(doctorKeywords):
		return Classification{Intent: IntentDoctorInfo, Urgency: UrgencyNonUrgent, Confidence: 0.7}
	case containsAny(insuranceKeywords):
		return Classification{Intent: IntentInsurance, Urgency: UrgencyNonUrgent, Confidence: 0.7}
	case containsAny(complaintKeywords):
		return Classification{Intent: IntentComplaint, Urgency: UrgencyNonUrgent, Confidence: 0.7}
	case containsAny(symptomKeywords):
		return Classification{Intent: IntentSymptomReport, Urgency: UrgencyUrgent, Confidence: 0.6}
	default:
		return Classification{Intent: IntentGeneralQuery, Urgency: UrgencyNonUrgent, Confidence: 0.5}
	}
}
