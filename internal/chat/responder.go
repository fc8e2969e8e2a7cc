package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/medassist-ai/triage-platform/internal/classifier"
	"github.com/medassist-ai/triage-platform/internal/guardrails"
	"github.com/medassist-ai/triage-platform/internal/llm"
	"github.com/medassist-ai/triage-platform/internal/session"
	"github.com/medassist-ai/triage-platform/internal/triage"
)

const systemPrompt = `You are MedAssist AI, a helpful and professional hospital assistant chatbot. You work 24/7 to help patients with hospital-related queries.

YOUR CAPABILITIES:
- Provide hospital information (departments, services, visiting hours)
- Help with appointment booking and scheduling
- Share doctor information and availability
- Guide patients to the right department based on symptoms
- Provide general health information and test preparation instructions
- Answer insurance and billing questions
- Detect emergencies and escalate immediately

STRICT RULES (NEVER VIOLATE):
1. NEVER diagnose diseases or conditions
2. NEVER prescribe or recommend specific medications
3. NEVER downplay potential emergencies
4. ALWAYS recommend consulting a healthcare professional for medical concerns
5. ALWAYS be empathetic and professional
6. If unsure, say so and recommend seeing a doctor
7. For emergencies, IMMEDIATELY advise calling 108 (emergency services)

RESPONSE STYLE:
- Be warm, professional, and concise
- Use clear language, avoiding medical jargon when possible
- Provide actionable next steps
- Keep responses under 150 words unless detail is needed

HOSPITAL INFO:
- Name: City General Hospital
- Emergency: 108
- Departments: Cardiology, Neurology, Orthopedics, Pediatrics, General Medicine, Dermatology, ENT, Ophthalmology, Psychiatry, Gynecology
- Visiting Hours: 10 AM - 8 PM daily
- Emergency Department: 24/7`

const (
	defaultReplyTimeout = 10 * time.Second
	defaultMaxTokens    = 500
	defaultTemperature  = 0.7
	historyWindow       = 8
)

// Responder composes the patient-facing reply for a classified message.
// Emergency and symptom turns are always template-based; everything else
// goes to the LLM with the conversation history, guardrail-filtered, with
// per-intent templates as the fallback when the model is unavailable.
type Responder struct {
	llm      llm.Client
	model    string
	sessions *session.Store
	engine   *triage.Engine
	guard    *guardrails.Filter
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResponder creates a responder. The LLM client may be nil; every
// free-form turn then uses the template fallbacks.
func NewResponder(client llm.Client, model string, sessions *session.Store, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		llm:      client,
		model:    model,
		sessions: sessions,
		engine:   triage.NewEngine(),
		guard:    guardrails.NewFilter(),
		timeout:  defaultReplyTimeout,
		logger:   logger,
	}
}

// WithTimeout overrides the per-reply LLM timeout.
func (r *Responder) WithTimeout(d time.Duration) *Responder {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Respond returns the reply text for one inbound message. It never
// returns an empty string and never fails; collaborator errors degrade
// to templates.
func (r *Responder) Respond(ctx context.Context, sessionID, message string, cls classifier.Classification) string {
	switch cls.Intent {
	case classifier.IntentEmergency:
		return r.emergencyResponse(message, cls)
	case classifier.IntentSymptomReport:
		return r.triageResponse(message)
	}
	return r.llmResponse(ctx, sessionID, cls)
}

func (r *Responder) llmResponse(ctx context.Context, sessionID string, cls classifier.Classification) string {
	if r.llm == nil {
		return fallbackResponse(cls.Intent)
	}

	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	history := r.sessions.LLMMessages(sessionID, systemPrompt, historyWindow)
	messages := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := r.llm.Complete(tctx, llm.Request{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		r.logger.Error("chat: llm reply failed", "session_id", sessionID, "error", err)
		return fallbackResponse(cls.Intent)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return fallbackResponse(cls.Intent)
	}

	filtered, modified := r.guard.Check(text)
	if modified {
		r.logger.Warn("chat: guardrails modified reply", "session_id", sessionID)
	}
	return filtered
}

// emergencyResponse is always template-based. The triage engine supplies
// first-aid tips and may override the department when it has a more
// specific recommendation than the classifier.
func (r *Responder) emergencyResponse(message string, cls classifier.Classification) string {
	dept := cls.Department
	if dept == "" {
		dept = "Emergency"
	}

	assessment := r.engine.Assess(message)
	tips := assessment.FirstAidTips
	if assessment.RecommendedDepartment != triage.DefaultDepartment {
		dept = assessment.RecommendedDepartment
	}

	var b strings.Builder
	b.WriteString("EMERGENCY ALERT\n\n")
	b.WriteString("This appears to be a medical emergency. Your safety is our top priority.\n\n")
	b.WriteString("IMMEDIATE ACTIONS:\n")
	b.WriteString("1. Call 108 (Emergency Services) NOW\n")
	b.WriteString("2. If someone is with you, ask them to call while you stay with the patient\n")
	b.WriteString("3. Do not move the patient unless they are in immediate danger\n\n")
	fmt.Fprintf(&b, "Recommended Department: %s\n\n", dept)

	if cls.NeedsAmbulance {
		b.WriteString("An ambulance has been flagged. Our emergency team has been notified.\n\n")
		b.WriteString("Please provide:\n")
		b.WriteString("- Your current location\n")
		b.WriteString("- Contact phone number\n")
		b.WriteString("- Brief description of the patient's condition\n\n")
	}

	b.WriteString("While waiting for help:\n")
	if len(tips) > 0 {
		if len(tips) > 5 {
			tips = tips[:5]
		}
		for _, tip := range tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
	} else {
		b.WriteString("- Keep the patient calm and comfortable\n")
		b.WriteString("- Monitor their breathing\n")
		b.WriteString("- Do not give food or water\n")
		b.WriteString("- Note the time symptoms started\n")
	}
	b.WriteString("\nOur emergency staff has been alerted and are standing by.")
	return guardrails.AddEmergencyDisclaimer(b.String())
}

func (r *Responder) triageResponse(message string) string {
	assessment := r.engine.Assess(message)

	var b strings.Builder
	switch assessment.SeverityLevel {
	case triage.SeverityCritical:
		b.WriteString("This requires immediate medical attention.\n")
		b.WriteString("Call 108 (Emergency Services) NOW.\n\n")
	case triage.SeverityUrgent:
		b.WriteString("Your symptoms suggest you should see a doctor soon.\n\n")
	default:
		b.WriteString("Thank you for describing your symptoms. Here's my assessment:\n\n")
	}

	fmt.Fprintf(&b, "Severity: %s\n", assessment.SeverityLevel)
	fmt.Fprintf(&b, "Recommended Department: %s\n\n", assessment.RecommendedDepartment)

	if len(assessment.FirstAidTips) > 0 {
		b.WriteString("Helpful guidance:\n")
		tips := assessment.FirstAidTips
		if len(tips) > 4 {
			tips = tips[:4]
		}
		for _, tip := range tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Would you like me to book an appointment with our %s department?\n\n", assessment.RecommendedDepartment)
	b.WriteString("I cannot diagnose conditions. Please consult a healthcare professional.")
	return b.String()
}

var fallbackResponses = map[string]string{
	classifier.IntentGreeting: "Hello! Welcome to MedAssist AI, your hospital assistant.\n\n" +
		"I can help you with:\n" +
		"- Booking appointments\n" +
		"- Doctor information\n" +
		"- Department guidance\n" +
		"- Symptom-based triage\n" +
		"- Insurance and billing queries\n" +
		"- Emergency assistance\n\n" +
		"How can I assist you today?",
	classifier.IntentFarewell: "Thank you for using MedAssist AI!\n\n" +
		"Remember:\n" +
		"- For emergencies, always call 108\n" +
		"- Our hospital is open 24/7 for emergencies\n" +
		"- Visiting hours: 10 AM - 8 PM\n\n" +
		"Take care and stay healthy!",
	classifier.IntentAppointmentRequest: "I'd be happy to help with your appointment!\n\n" +
		"To book an appointment, I'll need:\n" +
		"1. Your preferred department or doctor\n" +
		"2. Preferred date and time\n" +
		"3. Your name and contact number\n\n" +
		"Which department or doctor would you like to see?",
	classifier.IntentDoctorInfo: "I can help you find doctor information!\n\n" +
		"Our hospital has specialists in:\n" +
		"Cardiology, Neurology, Orthopedics, Pediatrics, Dermatology, ENT, General Medicine and Ophthalmology.\n\n" +
		"Which department or doctor would you like to know about?",
	classifier.IntentSymptomReport: "I understand you're not feeling well. I'm here to help guide you.\n\n" +
		"Based on your description, I recommend:\n" +
		"1. Visit our hospital for a proper consultation\n" +
		"2. Call us if symptoms worsen\n" +
		"3. Call 108 if it becomes an emergency\n\n" +
		"Would you like me to help book an appointment with a specialist?\n\n" +
		"I'm an AI assistant and cannot diagnose conditions. Please consult a healthcare professional.",
	classifier.IntentInsurance: "For insurance and billing questions:\n\n" +
		"- Insurance desk: available Mon-Sat, 9 AM - 5 PM\n" +
		"- Billing support: ground floor, counter 3\n" +
		"- Cashless claim: bring your insurance card and ID\n\n" +
		"Would you like to know about a specific insurance plan or billing query?",
	classifier.IntentComplaint: "I'm sorry to hear about your experience. Your feedback is important to us.\n\n" +
		"To help resolve this:\n" +
		"1. Please describe your concern in detail\n" +
		"2. Include any relevant dates, department, or staff names\n" +
		"3. Our team will review and respond within 24 hours\n\n" +
		"You can also reach our Patient Relations team at the front desk.",
	classifier.IntentGeneralQuery: "Thank you for your question! Here's some useful hospital information:\n\n" +
		"City General Hospital\n" +
		"- Emergency: 24/7\n" +
		"- OPD: 9 AM - 5 PM (Mon-Sat)\n" +
		"- Visiting Hours: 10 AM - 8 PM\n" +
		"- Pharmacy: 24/7\n\n" +
		"Could you tell me more about what specific information you need?",
}

func fallbackResponse(intent string) string {
	if text, ok := fallbackResponses[intent]; ok {
		return text
	}
	return fallbackResponses[classifier.IntentGeneralQuery]
}
