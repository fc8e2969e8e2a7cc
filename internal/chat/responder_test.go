package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist-ai/triage-platform/internal/classifier"
	"github.com/medassist-ai/triage-platform/internal/llm"
	"github.com/medassist-ai/triage-platform/internal/session"
)

type fakeLLM struct {
	text    string
	err     error
	lastReq llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Text: f.text}, nil
}

func newTestResponder(client llm.Client) (*Responder, *session.Store) {
	sessions := session.NewStore()
	return NewResponder(client, "test-model", sessions, nil), sessions
}

func TestResponder_EmergencyTemplate(t *testing.T) {
	r, _ := newTestResponder(nil)

	reply := r.Respond(context.Background(), "s1", "severe chest pain", classifier.Classification{
		Intent:         classifier.IntentEmergency,
		Urgency:        classifier.UrgencyCritical,
		Department:     "Cardiology",
		NeedsAmbulance: true,
	})

	assert.Contains(t, reply, "EMERGENCY ALERT")
	assert.Contains(t, reply, "Call 108 (Emergency Services) NOW")
	assert.Contains(t, reply, "Recommended Department: Cardiology")
	assert.Contains(t, reply, "Your current location")
	assert.Contains(t, reply, "While waiting for help:")
	assert.Contains(t, reply, "nearest emergency room")
}

func TestResponder_EmergencyWithoutAmbulanceOrSymptoms(t *testing.T) {
	r, _ := newTestResponder(nil)

	reply := r.Respond(context.Background(), "s1", "please help, emergency", classifier.Classification{
		Intent:  classifier.IntentEmergency,
		Urgency: classifier.UrgencyCritical,
	})

	// No triage match, so the generic waiting list and default department.
	assert.Contains(t, reply, "Recommended Department: Emergency")
	assert.Contains(t, reply, "Do not give food or water")
	assert.NotContains(t, reply, "Your current location")
}

func TestResponder_TriageTemplateCritical(t *testing.T) {
	r, _ := newTestResponder(nil)

	reply := r.Respond(context.Background(), "s1", "crushing chest pain", classifier.Classification{
		Intent: classifier.IntentSymptomReport,
	})

	assert.Contains(t, reply, "This requires immediate medical attention.")
	assert.Contains(t, reply, "Severity: CRITICAL")
	assert.Contains(t, reply, "cannot diagnose conditions")
}

func TestResponder_TriageTemplateMild(t *testing.T) {
	r, _ := newTestResponder(nil)

	reply := r.Respond(context.Background(), "s1", "I have a runny nose", classifier.Classification{
		Intent: classifier.IntentSymptomReport,
	})

	assert.Contains(t, reply, "Thank you for describing your symptoms")
	assert.Contains(t, reply, "Recommended Department: General Medicine")
	assert.Contains(t, reply, "book an appointment")
}

func TestResponder_LLMReply(t *testing.T) {
	client := &fakeLLM{text: "  Our visiting hours are 10 AM to 8 PM daily.  "}
	r, sessions := newTestResponder(client)
	sessions.Create("s1", "", "")
	sessions.AppendMessage("s1", "user", "what are your visiting hours?", nil)

	reply := r.Respond(context.Background(), "s1", "what are your visiting hours?", classifier.Classification{
		Intent: classifier.IntentGeneralQuery,
	})

	assert.Equal(t, "Our visiting hours are 10 AM to 8 PM daily.", reply)
	require.NotEmpty(t, client.lastReq.Messages)
	assert.Equal(t, "system", client.lastReq.Messages[0].Role)
	assert.Contains(t, client.lastReq.Messages[0].Content, "MedAssist AI")
	assert.Equal(t, "test-model", client.lastReq.Model)
}

func TestResponder_LLMHistoryWindow(t *testing.T) {
	client := &fakeLLM{text: "ok"}
	r, sessions := newTestResponder(client)
	sessions.Create("s1", "", "")
	for i := 0; i < 12; i++ {
		sessions.AppendMessage("s1", "user", "message", nil)
	}

	r.Respond(context.Background(), "s1", "message", classifier.Classification{
		Intent: classifier.IntentGeneralQuery,
	})

	// System prompt plus the eight most recent turns.
	assert.Len(t, client.lastReq.Messages, 9)
}

func TestResponder_GuardrailsApplied(t *testing.T) {
	client := &fakeLLM{text: "You have malaria. Take ibuprofen twice a day."}
	r, sessions := newTestResponder(client)
	sessions.Create("s1", "", "")

	reply := r.Respond(context.Background(), "s1", "I feel unwell", classifier.Classification{
		Intent: classifier.IntentGeneralQuery,
	})

	assert.Contains(t, reply, "[I cannot make diagnoses - please consult a doctor]")
	assert.NotContains(t, reply, "You have malaria")
}

func TestResponder_LLMErrorFallsBack(t *testing.T) {
	client := &fakeLLM{err: errors.New("model unavailable")}
	r, sessions := newTestResponder(client)
	sessions.Create("s1", "", "")

	reply := r.Respond(context.Background(), "s1", "hello", classifier.Classification{
		Intent: classifier.IntentGreeting,
	})

	assert.Contains(t, reply, "Welcome to MedAssist AI")
}

func TestResponder_EmptyLLMReplyFallsBack(t *testing.T) {
	client := &fakeLLM{text: "   "}
	r, sessions := newTestResponder(client)
	sessions.Create("s1", "", "")

	reply := r.Respond(context.Background(), "s1", "billing question", classifier.Classification{
		Intent: classifier.IntentInsurance,
	})

	assert.Contains(t, reply, "Insurance desk")
}

func TestResponder_NilClientUsesTemplates(t *testing.T) {
	r, _ := newTestResponder(nil)

	tests := []struct {
		intent string
		want   string
	}{
		{classifier.IntentGreeting, "Welcome to MedAssist AI"},
		{classifier.IntentFarewell, "Take care and stay healthy"},
		{classifier.IntentAppointmentRequest, "Which department or doctor"},
		{classifier.IntentComplaint, "Patient Relations"},
		{classifier.IntentGeneralQuery, "City General Hospital"},
		{"unknown_intent", "City General Hospital"},
	}

	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			reply := r.Respond(context.Background(), "s1", "anything", classifier.Classification{
				Intent: tt.intent,
			})
			assert.True(t, strings.Contains(reply, tt.want), "reply %q should contain %q", reply, tt.want)
		})
	}
}
