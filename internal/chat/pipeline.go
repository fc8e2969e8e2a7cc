package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/medassist-ai/triage-platform/internal/audit"
	"github.com/medassist-ai/triage-platform/internal/classifier"
	"github.com/medassist-ai/triage-platform/internal/hub"
	"github.com/medassist-ai/triage-platform/internal/observability/metrics"
	"github.com/medassist-ai/triage-platform/internal/session"
	"github.com/medassist-ai/triage-platform/internal/triage"
)

// Request is one inbound patient message. SessionID may be empty; a new
// session is created and its id returned in the response.
type Request struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	PatientName  string `json:"patient_name,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
}

// Response is the pipeline's answer to one message.
type Response struct {
	Message     string   `json:"message"`
	SessionID   string   `json:"session_id"`
	Intent      string   `json:"intent"`
	Urgency     string   `json:"urgency"`
	IsEmergency bool     `json:"is_emergency"`
	Suggestions []string `json:"suggestions"`
	Timestamp   string   `json:"timestamp"`
}

// Pipeline runs the full message flow: session bookkeeping,
// classification, reply composition, emergency handling and best-effort
// persistence. It never fails; every collaborator error degrades to a
// still-useful reply.
type Pipeline struct {
	sessions      *session.Store
	cascade       *classifier.Cascade
	responder     *Responder
	orchestrator  *triage.Orchestrator
	alerts        *hub.Hub
	conversations ConversationStore
	audit         *audit.Logger
	metrics       *metrics.PipelineMetrics
	logger        *slog.Logger
	now           func() time.Time
}

// PipelineDeps collects the pipeline collaborators. Sessions, cascade
// and responder are required; the rest may be nil and the matching step
// is skipped.
type PipelineDeps struct {
	Sessions      *session.Store
	Cascade       *classifier.Cascade
	Responder     *Responder
	Orchestrator  *triage.Orchestrator
	Alerts        *hub.Hub
	Conversations ConversationStore
	Audit         *audit.Logger
	Metrics       *metrics.PipelineMetrics
	Logger        *slog.Logger
}

// NewPipeline wires the chat pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sessions:      deps.Sessions,
		cascade:       deps.Cascade,
		responder:     deps.Responder,
		orchestrator:  deps.Orchestrator,
		alerts:        deps.Alerts,
		conversations: deps.Conversations,
		audit:         deps.Audit,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Process handles one patient message end to end.
func (p *Pipeline) Process(ctx context.Context, req Request) Response {
	started := p.now()

	sess := p.sessions.GetOrCreate(req.SessionID, req.PatientName, req.PatientPhone)
	p.sessions.AppendMessage(sess.ID, "user", req.Message, nil)

	cls := p.cascade.Classify(ctx, req.Message)
	p.sessions.SetIntent(sess.ID, cls.Intent)

	isEmergency := cls.Intent == classifier.IntentEmergency || cls.Urgency == classifier.UrgencyCritical

	reply := p.responder.Respond(ctx, sess.ID, req.Message, cls)
	p.sessions.AppendMessage(sess.ID, "assistant", reply, map[string]string{
		"intent":  cls.Intent,
		"urgency": cls.Urgency,
	})

	if isEmergency {
		p.handleEmergency(ctx, sess.ID, req.Message, cls)
	}

	p.saveTurn(ctx, sess.ID, req.Message, reply, cls)
	p.metrics.MessageProcessed(cls.Intent, cls.Urgency, isEmergency, p.now().Sub(started))

	return Response{
		Message:     reply,
		SessionID:   sess.ID,
		Intent:      cls.Intent,
		Urgency:     cls.Urgency,
		IsEmergency: isEmergency,
		Suggestions: suggestionsFor(cls.Intent),
		Timestamp:   p.now().UTC().Format(time.RFC3339),
	}
}

// handleEmergency flags the session, creates the emergency case through
// the orchestrator and alerts connected staff dashboards. Every step is
// best-effort; the patient reply is already composed.
func (p *Pipeline) handleEmergency(ctx context.Context, sessionID, message string, cls classifier.Classification) {
	p.logger.Error("emergency detected", "session_id", sessionID, "message", truncate(message, 200))

	p.sessions.SetEmergencyMode(sessionID, true)

	// The orchestrator and the staff alert work on a snapshot; the live
	// session may be mutated concurrently by another transport.
	snap, ok := p.sessions.Snapshot(sessionID)
	if !ok {
		snap = session.Session{ID: sessionID}
	}

	var caseID string
	if p.orchestrator != nil {
		action := p.orchestrator.EvaluateAndRespond(ctx, message, snap)
		caseID = action.CaseID
	}

	patientName, patientPhone := "Unknown", "Unknown"
	if snap.PatientName != "" {
		patientName = snap.PatientName
	}
	if snap.PatientPhone != "" {
		patientPhone = snap.PatientPhone
	}

	if p.alerts != nil {
		p.alerts.BroadcastToStaff(map[string]any{
			"type": "EMERGENCY_ALERT",
			"data": map[string]any{
				"id":              caseID,
				"session_id":      sessionID,
				"severity":        cls.Urgency,
				"symptoms":        truncate(message, 200),
				"department":      cls.Department,
				"patient_name":    patientName,
				"patient_phone":   patientPhone,
				"timestamp":       p.now().UTC().Format(time.RFC3339),
				"needs_ambulance": cls.NeedsAmbulance,
			},
		})
	}

	if p.audit != nil {
		p.audit.LogAction(ctx, "EMERGENCY_DETECTED", "emergency_cases", "", map[string]any{
			"emergency_id": caseID,
			"session_id":   sessionID,
			"severity":     cls.Urgency,
		})
	}
}

func (p *Pipeline) saveTurn(ctx context.Context, sessionID, message, reply string, cls classifier.Classification) {
	if p.conversations == nil {
		return
	}
	var patientID string
	if snap, ok := p.sessions.Snapshot(sessionID); ok {
		patientID = snap.PatientID
	}
	err := p.conversations.SaveTurn(ctx, Conversation{
		SessionID: sessionID,
		PatientID: patientID,
		Message:   message,
		Reply:     reply,
		Intent:    cls.Intent,
		Urgency:   cls.Urgency,
	})
	if err != nil {
		p.logger.Error("chat: failed to save conversation", "session_id", sessionID, "error", err)
	}
}

var intentSuggestions = map[string][]string{
	classifier.IntentGreeting: {
		"Book an appointment",
		"Find a doctor",
		"I have a symptom",
		"Hospital information",
	},
	classifier.IntentAppointmentRequest: {
		"Cardiology",
		"General Medicine",
		"Orthopedics",
		"Show all departments",
	},
	classifier.IntentDoctorInfo: {
		"Show available doctors",
		"Book appointment",
		"Department information",
	},
	classifier.IntentSymptomReport: {
		"Book appointment now",
		"Find a specialist",
		"Is this an emergency?",
	},
	classifier.IntentEmergency: {
		"Share my location",
		"Call 108",
		"Contact family",
	},
	classifier.IntentInsurance: {
		"Check coverage",
		"Billing query",
		"Cashless process",
	},
	classifier.IntentFarewell: {},
}

func suggestionsFor(intent string) []string {
	if s, ok := intentSuggestions[intent]; ok {
		return s
	}
	return []string{"Help", "Contact us"}
}
