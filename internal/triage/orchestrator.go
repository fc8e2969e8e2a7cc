package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/medassist-ai/triage-platform/internal/audit"
	"github.com/medassist-ai/triage-platform/internal/emergency"
	"github.com/medassist-ai/triage-platform/internal/session"
)

// Action describes the response to one triaged message.
type Action struct {
	IsEmergency       bool       `json:"is_emergency"`
	Triage            Assessment `json:"triage"`
	DispatchAmbulance bool       `json:"dispatch_ambulance"`
	AlertStaff        bool       `json:"alert_staff"`
	EscalationMessage string     `json:"escalation_message,omitempty"`
	PatientGuidance   string     `json:"patient_guidance"`
	CaseID            string     `json:"case_id,omitempty"`
}

// Orchestrator coordinates triage scoring, case creation, staff alerts
// and patient guidance for one inbound message.
type Orchestrator struct {
	engine *Engine
	cases  emergency.CaseStore
	audit  *audit.Logger
	logger *slog.Logger
	now    func() time.Time
}

// NewOrchestrator builds an orchestrator. The case store may be nil;
// case creation then degrades to guidance-only operation.
func NewOrchestrator(engine *Engine, cases emergency.CaseStore, auditLogger *audit.Logger, logger *slog.Logger) *Orchestrator {
	if engine == nil {
		engine = NewEngine()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine: engine,
		cases:  cases,
		audit:  auditLogger,
		logger: logger,
		now:    time.Now,
	}
}

// EvaluateAndRespond runs the full emergency pipeline: triage the
// message, create a case for critical/urgent results, and build the
// patient guidance and staff escalation texts. Case creation is
// best-effort; its failure never aborts the patient response. A session
// already in emergency mode escalates again on every critical message.
// sess is a point-in-time copy (see session.Store.Snapshot); the zero
// value stands for an unknown session.
func (o *Orchestrator) EvaluateAndRespond(ctx context.Context, message string, sess session.Session) Action {
	triage := o.engine.Assess(message)

	isEmergency := triage.SeverityLevel == SeverityCritical
	isUrgent := triage.SeverityLevel == SeverityUrgent

	guidance := buildPatientGuidance(triage)

	var caseID string
	if isEmergency || isUrgent {
		caseID = o.createEmergencyCase(ctx, triage, sess, message)
	}

	var escalation string
	if isEmergency {
		escalation = o.buildEscalationMessage(triage, sess, caseID)
	}

	return Action{
		IsEmergency:       isEmergency,
		Triage:            triage,
		DispatchAmbulance: triage.NeedsAmbulance,
		AlertStaff:        isEmergency,
		EscalationMessage: escalation,
		PatientGuidance:   guidance,
		CaseID:            caseID,
	}
}

// createEmergencyCase persists the case. Returns the empty string on
// any failure; the caller treats absence as non-fatal.
func (o *Orchestrator) createEmergencyCase(ctx context.Context, triage Assessment, sess session.Session, message string) string {
	if o.cases == nil {
		return ""
	}

	symptoms := strings.Join(triage.DetectedSymptoms, ", ")
	if symptoms == "" {
		symptoms = truncate(message, 500)
	}

	phone := sess.PatientPhone
	if phone == "" {
		phone = "UNKNOWN"
	}

	caseID, err := o.cases.CreateCase(ctx, emergency.Case{
		PatientID:     sess.PatientID,
		SessionID:     sess.ID,
		Severity:      triage.SeverityLevel,
		Symptoms:      symptoms,
		ContactNumber: phone,
		Notes:         triage.TriageNotes,
	})
	if err != nil {
		o.logger.Error("failed to create emergency case", "error", err, "session_id", sess.ID)
		return ""
	}

	if o.audit != nil {
		o.audit.LogAction(ctx, "EMERGENCY_CASE_CREATED", "emergency_cases", sess.PatientID, map[string]any{
			"case_id":    caseID,
			"severity":   triage.SeverityLevel,
			"score":      triage.SeverityScore,
			"department": triage.RecommendedDepartment,
			"session_id": sess.ID,
		})
	}

	o.logger.Warn("emergency case created",
		"case_id", caseID,
		"severity", triage.SeverityLevel,
		"score", triage.SeverityScore,
		"department", triage.RecommendedDepartment,
	)

	return caseID
}

func buildPatientGuidance(triage Assessment) string {
	var b strings.Builder

	switch triage.SeverityLevel {
	case SeverityCritical:
		b.WriteString("EMERGENCY - IMMEDIATE ACTION REQUIRED\n\nCall 108 (Emergency Services) NOW.\n")
	case SeverityUrgent:
		b.WriteString("URGENT - Please seek medical attention soon.\n")
	}

	fmt.Fprintf(&b, "Severity Assessment: %s\nRecommended Department: %s\n",
		triage.SeverityLevel, triage.RecommendedDepartment)

	if triage.NeedsAmbulance {
		b.WriteString("\nAmbulance recommended. Our team has been alerted. Please share your location.\n")
	}

	if len(triage.FirstAidTips) > 0 {
		b.WriteString("\nWhile waiting for help:\n")
		tips := triage.FirstAidTips
		if len(tips) > 5 {
			tips = tips[:5]
		}
		for _, tip := range tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
	}

	b.WriteString("\nThis is an automated triage assessment. A healthcare professional will confirm the evaluation.")

	return b.String()
}

func (o *Orchestrator) buildEscalationMessage(triage Assessment, sess session.Session, caseID string) string {
	if caseID == "" {
		caseID = "PENDING"
	}

	patientName, patientPhone := "Unknown", "Unknown"
	if sess.PatientName != "" {
		patientName = sess.PatientName
	}
	if sess.PatientPhone != "" {
		patientPhone = sess.PatientPhone
	}

	ambulance := "No"
	if triage.NeedsAmbulance {
		ambulance = "YES"
	}

	return fmt.Sprintf(
		"EMERGENCY ALERT - Case #%s\n"+
			"Severity: %s (Score: %s)\n"+
			"Symptoms: %s\n"+
			"Department: %s\n"+
			"Patient: %s\n"+
			"Phone: %s\n"+
			"Session: %s\n"+
			"Ambulance Required: %s\n"+
			"Time: %s",
		caseID,
		triage.SeverityLevel,
		strconv.FormatFloat(triage.SeverityScore, 'f', -1, 64),
		strings.Join(triage.DetectedSymptoms, ", "),
		triage.RecommendedDepartment,
		patientName,
		patientPhone,
		sess.ID,
		ambulance,
		o.now().UTC().Format(time.RFC3339),
	)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
