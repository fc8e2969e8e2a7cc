package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/medassist-ai/triage-platform/internal/classifier"
	"github.com/medassist-ai/triage-platform/internal/hub"
	"github.com/medassist-ai/triage-platform/internal/observability/metrics"
)

const welcomeMessage = "Welcome to MedAssist AI!\n\n" +
	"I'm your 24/7 hospital assistant. I can help you with appointments, " +
	"doctor info, department guidance and emergency help.\n\n" +
	"How can I help you today?"

// Handler exposes the chat pipeline over HTTP and WebSocket.
type Handler struct {
	pipeline *Pipeline
	alerts   *hub.Hub
	metrics  *metrics.PipelineMetrics
	logger   *slog.Logger
}

// NewHandler creates the chat handler.
func NewHandler(pipeline *Pipeline, alerts *hub.Hub, m *metrics.PipelineMetrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipeline: pipeline, alerts: alerts, metrics: m, logger: logger}
}

// Routes returns the chat routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/message", h.Message)
	r.Get("/ws", h.PatientWS)
	r.Get("/ws/{sessionID}", h.PatientWS)
	r.Get("/ws/staff/alerts", h.StaffWS)
	return r
}

// Message handles POST /chat/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	resp := h.pipeline.Process(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// PatientWS upgrades to WebSocket and runs the bidirectional chat loop
// for one session.
func (h *Handler) PatientWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.servePatient(conn, r, sessionID)
	}).ServeHTTP(w, r)
}

// inboundWS is one patient WebSocket frame. Plain-text frames that are
// not JSON are treated as the message body.
type inboundWS struct {
	Message      string `json:"message"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
}

func (h *Handler) servePatient(conn *websocket.Conn, r *http.Request, sessionID string) {
	ch := &wsChannel{conn: conn}
	h.alerts.ConnectSession(sessionID, ch)
	h.metrics.ConnectionOpened("patient")
	defer func() {
		h.alerts.DisconnectSession(sessionID)
		h.metrics.ConnectionClosed("patient")
	}()

	h.pipeline.sessions.GetOrCreate(sessionID, "", "")

	_ = websocket.JSON.Send(conn, Response{
		Message:   welcomeMessage,
		SessionID: sessionID,
		Intent:    classifier.IntentGreeting,
		Suggestions: []string{
			"Book an appointment",
			"Find a doctor",
			"I have a symptom",
			"Hospital information",
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	h.logger.Info("chat: session connected", "session_id", sessionID)

	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			h.logger.Info("chat: session ended", "session_id", sessionID)
			return
		}

		var in inboundWS
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			in = inboundWS{Message: raw}
		}
		if in.Message == "" {
			in.Message = raw
		}
		if strings.TrimSpace(in.Message) == "" {
			continue
		}

		resp := h.pipeline.Process(r.Context(), Request{
			SessionID:    sessionID,
			Message:      in.Message,
			PatientName:  in.PatientName,
			PatientPhone: in.PatientPhone,
		})
		if err := websocket.JSON.Send(conn, resp); err != nil {
			h.logger.Warn("chat: send failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

// StaffWS registers a staff dashboard for emergency alert broadcasts.
// The read loop only keeps the connection alive.
func (h *Handler) StaffWS(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		ch := &wsChannel{conn: conn}
		h.alerts.ConnectStaff(ch)
		h.metrics.ConnectionOpened("staff")
		defer func() {
			h.alerts.DisconnectStaff(ch)
			h.metrics.ConnectionClosed("staff")
		}()

		h.logger.Info("chat: staff dashboard connected")
		for {
			var raw string
			if err := websocket.Message.Receive(conn, &raw); err != nil {
				h.logger.Info("chat: staff dashboard disconnected")
				return
			}
		}
	}).ServeHTTP(w, r)
}

// wsChannel adapts a WebSocket connection to the hub's Channel.
type wsChannel struct {
	conn *websocket.Conn
}

func (c *wsChannel) Send(payload any) error {
	return websocket.JSON.Send(c.conn, payload)
}
