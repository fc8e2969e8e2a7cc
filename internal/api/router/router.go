package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medassist-ai/triage-platform/internal/booking"
	"github.com/medassist-ai/triage-platform/internal/chat"
	"github.com/medassist-ai/triage-platform/internal/emergency"
)

// Config holds router configuration
type Config struct {
	ChatHandler      *chat.Handler
	BookingHandler   *booking.Handler
	EmergencyHandler *emergency.Handler
	MetricsHandler   http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Mount("/chat", cfg.ChatHandler.Routes())
	}
	if cfg.BookingHandler != nil {
		r.Mount("/appointments", cfg.BookingHandler.Routes())
	}
	if cfg.EmergencyHandler != nil {
		r.Mount("/emergencies", cfg.EmergencyHandler.Routes())
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
