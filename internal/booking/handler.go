package booking

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the booking service over HTTP.
type Handler struct {
	svc    *Service
	locks  SlotLocker
	logger *slog.Logger
}

// NewHandler creates a booking HTTP handler.
func NewHandler(svc *Service, locks SlotLocker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, locks: locks, logger: logger}
}

// Routes returns the appointment routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Book)
	r.Get("/available-slots", h.AvailableSlots)
	r.Post("/lock-slot", h.LockSlot)
	r.Post("/release-slot", h.ReleaseSlot)
	r.Get("/{appointmentID}", h.Get)
	r.Put("/{appointmentID}", h.Reschedule)
	r.Delete("/{appointmentID}", h.Cancel)
	return r
}

type bookRequest struct {
	PatientID       string `json:"patient_id"`
	DoctorID        string `json:"doctor_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

// Book handles POST /appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" || req.DoctorID == "" {
		http.Error(w, "patient_id and doctor_id are required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Book(r.Context(), BookingRequest{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	switch {
	case errors.Is(err, ErrSlotLocked):
		http.Error(w, "this slot is currently being booked by another user, please try again in a moment", http.StatusLocked)
		return
	case errors.Is(err, ErrSlotConflict):
		http.Error(w, "this slot conflicts with an existing appointment", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("booking failed", "error", err)
		http.Error(w, "failed to book appointment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Get handles GET /appointments/{appointmentID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), chi.URLParam(r, "appointmentID"))
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("load appointment failed", "error", err)
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	StartTime string `json:"start_time"`
}

// Reschedule handles PUT /appointments/{appointmentID}.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	newTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), chi.URLParam(r, "appointmentID"), newTime)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrNotModifiable):
		http.Error(w, "appointment can no longer be modified", http.StatusBadRequest)
		return
	case errors.Is(err, ErrSlotConflict):
		http.Error(w, "new time conflicts with an existing appointment", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("reschedule failed", "error", err)
		http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

// Cancel handles DELETE /appointments/{appointmentID}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Cancel(r.Context(), chi.URLParam(r, "appointmentID"))
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrAlreadyCancelled):
		http.Error(w, "appointment is already cancelled", http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("cancel failed", "error", err)
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "appointment cancelled"})
}

// AvailableSlots handles GET /appointments/available-slots.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctor_id")
	dateStr := r.URL.Query().Get("date")
	if doctorID == "" || dateStr == "" {
		http.Error(w, "doctor_id and date are required", http.StatusBadRequest)
		return
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	duration := 30
	if d := r.URL.Query().Get("duration"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			http.Error(w, "duration must be a positive number of minutes", http.StatusBadRequest)
			return
		}
		duration = n
	}

	slots, err := h.svc.AvailableSlots(r.Context(), doctorID, day, duration)
	if err != nil {
		h.logger.Error("available slots failed", "error", err)
		http.Error(w, "failed to load available slots", http.StatusInternalServerError)
		return
	}

	available := 0
	for _, s := range slots {
		if s.Available {
			available++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id":             doctorID,
		"date":                  dateStr,
		"slot_duration_minutes": duration,
		"total_slots":           available,
		"slots":                 slots,
	})
}

type slotRequest struct {
	DoctorID  string `json:"doctor_id"`
	StartTime string `json:"start_time"`
}

// LockSlot handles POST /appointments/lock-slot. It reserves a slot
// while the patient fills in details.
func (h *Handler) LockSlot(w http.ResponseWriter, r *http.Request) {
	doctorID, start, ok := h.decodeSlot(w, r)
	if !ok {
		return
	}

	if err := h.locks.Acquire(r.Context(), doctorID, start); err != nil {
		if errors.Is(err, ErrSlotLocked) {
			http.Error(w, "this slot is currently reserved by another user, please try again", http.StatusLocked)
			return
		}
		h.logger.Error("lock slot failed", "error", err)
		http.Error(w, "failed to lock slot", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"locked":             true,
		"expires_in_seconds": int(LockDuration.Seconds()),
	})
}

// ReleaseSlot handles POST /appointments/release-slot.
func (h *Handler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	doctorID, start, ok := h.decodeSlot(w, r)
	if !ok {
		return
	}

	if err := h.locks.Release(r.Context(), doctorID, start); err != nil {
		h.logger.Error("release slot failed", "error", err)
		http.Error(w, "failed to release slot", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"released": true})
}

func (h *Handler) decodeSlot(w http.ResponseWriter, r *http.Request) (string, time.Time, bool) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return "", time.Time{}, false
	}
	if req.DoctorID == "" {
		http.Error(w, "doctor_id is required", http.StatusBadRequest)
		return "", time.Time{}, false
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "start_time must be RFC3339", http.StatusBadRequest)
		return "", time.Time{}, false
	}
	return req.DoctorID, start, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
