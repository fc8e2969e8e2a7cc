package emergency

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

var validDispatchStatuses = map[string]bool{
	DispatchPending:   true,
	DispatchRequested: true,
	DispatchEnRoute:   true,
	DispatchArrived:   true,
	DispatchResolved:  true,
}

// Handler exposes emergency cases to staff dashboards.
type Handler struct {
	cases  CaseStore
	logger *slog.Logger
}

// NewHandler creates an emergency case HTTP handler.
func NewHandler(cases CaseStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cases: cases, logger: logger}
}

// Routes returns the emergency case routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListOpen)
	r.Put("/{caseID}/dispatch", h.UpdateDispatch)
	return r
}

// ListOpen handles GET /emergencies.
func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive number", http.StatusBadRequest)
			return
		}
		limit = n
	}

	cases, err := h.cases.ListOpenCases(r.Context(), limit)
	if err != nil {
		h.logger.Error("list emergency cases failed", "error", err)
		http.Error(w, "failed to list emergency cases", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count": len(cases),
		"cases": cases,
	})
}

type dispatchRequest struct {
	Status string `json:"status"`
}

// UpdateDispatch handles PUT /emergencies/{caseID}/dispatch.
func (h *Handler) UpdateDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !validDispatchStatuses[status] {
		http.Error(w, "unknown dispatch status", http.StatusBadRequest)
		return
	}

	caseID := chi.URLParam(r, "caseID")
	if err := h.cases.UpdateDispatchStatus(r.Context(), caseID, status); err != nil {
		if errors.Is(err, ErrCaseNotFound) {
			http.Error(w, "case not found", http.StatusNotFound)
			return
		}
		h.logger.Error("update dispatch status failed", "case_id", caseID, "error", err)
		http.Error(w, "failed to update dispatch status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": caseID, "dispatch_status": status})
}
