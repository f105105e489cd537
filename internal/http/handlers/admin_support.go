// Package handlers holds the staff-facing admin HTTP handlers.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/git-bonda108/Dentsi-sub000/internal/support"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// EscalationReader lists and resolves escalations.
type EscalationReader interface {
	ListOpen(ctx context.Context, clinicID string) ([]support.Escalation, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}

// CallbackReader lists and transitions callback queue entries.
type CallbackReader interface {
	List(ctx context.Context, clinicID string, status support.CallbackStatus) ([]support.CallbackEntry, error)
	NextPending(ctx context.Context, clinicID string) (*support.CallbackEntry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status support.CallbackStatus) error
}

// AdminSupportHandler exposes escalations and the callback queue to staff.
type AdminSupportHandler struct {
	escalations EscalationReader
	callbacks   CallbackReader
	logger      *logging.Logger
}

// NewAdminSupportHandler creates the admin support handler.
func NewAdminSupportHandler(escalations EscalationReader, callbacks CallbackReader, logger *logging.Logger) *AdminSupportHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSupportHandler{
		escalations: escalations,
		callbacks:   callbacks,
		logger:      logger.Component("admin"),
	}
}

// ListEscalations returns open escalations for a clinic, most urgent first.
// GET /admin/clinics/{clinicID}/escalations
func (h *AdminSupportHandler) ListEscalations(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")

	items, err := h.escalations.ListOpen(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("failed to list escalations", "error", err, "clinic_id", clinicID)
		http.Error(w, "failed to list escalations", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []support.Escalation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"escalations": items})
}

// ResolveEscalation marks an escalation handled.
// POST /admin/escalations/{id}/resolve
func (h *AdminSupportHandler) ResolveEscalation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid escalation id", http.StatusBadRequest)
		return
	}

	if err := h.escalations.Resolve(r.Context(), id); err != nil {
		h.logger.Error("failed to resolve escalation", "error", err, "id", id)
		http.Error(w, "failed to resolve escalation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"resolved": true})
}

// ListCallbacks returns a clinic's callback queue, optionally filtered by
// status.
// GET /admin/clinics/{clinicID}/callbacks?status=pending
func (h *AdminSupportHandler) ListCallbacks(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	status := support.CallbackStatus(r.URL.Query().Get("status"))

	items, err := h.callbacks.List(r.Context(), clinicID, status)
	if err != nil {
		h.logger.Error("failed to list callbacks", "error", err, "clinic_id", clinicID)
		http.Error(w, "failed to list callbacks", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []support.CallbackEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"callbacks": items})
}

// ClaimCallback atomically claims the highest-priority pending callback for
// the calling staff member.
// POST /admin/clinics/{clinicID}/callbacks/claim
func (h *AdminSupportHandler) ClaimCallback(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")

	entry, err := h.callbacks.NextPending(r.Context(), clinicID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && entry == nil) {
		writeJSON(w, http.StatusOK, map[string]any{"callback": nil})
		return
	}
	if err != nil {
		h.logger.Error("failed to claim callback", "error", err, "clinic_id", clinicID)
		http.Error(w, "failed to claim callback", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"callback": entry})
}

// UpdateCallback transitions a callback entry to a new status.
// POST /admin/callbacks/{id}/status
func (h *AdminSupportHandler) UpdateCallback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid callback id", http.StatusBadRequest)
		return
	}

	var req struct {
		Status support.CallbackStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case support.CallbackPending, support.CallbackInProgress, support.CallbackCompleted, support.CallbackCancelled:
	default:
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if err := h.callbacks.UpdateStatus(r.Context(), id, req.Status); err != nil {
		h.logger.Error("failed to update callback", "error", err, "id", id)
		http.Error(w, "failed to update callback", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": req.Status})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
