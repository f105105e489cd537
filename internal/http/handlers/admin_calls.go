package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/git-bonda108/Dentsi-sub000/internal/conversation"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// CallLog reads completed call records.
type CallLog interface {
	GetCall(ctx context.Context, callID string) (*conversation.CallRecord, error)
	RecentCalls(ctx context.Context, clinicID string, limit int) ([]conversation.CallRecord, error)
}

// AdminCallsHandler exposes the call log to staff.
type AdminCallsHandler struct {
	calls  CallLog
	logger *logging.Logger
}

// NewAdminCallsHandler creates the admin calls handler.
func NewAdminCallsHandler(calls CallLog, logger *logging.Logger) *AdminCallsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminCallsHandler{calls: calls, logger: logger.Component("admin")}
}

// ListCalls returns a clinic's most recent calls.
// GET /admin/clinics/{clinicID}/calls?limit=20
func (h *AdminCallsHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	calls, err := h.calls.RecentCalls(r.Context(), clinicID, limit)
	if err != nil {
		h.logger.Error("failed to list calls", "error", err, "clinic_id", clinicID)
		http.Error(w, "failed to list calls", http.StatusInternalServerError)
		return
	}
	if calls == nil {
		calls = []conversation.CallRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"calls": calls})
}

// GetCall returns one call record with its transcript.
// GET /admin/calls/{callID}
func (h *AdminCallsHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	record, err := h.calls.GetCall(r.Context(), callID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "call not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load call", "error", err, "call_id", callID)
		http.Error(w, "failed to load call", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
