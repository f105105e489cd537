package conversation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// Handler wires HTTP requests to the conversation engine.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine: engine,
		logger: logger.Component("calls"),
	}
}

// Routes mounts the call endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/calls/start", h.Start)
	r.Post("/calls/{callID}/utterance", h.Utterance)
	r.Post("/calls/{callID}/end", h.End)
}

// StartCallRequest opens a new call session.
type StartCallRequest struct {
	CallID      string `json:"call_id"`
	ClinicID    string `json:"clinic_id"`
	CallerPhone string `json:"caller_phone"`
}

// StartCallResponse returns the session id and opening line.
type StartCallResponse struct {
	CallID   string `json:"call_id"`
	Greeting string `json:"greeting"`
	Phase    Phase  `json:"phase"`
}

// Start handles POST /calls/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode start request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClinicID == "" || req.CallerPhone == "" {
		http.Error(w, "clinic_id and caller_phone are required", http.StatusBadRequest)
		return
	}

	session, greeting, err := h.engine.StartCall(r.Context(), req.CallID, req.ClinicID, req.CallerPhone)
	if err != nil {
		h.logger.Error("failed to start call", "error", err)
		http.Error(w, "Failed to start call", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, StartCallResponse{
		CallID:   session.CallID,
		Greeting: greeting,
		Phase:    session.Phase,
	})
}

// UtteranceRequest carries one caller utterance.
type UtteranceRequest struct {
	Text string `json:"text"`
}

// Utterance handles POST /calls/{callID}/utterance.
func (h *Handler) Utterance(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	var req UtteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode utterance request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	result, err := h.engine.HandleUtterance(r.Context(), callID, req.Text)
	if err != nil {
		h.logger.Error("failed to process utterance", "call_id", callID, "error", err)
		http.Error(w, "Failed to process utterance", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// EndCallRequest closes a call.
type EndCallRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

// End handles POST /calls/{callID}/end.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	var req EndCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode end request", "call_id", callID, "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.engine.EndCall(r.Context(), callID, time.Duration(req.DurationSeconds)*time.Second); err != nil {
		h.logger.Error("failed to end call", "call_id", callID, "error", err)
		http.Error(w, "Failed to end call", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
