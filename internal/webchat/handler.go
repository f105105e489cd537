package webchat

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/git-bonda108/Dentsi-sub000/internal/conversation"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

// Agent runs conversations for web chat visitors. The conversation engine
// implements it.
type Agent interface {
	StartCall(ctx context.Context, callID, clinicID, callerPhone string) (*conversation.Session, string, error)
	HandleUtterance(ctx context.Context, callID, text string) (*conversation.TurnResult, error)
	EndCall(ctx context.Context, callID string, duration time.Duration) error
}

// Handler manages web chat connections and messages.
type Handler struct {
	agent  Agent
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // callID -> active connection
}

type wsConn struct {
	conn      *websocket.Conn
	startedAt time.Time
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string `json:"type"` // "message", "typing", "session", "error", "pong"
	Text      string `json:"text,omitempty"`
	Role      string `json:"role,omitempty"` // "assistant" or "user"
	SessionID string `json:"session_id,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(agent Agent, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		agent:    agent,
		logger:   logger.Component("webchat"),
		sessions: make(map[string]*wsConn),
	}
}

// CallID builds the canonical call ID for a webchat session.
func CallID(clinicID, sessionID string) string {
	return fmt.Sprintf("webchat:%s:%s", clinicID, sessionID)
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	clinicID := r.URL.Query().Get("clinic")
	if clinicID == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing clinic parameter"})
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	callID := CallID(clinicID, sessionID)

	_, greeting, err := h.agent.StartCall(r.Context(), callID, clinicID, "")
	if err != nil {
		h.logger.Error("failed to start chat", "error", err, "clinic_id", clinicID)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, chat is unavailable right now."})
		return
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	h.sendReply(conn, greeting, string(conversation.PhaseGreeting))

	wsc := &wsConn{conn: conn, startedAt: time.Now()}
	h.mu.Lock()
	h.sessions[callID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[callID] == wsc {
			delete(h.sessions, callID)
		}
		h.mu.Unlock()
		if err := h.agent.EndCall(context.Background(), callID, time.Since(wsc.startedAt)); err != nil {
			h.logger.Warn("failed to end chat", "error", err, "call_id", callID)
		}
	}()

	h.logger.Info("connection opened", "clinic_id", clinicID, "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("connection closed", "clinic_id", clinicID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

		result, err := h.agent.HandleUtterance(r.Context(), callID, msg.Text)
		if err != nil {
			h.logger.Error("failed to handle message", "error", err, "call_id", callID)
			h.sendReply(conn, "Sorry, something went wrong. Please try again.", "")
			continue
		}

		h.sendReply(conn, result.Message, string(result.Phase))
		if !result.ShouldContinue {
			return
		}
	}
}

func (h *Handler) sendReply(conn *websocket.Conn, text, phase string) {
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      text,
		Phase:     phase,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleMessage is the HTTP fallback for clients without WebSocket support.
// It starts the session on first use and returns the reply synchronously.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClinicID  string `json:"clinic_id"`
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClinicID == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "clinic_id and text are required", http.StatusBadRequest)
		return
	}

	var greeting string
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
		callID := CallID(req.ClinicID, req.SessionID)
		var err error
		if _, greeting, err = h.agent.StartCall(r.Context(), callID, req.ClinicID, ""); err != nil {
			h.logger.Error("failed to start chat", "error", err, "clinic_id", req.ClinicID)
			http.Error(w, "chat unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	callID := CallID(req.ClinicID, req.SessionID)
	result, err := h.agent.HandleUtterance(r.Context(), callID, req.Text)
	if err != nil {
		h.logger.Error("failed to handle message", "error", err, "call_id", callID)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	reply := result.Message
	if greeting != "" {
		reply = greeting + " " + reply
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": req.SessionID,
		"reply":      reply,
		"phase":      string(result.Phase),
		"done":       !result.ShouldContinue,
	})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(widgetJS)
}
