package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/git-bonda108/Dentsi-sub000/internal/clinic"
	"github.com/git-bonda108/Dentsi-sub000/internal/observability/metrics"
	"github.com/git-bonda108/Dentsi-sub000/internal/patients"
	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
	"github.com/git-bonda108/Dentsi-sub000/internal/support"
	"github.com/git-bonda108/Dentsi-sub000/internal/triage"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

var conversationTracer = otel.Tracer("dentsi/conversation")

// maxToolRounds bounds how many LLM round-trips one utterance may trigger.
const maxToolRounds = 5

// defaultTurnTimeout caps one utterance's LLM/tool loop. A caller on the
// line cannot wait longer than this for a reply.
const defaultTurnTimeout = 30 * time.Second

// ToolExecutor runs one tool invocation against the domain services.
type ToolExecutor interface {
	Execute(ctx context.Context, session *Session, inv ToolInvocation) ToolResult
}

// CallerContextSource builds patient context from the caller's number.
type CallerContextSource interface {
	FromPhone(ctx context.Context, clinicID, phone string) (*patients.CallContext, error)
}

// FailureHandler turns errors into scripted recoveries and records
// escalations.
type FailureHandler interface {
	HandleFailure(ctx context.Context, err error, call support.CallContext) support.FallbackAction
	Escalate(ctx context.Context, call support.CallContext, reason string, priority support.Priority) (*support.Escalation, error)
}

// TurnResult is what the caller hears after one utterance.
type TurnResult struct {
	Message        string `json:"message"`
	ShouldContinue bool   `json:"should_continue"`
	Phase          Phase  `json:"phase"`
	Intent         string `json:"intent,omitempty"`
}

// EngineConfig tunes the model call per turn.
type EngineConfig struct {
	Model       string
	MaxTokens   int32
	Temperature float32

	// TurnTimeout bounds the whole LLM/tool loop for one utterance. A hung
	// provider call surfaces as context.DeadlineExceeded and routes through
	// the timeout fallback.
	TurnTimeout time.Duration
}

// Engine orchestrates one phone call: session lifecycle, the bounded
// LLM/tool loop, emergency short-circuit, and final call persistence.
type Engine struct {
	llm       LLMClient
	registry  *SessionRegistry
	toolbox   ToolExecutor
	clinics   clinic.Source
	callers   CallerContextSource
	providers scheduling.ProviderDirectory
	calls     *CallStore
	failures  FailureHandler
	metrics   *metrics.CallMetrics
	logger    *logging.Logger
	cfg       EngineConfig
	now       func() time.Time
}

// NewEngine wires the conversation engine.
func NewEngine(
	llm LLMClient,
	registry *SessionRegistry,
	toolbox ToolExecutor,
	clinics clinic.Source,
	callers CallerContextSource,
	providerDir scheduling.ProviderDirectory,
	calls *CallStore,
	failures FailureHandler,
	callMetrics *metrics.CallMetrics,
	logger *logging.Logger,
	cfg EngineConfig,
) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		// Keep responses concise for voice.
		cfg.MaxTokens = 300
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}
	return &Engine{
		llm:       llm,
		registry:  registry,
		toolbox:   toolbox,
		clinics:   clinics,
		callers:   callers,
		providers: providerDir,
		calls:     calls,
		failures:  failures,
		metrics:   callMetrics,
		logger:    logger.Component("engine"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock overrides wall-clock time for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// StartCall creates the session with full clinic and patient context and
// returns the personalized greeting.
func (e *Engine) StartCall(ctx context.Context, callID, clinicID, callerPhone string) (*Session, string, error) {
	c, err := e.clinics.Get(ctx, clinicID)
	if err != nil {
		return nil, "", fmt.Errorf("conversation: clinic lookup: %w", err)
	}

	caller, err := e.callers.FromPhone(ctx, clinicID, callerPhone)
	if err != nil {
		// An unknown caller is fine; a failed lookup degrades to one.
		e.logger.Warn("caller context lookup failed", "call_id", callID, "error", err)
		caller = nil
	}

	roster, err := e.providers.ListActive(ctx, clinicID)
	if err != nil {
		e.logger.Warn("provider roster lookup failed", "call_id", callID, "error", err)
	}

	now := e.now()
	session := NewSession(callID, clinicID, callerPhone, now)
	session.SystemPrompt = BuildSystemPrompt(c, caller, roster, now)
	if caller != nil && caller.Patient != nil {
		session.Facts.PatientID = caller.Patient.ID.String()
		session.Facts.PatientName = caller.Patient.Name
	}

	greeting := BuildGreeting(c.Name, caller, c.Location())
	session.Append(ChatMessage{Role: ChatRoleAssistant, Content: greeting}, now)

	if err := e.registry.Save(ctx, session); err != nil {
		return nil, "", err
	}
	if err := e.calls.StartCall(ctx, session.CallID, clinicID, callerPhone, now); err != nil {
		e.logger.Error("failed to record call start", "call_id", session.CallID, "error", err)
	}

	e.logger.Info("call started",
		"call_id", session.CallID,
		"clinic_id", clinicID,
		"returning", caller != nil && caller.IsReturningPatient,
	)
	return session, greeting, nil
}

// HandleUtterance processes one caller utterance through the bounded
// LLM/tool loop and returns the agent's reply.
func (e *Engine) HandleUtterance(ctx context.Context, callID, utterance string) (*TurnResult, error) {
	session, err := e.registry.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &TurnResult{
			Message:        "I apologize, but I'm having trouble with our connection. Could you please call back?",
			ShouldContinue: false,
		}, nil
	}

	turnStart := e.now()
	session.Append(ChatMessage{Role: ChatRoleUser, Content: utterance}, turnStart)
	session.TurnCount++

	// Emergency fast path: severe symptoms skip the model entirely.
	if !session.Escalated && triage.IsEmergency(utterance) {
		return e.emergencyEscalation(ctx, session, utterance)
	}

	// The loop gets its own deadline so a hung provider call cannot stall
	// the caller; the fallback path below runs on the outer context.
	turnCtx, cancel := context.WithTimeout(ctx, e.cfg.TurnTimeout)
	result, err := e.runLoop(turnCtx, session)
	cancel()
	if err != nil {
		action := e.failures.HandleFailure(ctx, err, e.supportContext(session))
		session.Append(ChatMessage{Role: ChatRoleAssistant, Content: action.Message}, e.now())
		if action.Type == support.ActionEscalate {
			session.Phase = PhaseEscalated
			session.Escalated = true
			session.EscalationReason = action.Reason
		}
		if saveErr := e.registry.Save(ctx, session); saveErr != nil {
			e.logger.Error("failed to save session after fallback", "call_id", callID, "error", saveErr)
		}
		e.observeTurn("fallback", turnStart)
		return &TurnResult{
			Message:        action.Message,
			ShouldContinue: action.Type == support.ActionRetry,
			Phase:          session.Phase,
			Intent:         session.Intent,
		}, nil
	}

	if err := e.registry.Save(ctx, session); err != nil {
		return nil, err
	}
	e.observeTurn("ok", turnStart)
	return result, nil
}

func (e *Engine) runLoop(ctx context.Context, session *Session) (*TurnResult, error) {
	ctx, span := conversationTracer.Start(ctx, "conversation.Turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("call_id", session.CallID),
		attribute.String("clinic_id", session.ClinicID),
		attribute.Int("turn", session.TurnCount),
	)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := e.llm.Complete(ctx, LLMRequest{
			Model:       e.cfg.Model,
			System:      []string{session.SystemPrompt},
			Messages:    session.History,
			Tools:       ToolCatalogue(),
			MaxTokens:   e.cfg.MaxTokens,
			Temperature: e.cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("conversation: llm call: %w", err)
		}

		if resp.WantsTools() {
			session.Append(ChatMessage{
				Role:      ChatRoleAssistant,
				Content:   resp.Text,
				ToolCalls: resp.ToolCalls,
			}, e.now())

			for _, call := range resp.ToolCalls {
				result := e.toolbox.Execute(ctx, session, call)
				status := "ok"
				if !result.Success {
					status = "error"
				}
				if e.metrics != nil {
					e.metrics.ObserveTool(call.Name, status)
				}
				payload, err := json.Marshal(result)
				if err != nil {
					payload = []byte(`{"success":false,"error":"result serialization failed"}`)
				}
				session.Append(ChatMessage{
					Role:       ChatRoleTool,
					Content:    string(payload),
					ToolCallID: call.ID,
					ToolName:   call.Name,
				}, e.now())
			}
			continue
		}

		text := resp.Text
		if text == "" {
			text = "I'm here to help. What would you like to do?"
		}
		session.Append(ChatMessage{Role: ChatRoleAssistant, Content: text}, e.now())
		return &TurnResult{
			Message:        text,
			ShouldContinue: session.Phase != PhaseEscalated,
			Phase:          session.Phase,
			Intent:         session.Intent,
		}, nil
	}

	if e.metrics != nil {
		e.metrics.ObserveLoopExhausted()
	}
	e.logger.Warn("tool loop exhausted", "call_id", session.CallID)
	return nil, errors.New("conversation: tool loop exhausted without a final response")
}

func (e *Engine) emergencyEscalation(ctx context.Context, session *Session, utterance string) (*TurnResult, error) {
	action := support.FallbackFor(support.ErrEmergency)

	if _, err := e.failures.Escalate(ctx, e.supportContext(session),
		"Emergency symptoms reported: "+utterance, support.PriorityUrgent); err != nil {
		e.logger.Error("emergency escalation failed", "call_id", session.CallID, "error", err)
	}
	if e.metrics != nil {
		e.metrics.ObserveEscalation("emergency")
	}

	session.Phase = PhaseEscalated
	session.Escalated = true
	session.EscalationReason = "emergency"
	session.Intent = "emergency"
	session.Facts.Symptoms = utterance
	session.Append(ChatMessage{Role: ChatRoleAssistant, Content: action.Message}, e.now())

	if err := e.registry.Save(ctx, session); err != nil {
		return nil, err
	}
	return &TurnResult{
		Message:        action.Message,
		ShouldContinue: false,
		Phase:          PhaseEscalated,
		Intent:         session.Intent,
	}, nil
}

// EndCall persists the final call record and drops the session. Ending an
// unknown call is a no-op.
func (e *Engine) EndCall(ctx context.Context, callID string, duration time.Duration) error {
	session, err := e.registry.Get(ctx, callID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	finalizeSession(session, e.now())

	err = e.calls.CompleteCall(ctx, CallRecord{
		CallID:          session.CallID,
		ClinicID:        session.ClinicID,
		PatientID:       session.PatientID(),
		CallerPhone:     session.CallerPhone,
		Transcript:      session.Transcript(),
		DurationSeconds: int(duration / time.Second),
		Intent:          session.Intent,
		Outcome:         session.Outcome,
		StartedAt:       session.StartedAt,
		EndedAt:         session.EndedAt,
	})
	if err != nil {
		e.logger.Error("failed to persist call record", "call_id", callID, "error", err)
	}

	e.logger.Info("call ended",
		"call_id", callID,
		"outcome", session.Outcome,
		"turns", session.TurnCount,
	)
	return e.registry.Delete(ctx, callID)
}

// finalizeSession stamps end-of-call state: the outcome is read off the
// phase the call actually reached, then any non-terminal phase collapses to
// abandoned.
func finalizeSession(session *Session, now time.Time) {
	session.EndedAt = &now
	session.Outcome = determineOutcome(session)
	if !session.Phase.Terminal() {
		session.Phase = PhaseAbandoned
	}
}

// determineOutcome reads the final phase and intent rather than scraping
// the transcript.
func determineOutcome(session *Session) string {
	switch session.Phase {
	case PhaseBooked:
		if session.Intent == "reschedule" {
			return "rescheduled"
		}
		return "booked"
	case PhaseEscalated:
		return "escalated"
	}
	switch session.Intent {
	case "reschedule":
		return "rescheduled"
	case "cancel":
		return "cancelled"
	}
	if session.TurnCount == 0 {
		return "abandoned"
	}
	// Hanging up with proposed slots still unanswered is a walked-away
	// booking, not an answered inquiry.
	if session.Phase == PhaseConfirming {
		return "abandoned"
	}
	return "inquiry_answered"
}

func (e *Engine) supportContext(session *Session) support.CallContext {
	return support.CallContext{
		CallID:   session.CallID,
		ClinicID: session.ClinicID,
		Intent:   session.Intent,
	}
}

func (e *Engine) observeTurn(outcome string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveTurn(outcome)
	e.metrics.ObserveTurnLatency("utterance", e.now().Sub(start).Seconds())
}
