package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Phase tracks where a call is in the booking flow. Transitions are driven
// by tool results, not by parsing the model's prose.
type Phase string

const (
	PhaseGreeting             Phase = "greeting"
	PhaseCollectingInfo       Phase = "collecting_info"
	PhaseCheckingAvailability Phase = "checking_availability"
	PhaseConfirming           Phase = "confirming"
	PhaseBooked               Phase = "booked"
	PhaseEscalated            Phase = "escalated"
	PhaseAbandoned            Phase = "abandoned"
)

// Terminal reports whether the phase ends the call flow.
func (p Phase) Terminal() bool {
	return p == PhaseBooked || p == PhaseEscalated || p == PhaseAbandoned
}

// CollectedFacts are the booking facts gathered across turns.
type CollectedFacts struct {
	PatientID         string     `json:"patient_id,omitempty"`
	PatientName       string     `json:"patient_name,omitempty"`
	ServiceType       string     `json:"service_type,omitempty"`
	Symptoms          string     `json:"symptoms,omitempty"`
	Urgency           string     `json:"urgency,omitempty"`
	InsuranceProvider string     `json:"insurance_provider,omitempty"`
	InsuranceMemberID string     `json:"insurance_member_id,omitempty"`
	ChosenProviderID  string     `json:"chosen_provider_id,omitempty"`
	ChosenStart       *time.Time `json:"chosen_start,omitempty"`
	BookingID         string     `json:"booking_id,omitempty"`
}

// Session is the full per-call conversation state. It round-trips through
// Redis as JSON between turns.
type Session struct {
	CallID      string `json:"call_id"`
	ClinicID    string `json:"clinic_id"`
	CallerPhone string `json:"caller_phone"`

	Phase     Phase          `json:"phase"`
	Intent    string         `json:"intent,omitempty"`
	Facts     CollectedFacts `json:"facts"`
	TurnCount int            `json:"turn_count"`

	// History holds the running message log, system prompt excluded.
	History []ChatMessage `json:"history"`

	// CreatedPatientID tracks a patient record created mid-call so later
	// tools can default to it when the model omits the id.
	CreatedPatientID string `json:"created_patient_id,omitempty"`

	Escalated        bool   `json:"escalated,omitempty"`
	EscalationReason string `json:"escalation_reason,omitempty"`

	SystemPrompt string `json:"system_prompt"`

	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Outcome        string     `json:"outcome,omitempty"`
}

// NewSession initializes session state for an answered call.
func NewSession(callID, clinicID, callerPhone string, now time.Time) *Session {
	if callID == "" {
		callID = uuid.NewString()
	}
	return &Session{
		CallID:         callID,
		ClinicID:       clinicID,
		CallerPhone:    callerPhone,
		Phase:          PhaseGreeting,
		StartedAt:      now.UTC(),
		LastActivityAt: now.UTC(),
	}
}

// Append records a message and bumps activity.
func (s *Session) Append(msg ChatMessage, now time.Time) {
	s.History = append(s.History, msg)
	s.LastActivityAt = now.UTC()
}

// PatientID returns the best-known patient identity for the call.
func (s *Session) PatientID() string {
	if s.Facts.PatientID != "" {
		return s.Facts.PatientID
	}
	return s.CreatedPatientID
}

// Transcript renders the caller-visible exchange, tool traffic excluded.
func (s *Session) Transcript() string {
	var out []byte
	for _, msg := range s.History {
		switch msg.Role {
		case ChatRoleUser:
			out = append(out, "Patient: "...)
		case ChatRoleAssistant:
			if msg.Content == "" {
				continue
			}
			out = append(out, "Dentsi: "...)
		default:
			continue
		}
		out = append(out, msg.Content...)
		out = append(out, '\n')
	}
	if len(out) > 0 {
		out = out[:len(out)-1]
	}
	return string(out)
}
