// Package support handles failures during calls: it classifies errors into
// fallback actions, records staff escalations, and maintains the patient
// callback queue.
package support

import (
	"context"
	"errors"
	"strings"
)

// ErrorClass buckets a failure for fallback selection.
type ErrorClass string

const (
	ErrTimeout        ErrorClass = "timeout"
	ErrNoAvailability ErrorClass = "no_availability"
	ErrAmbiguousInput ErrorClass = "ambiguous_input"
	ErrSystemError    ErrorClass = "system_error"
	ErrEmergency      ErrorClass = "emergency"
	ErrUnknown        ErrorClass = "unknown"
)

// ActionType is what the agent does next after a failure.
type ActionType string

const (
	ActionRetry     ActionType = "retry"
	ActionCallback  ActionType = "callback"
	ActionEscalate  ActionType = "escalate"
	ActionVoicemail ActionType = "voicemail"
)

// FallbackAction is the caller-facing recovery for one classified failure.
type FallbackAction struct {
	Type                ActionType `json:"type"`
	Message             string     `json:"message"`
	Reason              string     `json:"reason"`
	RequiresStaffNotify bool       `json:"requires_staff_notify"`
}

// ClassifyError buckets an error for fallback selection. Expired context
// deadlines are timeouts regardless of message text; everything else is
// matched by content, with emergency outranking the availability and system
// classes when several substrings match.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	message := strings.ToLower(err.Error())

	switch {
	case strings.Contains(message, "timeout") || strings.Contains(message, "timed out"):
		return ErrTimeout
	case strings.Contains(message, "emergency") || strings.Contains(message, "urgent"):
		return ErrEmergency
	case strings.Contains(message, "no slots") || strings.Contains(message, "not available"):
		return ErrNoAvailability
	case strings.Contains(message, "ambiguous") || strings.Contains(message, "unclear"):
		return ErrAmbiguousInput
	case strings.Contains(message, "database") || strings.Contains(message, "connection") || strings.Contains(message, "network"):
		return ErrSystemError
	default:
		return ErrUnknown
	}
}

// FallbackFor returns the scripted recovery for one error class.
func FallbackFor(class ErrorClass) FallbackAction {
	switch class {
	case ErrTimeout:
		return FallbackAction{
			Type:    ActionRetry,
			Message: "I apologize for the delay. Let me try that again...",
			Reason:  "API timeout",
		}
	case ErrNoAvailability:
		return FallbackAction{
			Type:                ActionCallback,
			Message:             "I don't have any openings this week. Would you like me to call you when we have a cancellation, or would you prefer to schedule for next week?",
			Reason:              "No available slots",
			RequiresStaffNotify: true,
		}
	case ErrAmbiguousInput:
		return FallbackAction{
			Type:    ActionRetry,
			Message: "I want to make sure I understand correctly. Are you looking to schedule a new appointment or reschedule an existing one?",
			Reason:  "Ambiguous user input",
		}
	case ErrSystemError:
		return FallbackAction{
			Type:                ActionEscalate,
			Message:             "I apologize, I'm experiencing technical difficulties. Can I have your name and number? A staff member will call you back within the hour.",
			Reason:              "System error",
			RequiresStaffNotify: true,
		}
	case ErrEmergency:
		return FallbackAction{
			Type:                ActionEscalate,
			Message:             "This sounds urgent. Let me connect you with someone right away. Please hold for just a moment.",
			Reason:              "Emergency escalation",
			RequiresStaffNotify: true,
		}
	default:
		return FallbackAction{
			Type:                ActionCallback,
			Message:             "I apologize for the inconvenience. Can I get your name and phone number? I'll have someone call you back shortly.",
			Reason:              "Unknown error",
			RequiresStaffNotify: true,
		}
	}
}

// RecoveryMessage is the short in-conversation apology for one error class.
func RecoveryMessage(class ErrorClass) string {
	switch class {
	case ErrTimeout:
		return "I apologize for the delay. Let me try that again..."
	case ErrNoAvailability:
		return "I don't see any openings right now. Would you like me to check next week?"
	case ErrSystemError:
		return "I'm experiencing technical difficulties. Can I get your number for a callback?"
	case ErrEmergency:
		return "This sounds urgent. Let me connect you with someone immediately."
	default:
		return "I apologize for the inconvenience. Let me have someone call you back."
	}
}
