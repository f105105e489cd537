package support

import (
	"context"

	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// Notifier delivers staff notifications. Severity is info, warning, or
// critical.
type Notifier interface {
	NotifyStaff(ctx context.Context, clinicID, subject, message, severity string) error
}

// CallContext carries call identity into failure handling.
type CallContext struct {
	CallID   string
	ClinicID string
	Intent   string
}

// Service classifies failures, records durable escalations and callbacks,
// and notifies staff when an action requires it.
type Service struct {
	escalations *EscalationStore
	callbacks   *CallbackQueue
	notifier    Notifier
	logger      *logging.Logger
}

// NewService wires the support service. notifier may be nil; notifications
// are then skipped.
func NewService(escalations *EscalationStore, callbacks *CallbackQueue, notifier Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		escalations: escalations,
		callbacks:   callbacks,
		notifier:    notifier,
		logger:      logger.Component("support"),
	}
}

// HandleFailure classifies the error and returns the scripted fallback.
// Notification failures are logged, never propagated; the caller still gets
// a usable action.
func (s *Service) HandleFailure(ctx context.Context, err error, call CallContext) FallbackAction {
	class := ClassifyError(err)
	action := FallbackFor(class)

	s.logger.Error("handling call failure",
		"call_id", call.CallID,
		"error", err,
		"class", class,
		"action", action.Type,
	)

	if action.RequiresStaffNotify {
		s.notify(ctx, call.ClinicID, "Call needs attention: "+action.Reason,
			"Call "+call.CallID+" hit a problem: "+action.Reason, severityFor(class))
	}
	return action
}

// Escalate records a durable escalation and notifies staff.
func (s *Service) Escalate(ctx context.Context, call CallContext, reason string, priority Priority) (*Escalation, error) {
	s.logger.Warn("escalating call to staff",
		"call_id", call.CallID, "reason", reason, "priority", priority)

	escalation, err := s.escalations.Create(ctx, call.ClinicID, call.CallID, reason, priority)
	if err != nil {
		return nil, err
	}

	severity := "warning"
	if priority == PriorityUrgent {
		severity = "critical"
	}
	s.notify(ctx, call.ClinicID, "Call escalation: "+reason,
		"Call "+call.CallID+" escalated: "+reason, severity)
	return escalation, nil
}

// RequestCallback queues a patient for a return call. High and urgent
// priorities notify staff immediately.
func (s *Service) RequestCallback(ctx context.Context, call CallContext, patientName, patientPhone, reason string, priority Priority) (*CallbackEntry, error) {
	entry, err := s.callbacks.Enqueue(ctx, call.ClinicID, patientName, patientPhone, reason, priority)
	if err != nil {
		return nil, err
	}

	s.logger.Info("callback queued",
		"callback_id", entry.ID, "patient", patientName, "priority", entry.Priority)

	if entry.Priority == PriorityUrgent || entry.Priority == PriorityHigh {
		severity := "warning"
		if entry.Priority == PriorityUrgent {
			severity = "critical"
		}
		s.notify(ctx, call.ClinicID,
			"New "+string(entry.Priority)+" priority callback",
			patientName+" ("+patientPhone+") needs a callback: "+reason, severity)
	}
	return entry, nil
}

func (s *Service) notify(ctx context.Context, clinicID, subject, message, severity string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyStaff(ctx, clinicID, subject, message, severity); err != nil {
		s.logger.Error("staff notification failed", "error", err, "subject", subject)
	}
}

func severityFor(class ErrorClass) string {
	switch class {
	case ErrEmergency:
		return "critical"
	case ErrSystemError:
		return "warning"
	default:
		return "info"
	}
}
