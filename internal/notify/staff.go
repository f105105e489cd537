package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// StaffContactSource resolves the staff notification address for a clinic.
type StaffContactSource interface {
	StaffEmail(ctx context.Context, clinicID string) (string, error)
}

// StaffNotifier sends operational notifications to clinic staff. It
// implements the support package's Notifier.
type StaffNotifier struct {
	email    EmailSender
	contacts StaffContactSource
	logger   *logging.Logger
	now      func() time.Time
}

// NewStaffNotifier wires the notifier. email may be a stub sender.
func NewStaffNotifier(email EmailSender, contacts StaffContactSource, logger *logging.Logger) *StaffNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &StaffNotifier{
		email:    email,
		contacts: contacts,
		logger:   logger.Component("notify"),
		now:      time.Now,
	}
}

// NotifyStaff emails the clinic's staff address. Severity is info, warning,
// or critical and prefixes the subject line.
func (n *StaffNotifier) NotifyStaff(ctx context.Context, clinicID, subject, message, severity string) error {
	if n.email == nil {
		n.logger.Debug("email sender not configured, dropping staff notification", "subject", subject)
		return nil
	}

	to, err := n.contacts.StaffEmail(ctx, clinicID)
	if err != nil {
		return fmt.Errorf("notify: resolve staff contact: %w", err)
	}
	if to == "" {
		n.logger.Warn("clinic has no staff email configured", "clinic_id", clinicID)
		return nil
	}

	body := fmt.Sprintf("%s\n\nSeverity: %s\nTime: %s\n",
		message, strings.ToUpper(severity), n.now().Format("January 2, 2006 at 3:04 PM"))

	return n.email.Send(ctx, EmailMessage{
		To:      to,
		ToName:  "Clinic Staff",
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(severity), subject),
		Body:    body,
	})
}
