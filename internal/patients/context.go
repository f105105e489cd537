package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
	"github.com/git-bonda108/Dentsi-sub000/internal/triage"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// CallContext is everything the agent knows about the caller at call start.
type CallContext struct {
	Patient            *Patient
	IsReturningPatient bool
	Phone              string
	Upcoming           []scheduling.Booking
	LastVisitDaysAgo   int
}

// BookingReader is the slice of the scheduling store the context builder needs.
type BookingReader interface {
	ListPatientBookings(ctx context.Context, patientID string, from time.Time) ([]scheduling.Booking, error)
}

// ContextBuilder assembles per-call patient context.
type ContextBuilder struct {
	patients *Repository
	bookings BookingReader
	logger   *logging.Logger
	now      func() time.Time
}

// NewContextBuilder wires the builder.
func NewContextBuilder(patients *Repository, bookings BookingReader, logger *logging.Logger) *ContextBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContextBuilder{
		patients: patients,
		bookings: bookings,
		logger:   logger.Component("patients"),
		now:      time.Now,
	}
}

// FromPhone builds the call context for an inbound caller. Unknown numbers
// produce a new-patient context rather than an error.
func (b *ContextBuilder) FromPhone(ctx context.Context, clinicID, phone string) (*CallContext, error) {
	patient, err := b.patients.FindByPhone(ctx, clinicID, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			b.logger.Info("new caller, no patient record", "phone", phone)
			return &CallContext{Phone: phone}, nil
		}
		return nil, err
	}

	cc := &CallContext{
		Patient:            patient,
		IsReturningPatient: true,
		Phone:              phone,
	}
	if patient.LastVisitAt != nil {
		cc.LastVisitDaysAgo = int(b.now().Sub(*patient.LastVisitAt).Hours() / 24)
	}

	if b.bookings != nil {
		upcoming, err := b.bookings.ListPatientBookings(ctx, patient.ID.String(), b.now())
		if err != nil {
			b.logger.Warn("failed to load upcoming appointments", "error", err)
		} else {
			cc.Upcoming = upcoming
		}
	}
	return cc, nil
}

// TriageContext adapts the call context for the triage service.
func (c *CallContext) TriageContext() triage.PatientContext {
	if c.Patient == nil {
		return triage.PatientContext{}
	}
	return triage.PatientContext{
		PatientName: c.Patient.Name,
		Allergies:   c.Patient.Allergies,
		Medications: c.Patient.Medications,
		Conditions:  c.Patient.Conditions,
		StaffNotes:  c.Patient.StaffNotes,
		NoShowCount: c.Patient.NoShowCount,
	}
}

// PromptContext renders the caller summary for the system prompt.
func (c *CallContext) PromptContext() string {
	var b strings.Builder

	b.WriteString("\n## CALLER\n")
	if !c.IsReturningPatient || c.Patient == nil {
		fmt.Fprintf(&b, "New caller from %s, no patient record on file.\n", c.Phone)
		b.WriteString("Collect their name and reason for calling; create a record before booking.\n")
		return b.String()
	}

	p := c.Patient
	fmt.Fprintf(&b, "Returning patient: %s\n", p.Name)
	fmt.Fprintf(&b, "Total visits: %d\n", p.TotalVisits)
	if p.LastVisitAt != nil {
		fmt.Fprintf(&b, "Last visit: %s (%d days ago)\n", p.LastVisitAt.Format("January 2, 2006"), c.LastVisitDaysAgo)
	}
	if p.HasInsurance() {
		verified := "unverified"
		if p.InsuranceVerified {
			verified = "verified"
		}
		fmt.Fprintf(&b, "Insurance: %s (%s)\n", p.InsuranceProvider, verified)
	} else {
		b.WriteString("Insurance: none on file\n")
	}
	if p.PreferredProviderID != "" {
		fmt.Fprintf(&b, "Preferred provider id: %s\n", p.PreferredProviderID)
	}
	if p.PreferredTimeOfDay != "" {
		fmt.Fprintf(&b, "Preferred time of day: %s\n", p.PreferredTimeOfDay)
	}
	if p.NoShowCount > 0 {
		fmt.Fprintf(&b, "Missed appointments: %d\n", p.NoShowCount)
	}

	if len(c.Upcoming) > 0 {
		b.WriteString("\nUpcoming appointments:\n")
		for _, appt := range c.Upcoming {
			fmt.Fprintf(&b, "- %s: %s with provider %s\n",
				appt.StartAt.Format("Monday, January 2 at 3:04 PM"), appt.ServiceType, appt.ProviderID)
		}
	}
	return b.String()
}
