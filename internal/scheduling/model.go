package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a persisted booking.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// Booking is a persisted, committed appointment occupying provider time.
// Only non-cancelled bookings participate in conflict checks.
type Booking struct {
	ID                 uuid.UUID
	ClinicID           string
	PatientID          string
	ProviderID         string
	CallID             string
	StartAt            time.Time
	DurationMinutes    int
	ServiceType        string
	Reason             string
	Notes              string
	Status             Status
	CancelledAt        *time.Time
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EndAt is the exclusive end of the occupied range.
func (b Booking) EndAt() time.Time {
	return b.StartAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Active reports whether the booking occupies provider time.
func (b Booking) Active() bool {
	return b.Status != StatusCancelled
}

// Slot is a candidate, not-yet-committed appointment time for a provider.
// It has no identity beyond its tuple until booked.
type Slot struct {
	ProviderID      string
	ProviderName    string
	Specialty       string
	Start           time.Time
	DurationMinutes int
	Score           int
}

// End is the exclusive end of the candidate range.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// TimeOfDay buckets for caller preferences.
type TimeOfDay string

const (
	TimeAny       TimeOfDay = "any"
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
)

// Urgency drives both the search horizon and slot ranking.
type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencySoon      Urgency = "soon"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

// Preferences are the session-derived scheduling preferences for one search.
type Preferences struct {
	PreferredProviderID string
	PreferredTimeOfDay  TimeOfDay
	PreferredDays       []time.Weekday
	ServiceType         string
	Urgency             Urgency
}

// BookingRequest describes one conflict-checked creation attempt.
type BookingRequest struct {
	ClinicID        string
	PatientID       string
	ProviderID      string
	CallID          string
	Start           time.Time
	ServiceType     string
	DurationMinutes int
	Reason          string
}

// Validate checks required fields before the conflict detector runs.
func (r BookingRequest) Validate() error {
	if strings.TrimSpace(r.ClinicID) == "" {
		return fmt.Errorf("scheduling: clinic id is required")
	}
	if strings.TrimSpace(r.PatientID) == "" {
		return fmt.Errorf("scheduling: patient id is required")
	}
	if strings.TrimSpace(r.ProviderID) == "" {
		return fmt.Errorf("scheduling: provider id is required")
	}
	if r.Start.IsZero() {
		return fmt.Errorf("scheduling: start time is required")
	}
	if strings.TrimSpace(r.ServiceType) == "" {
		return fmt.Errorf("scheduling: service type is required")
	}
	if r.DurationMinutes < 0 {
		return fmt.Errorf("scheduling: duration cannot be negative")
	}
	return nil
}

// BookingResult reports the outcome of a booking, reschedule, or cancel.
type BookingResult struct {
	Success        bool
	BookingID      uuid.UUID
	ConflictReason string
	Alternatives   []Slot
	Message        string
}

// SearchResult is the ranked output of an availability search.
type SearchResult struct {
	Slots                      []Slot
	TotalFound                 int
	PreferredProviderAvailable bool
	NextWithPreferred          *Slot
	FirstAvailable             *Slot
	Message                    string
}

// ProviderSchedule is a provider with parsed weekly availability.
type ProviderSchedule struct {
	ID           string
	Name         string
	Specialty    string
	Availability WeeklyAvailability
}
