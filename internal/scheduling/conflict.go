package scheduling

import (
	"fmt"
	"time"
)

// Conflict explains why a requested range cannot be booked.
type Conflict struct {
	Reason string
}

// CheckConflict determines whether the requested [start, start+duration)
// range can be booked against the provider's availability and active
// bookings. Two checks run in order: overlap against every active booking's
// own occupied range, then full containment within that weekday's working
// windows. A nil return means the range is free.
func CheckConflict(start time.Time, durationMinutes int, availability WeeklyAvailability, existing []Booking) *Conflict {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	for _, b := range existing {
		if !b.Active() {
			continue
		}
		if rangesOverlap(start, end, b.StartAt, b.EndAt()) {
			return &Conflict{
				Reason: fmt.Sprintf("provider has an appointment at %s", b.StartAt.Format("15:04")),
			}
		}
	}

	if !availability.WorksOn(start.Weekday()) {
		return &Conflict{
			Reason: fmt.Sprintf("provider does not work on %ss", start.Weekday()),
		}
	}

	startMinute := start.Hour()*60 + start.Minute()
	endMinute := startMinute + durationMinutes
	for _, window := range availability.Windows(start.Weekday()) {
		if window.Contains(startMinute, endMinute) {
			return nil
		}
	}
	return &Conflict{Reason: "requested time is outside working hours"}
}
