package scheduling

import (
	"sort"
	"time"
)

// Candidate slots step through working windows at a fixed granularity.
const slotStepMinutes = 30

// DefaultSearchDays is the routine-urgency search horizon.
const DefaultSearchDays = 14

// HorizonEnd caps the search range by urgency: emergency looks no further
// than the next calendar day, urgent 3 days, soon 7, routine keeps the
// requested range.
func HorizonEnd(from, to time.Time, urgency Urgency) time.Time {
	var capped time.Time
	switch urgency {
	case UrgencyEmergency:
		capped = from.AddDate(0, 0, 1)
	case UrgencyUrgent:
		capped = from.AddDate(0, 0, 3)
	case UrgencySoon:
		capped = from.AddDate(0, 0, 7)
	default:
		return to
	}
	if capped.Before(to) {
		return capped
	}
	return to
}

// GenerateSlots enumerates candidate slots for one provider between from and
// to (inclusive of to's calendar day). A candidate is dropped when it lies in
// the past or when its full [start, start+duration) range intersects any
// active booking's occupied range. Output is unordered; RankSlots scores and
// sorts it.
func GenerateSlots(provider ProviderSchedule, from, to time.Time, durationMinutes int, existing []Booking, now time.Time) []Slot {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}

	occupied := make([]Booking, 0, len(existing))
	for _, b := range existing {
		if b.ProviderID == provider.ID && b.Active() {
			occupied = append(occupied, b)
		}
	}

	var slots []Slot
	duration := time.Duration(durationMinutes) * time.Minute
	loc := from.Location()

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)
	for !day.After(last) {
		for _, window := range provider.Availability.Windows(day.Weekday()) {
			for minute := window.StartMinute; minute+durationMinutes <= window.EndMinute; minute += slotStepMinutes {
				start := day.Add(time.Duration(minute) * time.Minute)
				if !start.After(now) {
					continue
				}
				end := start.Add(duration)
				if overlapsAny(start, end, occupied) {
					continue
				}
				slots = append(slots, Slot{
					ProviderID:      provider.ID,
					ProviderName:    provider.Name,
					Specialty:       provider.Specialty,
					Start:           start,
					DurationMinutes: durationMinutes,
				})
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return slots
}

func overlapsAny(start, end time.Time, bookings []Booking) bool {
	for _, b := range bookings {
		if rangesOverlap(start, end, b.StartAt, b.EndAt()) {
			return true
		}
	}
	return false
}

// rangesOverlap tests two half-open intervals.
func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// RankSlots scores candidates against caller preferences and sorts them,
// highest score first, ties broken chronologically then by provider id so the
// ordering is a deterministic function of its inputs.
func RankSlots(slots []Slot, prefs Preferences, now time.Time) []Slot {
	ranked := make([]Slot, len(slots))
	copy(ranked, slots)
	for i := range ranked {
		ranked[i].Score = scoreSlot(ranked[i], prefs, now)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].Start.Equal(ranked[j].Start) {
			return ranked[i].Start.Before(ranked[j].Start)
		}
		return ranked[i].ProviderID < ranked[j].ProviderID
	})
	return ranked
}

func scoreSlot(slot Slot, prefs Preferences, now time.Time) int {
	score := 0

	if prefs.PreferredProviderID != "" && prefs.PreferredProviderID == slot.ProviderID {
		score += 50
	}

	hour := slot.Start.Hour()
	switch prefs.PreferredTimeOfDay {
	case TimeMorning:
		if hour >= 8 && hour < 12 {
			score += 30
		}
	case TimeAfternoon:
		if hour >= 12 && hour < 17 {
			score += 30
		}
	case TimeEvening:
		if hour >= 17 {
			score += 30
		}
	}

	for _, day := range prefs.PreferredDays {
		if slot.Start.Weekday() == day {
			score += 20
			break
		}
	}

	if prefs.Urgency == UrgencyUrgent || prefs.Urgency == UrgencyEmergency {
		daysFromNow := int(slot.Start.Sub(now).Hours() / 24)
		if bonus := 10 - daysFromNow; bonus > 0 {
			score += bonus
		}
	}

	// Earlier-in-day slots get a small tiebreak toward morning.
	if bonus := 10 - hour; bonus > 0 {
		score += bonus
	}

	return score
}
