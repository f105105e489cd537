// Package scheduling turns provider working-hour definitions and existing
// bookings into ranked available slots, and performs conflict-checked,
// atomic appointment creation.
package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// TimeWindow is a half-open interval of minutes from midnight.
type TimeWindow struct {
	StartMinute int
	EndMinute   int
}

// Contains reports whether [startMinute, endMinute) fits entirely inside the window.
func (w TimeWindow) Contains(startMinute, endMinute int) bool {
	return startMinute >= w.StartMinute && endMinute <= w.EndMinute
}

// WeeklyAvailability maps weekdays to ordered, non-overlapping working windows.
// Built once per provider per scheduling request; immutable after construction.
type WeeklyAvailability struct {
	days [7][]TimeWindow
}

// Windows returns the working windows for the given weekday.
func (a WeeklyAvailability) Windows(day time.Weekday) []TimeWindow {
	return a.days[int(day)]
}

// WorksOn reports whether the provider has any window on the weekday.
func (a WeeklyAvailability) WorksOn(day time.Weekday) bool {
	return len(a.days[int(day)]) > 0
}

var dayKeys = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// DefaultWeeklyAvailability is weekdays 09:00-17:00.
func DefaultWeeklyAvailability() WeeklyAvailability {
	var a WeeklyAvailability
	window := TimeWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}
	for day := time.Monday; day <= time.Friday; day++ {
		a.days[int(day)] = []TimeWindow{window}
	}
	return a
}

// ParseWeeklyHours parses a provider's weekly-hours JSON, e.g.
//
//	{"mon": ["09:00-12:00", "14:00-17:00"], "sat": ["09:00-13:00"]}
//
// Malformed input falls back to the weekday 09:00-17:00 default rather than
// erroring; the condition is logged for operators.
func ParseWeeklyHours(raw string, logger *logging.Logger) WeeklyAvailability {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(raw) == "" {
		return DefaultWeeklyAvailability()
	}

	var parsed map[string][]string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn("falling back to default working hours", "error", err)
		return DefaultWeeklyAvailability()
	}

	var a WeeklyAvailability
	any := false
	for key, ranges := range parsed {
		day, ok := dayKeys[strings.ToLower(strings.TrimSpace(key))[:minInt(3, len(strings.TrimSpace(key)))]]
		if !ok {
			logger.Warn("ignoring unknown weekday key in working hours", "key", key)
			continue
		}
		for _, r := range ranges {
			window, err := parseWindow(r)
			if err != nil {
				logger.Warn("falling back to default working hours", "range", r, "error", err)
				return DefaultWeeklyAvailability()
			}
			a.days[int(day)] = append(a.days[int(day)], window)
			any = true
		}
	}
	if !any {
		logger.Warn("working hours definition had no usable windows, using default")
		return DefaultWeeklyAvailability()
	}
	return a
}

func parseWindow(r string) (TimeWindow, error) {
	parts := strings.SplitN(strings.TrimSpace(r), "-", 2)
	if len(parts) != 2 {
		return TimeWindow{}, fmt.Errorf("scheduling: window %q is not start-end", r)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return TimeWindow{}, err
	}
	if start >= end {
		return TimeWindow{}, fmt.Errorf("scheduling: window %q has start >= end", r)
	}
	return TimeWindow{StartMinute: start, EndMinute: end}, nil
}

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("scheduling: bad clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
