package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2026-09-07 in a fixed zone keeps weekday math stable.
var testZone = time.FixedZone("clinic", -5*60*60)

func monday(hour, minute int) time.Time {
	return time.Date(2026, 9, 7, hour, minute, 0, 0, testZone)
}

func weekdayProvider(id string) ProviderSchedule {
	return ProviderSchedule{
		ID:           id,
		Name:         "Dr. Test",
		Specialty:    "general",
		Availability: DefaultWeeklyAvailability(),
	}
}

func TestGenerateSlotsOneOpenDay(t *testing.T) {
	now := monday(7, 0)
	slots := GenerateSlots(weekdayProvider("prov-1"), monday(0, 0), monday(23, 0), 60, nil, now)

	// 09:00 through 16:00 inclusive, every 30 minutes.
	require.Len(t, slots, 15)
	assert.Equal(t, monday(9, 0), slots[0].Start)
	assert.Equal(t, monday(16, 0), slots[len(slots)-1].Start)
	for _, s := range slots {
		assert.Equal(t, 60, s.DurationMinutes)
		assert.Equal(t, "prov-1", s.ProviderID)
	}
}

func TestGenerateSlotsSkipsWeekends(t *testing.T) {
	now := monday(7, 0)
	from := monday(0, 0)
	to := from.AddDate(0, 0, 6)
	slots := GenerateSlots(weekdayProvider("prov-1"), from, to, 60, nil, now)

	require.NotEmpty(t, slots)
	for _, s := range slots {
		day := s.Start.Weekday()
		assert.NotEqual(t, time.Saturday, day)
		assert.NotEqual(t, time.Sunday, day)
	}
	// Five working days of 15 starts each.
	assert.Len(t, slots, 75)
}

func TestGenerateSlotsBlocksFullRangeOfBooking(t *testing.T) {
	now := monday(7, 0)
	existing := []Booking{{
		ID:              uuid.New(),
		ProviderID:      "prov-1",
		StartAt:         monday(10, 0),
		DurationMinutes: 60,
		Status:          StatusScheduled,
	}}

	slots := GenerateSlots(weekdayProvider("prov-1"), monday(0, 0), monday(23, 0), 60, existing, now)

	starts := make(map[string]bool)
	for _, s := range slots {
		starts[s.Start.Format("15:04")] = true
	}
	// A 60-minute slot overlaps the 10:00-11:00 booking when it starts at
	// 09:30, 10:00, or 10:30.
	assert.True(t, starts["09:00"])
	assert.False(t, starts["09:30"])
	assert.False(t, starts["10:00"])
	assert.False(t, starts["10:30"])
	assert.True(t, starts["11:00"])
}

func TestGenerateSlotsIgnoresCancelledBookings(t *testing.T) {
	now := monday(7, 0)
	existing := []Booking{{
		ID:              uuid.New(),
		ProviderID:      "prov-1",
		StartAt:         monday(10, 0),
		DurationMinutes: 60,
		Status:          StatusCancelled,
	}}

	slots := GenerateSlots(weekdayProvider("prov-1"), monday(0, 0), monday(23, 0), 60, existing, now)
	require.Len(t, slots, 15)
}

func TestGenerateSlotsSkipsPastStarts(t *testing.T) {
	now := monday(12, 15)
	slots := GenerateSlots(weekdayProvider("prov-1"), monday(0, 0), monday(23, 0), 60, nil, now)

	require.NotEmpty(t, slots)
	assert.Equal(t, monday(12, 30), slots[0].Start)
}

func TestHorizonEnd(t *testing.T) {
	from := monday(8, 0)
	to := from.AddDate(0, 0, DefaultSearchDays)

	assert.Equal(t, from.AddDate(0, 0, 1), HorizonEnd(from, to, UrgencyEmergency))
	assert.Equal(t, from.AddDate(0, 0, 3), HorizonEnd(from, to, UrgencyUrgent))
	assert.Equal(t, from.AddDate(0, 0, 7), HorizonEnd(from, to, UrgencySoon))
	assert.Equal(t, to, HorizonEnd(from, to, UrgencyRoutine))
	assert.Equal(t, to, HorizonEnd(from, to, ""))
}

func TestRankSlotsPreferredProviderWins(t *testing.T) {
	now := monday(7, 0)
	slots := []Slot{
		{ProviderID: "prov-a", Start: monday(9, 0), DurationMinutes: 60},
		{ProviderID: "prov-b", Start: monday(9, 0), DurationMinutes: 60},
	}
	ranked := RankSlots(slots, Preferences{PreferredProviderID: "prov-b"}, now)

	require.Len(t, ranked, 2)
	assert.Equal(t, "prov-b", ranked[0].ProviderID)
	assert.Equal(t, 50, ranked[0].Score-ranked[1].Score)
}

func TestRankSlotsTimeOfDayPreference(t *testing.T) {
	now := monday(7, 0)
	slots := []Slot{
		{ProviderID: "prov-a", Start: monday(9, 0), DurationMinutes: 60},
		{ProviderID: "prov-a", Start: monday(14, 0), DurationMinutes: 60},
	}
	ranked := RankSlots(slots, Preferences{PreferredTimeOfDay: TimeAfternoon}, now)
	assert.Equal(t, monday(14, 0), ranked[0].Start)
}

func TestRankSlotsUrgencyFavorsSoonerDays(t *testing.T) {
	now := monday(7, 0)
	slots := []Slot{
		{ProviderID: "prov-a", Start: monday(9, 0).AddDate(0, 0, 4), DurationMinutes: 60},
		{ProviderID: "prov-a", Start: monday(9, 0), DurationMinutes: 60},
	}
	ranked := RankSlots(slots, Preferences{Urgency: UrgencyUrgent}, now)
	assert.Equal(t, monday(9, 0), ranked[0].Start)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRankSlotsDeterministicTieBreak(t *testing.T) {
	now := monday(7, 0)
	slots := []Slot{
		{ProviderID: "prov-b", Start: monday(9, 0), DurationMinutes: 60},
		{ProviderID: "prov-a", Start: monday(9, 0), DurationMinutes: 60},
	}

	first := RankSlots(slots, Preferences{}, now)
	second := RankSlots(slots, Preferences{}, now)

	require.Equal(t, first, second)
	assert.Equal(t, "prov-a", first[0].ProviderID)
	assert.Equal(t, "prov-b", first[1].ProviderID)
}
