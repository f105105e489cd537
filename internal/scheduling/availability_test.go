package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeeklyHours(t *testing.T) {
	raw := `{"mon":["09:00-12:00","13:00-17:00"],"tue":["08:00-16:00"],"sat":["10:00-14:00"]}`
	avail := ParseWeeklyHours(raw, nil)

	mon := avail.Windows(time.Monday)
	require.Len(t, mon, 2)
	assert.Equal(t, TimeWindow{StartMinute: 9 * 60, EndMinute: 12 * 60}, mon[0])
	assert.Equal(t, TimeWindow{StartMinute: 13 * 60, EndMinute: 17 * 60}, mon[1])

	require.Len(t, avail.Windows(time.Tuesday), 1)
	require.Len(t, avail.Windows(time.Saturday), 1)

	assert.False(t, avail.WorksOn(time.Sunday))
	assert.False(t, avail.WorksOn(time.Wednesday))
}

func TestParseWeeklyHoursFullDayNames(t *testing.T) {
	avail := ParseWeeklyHours(`{"monday":["09:00-17:00"],"Friday":["09:00-13:00"]}`, nil)
	assert.True(t, avail.WorksOn(time.Monday))
	assert.True(t, avail.WorksOn(time.Friday))
	assert.False(t, avail.WorksOn(time.Tuesday))
}

func TestParseWeeklyHoursFallsBackToDefault(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json",
		`{"mon":["9am-5pm"]}`,
		`{"mon":["17:00-09:00"]}`,
		`{"someday":["09:00-17:00"]}`,
	} {
		avail := ParseWeeklyHours(raw, nil)
		for _, day := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
			windows := avail.Windows(day)
			require.Len(t, windows, 1, "raw=%q day=%s", raw, day)
			assert.Equal(t, TimeWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}, windows[0])
		}
		assert.False(t, avail.WorksOn(time.Saturday), "raw=%q", raw)
		assert.False(t, avail.WorksOn(time.Sunday), "raw=%q", raw)
	}
}

func TestTimeWindowContainsIsHalfOpen(t *testing.T) {
	w := TimeWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}

	assert.True(t, w.Contains(9*60, 10*60))
	assert.True(t, w.Contains(16*60, 17*60))
	assert.False(t, w.Contains(16*60+30, 17*60+30))
	assert.False(t, w.Contains(8*60, 9*60))
}

func TestServiceDuration(t *testing.T) {
	assert.Equal(t, 60, ServiceDuration("cleaning"))
	assert.Equal(t, 120, ServiceDuration("Root Canal"))
	assert.Equal(t, 30, ServiceDuration("checkup"))
	assert.Equal(t, DefaultDurationMinutes, ServiceDuration("orthodontic adjustment"))
	assert.Equal(t, DefaultDurationMinutes, ServiceDuration(""))
}
