package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-09-07 is a Monday.
var testNow = time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)

func TestValidateDateMatch(t *testing.T) {
	check, err := ValidateDate("2026-09-08", "Tuesday", time.UTC)
	require.NoError(t, err)

	assert.True(t, check.Valid)
	assert.Equal(t, "Tuesday", check.DayOfWeek)
	assert.Contains(t, check.Message, "date and day match correctly")
}

func TestValidateDateMismatchSuggestsNext(t *testing.T) {
	check, err := ValidateDate("2026-09-08", "Wednesday", time.UTC)
	require.NoError(t, err)

	assert.False(t, check.Valid)
	assert.Equal(t, "Tuesday", check.DayOfWeek)
	assert.Contains(t, check.Message, "actually a Tuesday, not Wednesday")
	assert.Equal(t, "2026-09-09", check.SuggestedDate)
	assert.Contains(t, check.Suggestion, "Did you mean")
}

func TestValidateDateBadFormat(t *testing.T) {
	_, err := ValidateDate("tomorrow", "Monday", time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestParseNaturalDate(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"today", "2026-09-07"},
		{"tomorrow", "2026-09-08"},
		{"this tuesday", "2026-09-08"},
		{"next tuesday", "2026-09-15"},
		{"friday", "2026-09-11"},
		{"monday", "2026-09-14"}, // same day rolls a week forward
		{"September 20", "2026-09-20"},
		{"january 26th", "2027-01-26"}, // already past, so next year
	}
	for _, tc := range cases {
		parsed, err := ParseNaturalDate(tc.text, testNow, time.UTC)
		if err != nil {
			t.Fatalf("ParseNaturalDate(%q): %v", tc.text, err)
		}
		if parsed.Date != tc.want {
			t.Errorf("ParseNaturalDate(%q) = %s, want %s", tc.text, parsed.Date, tc.want)
		}
	}
}

func TestParseNaturalDateNextSameDay(t *testing.T) {
	// "next monday" spoken on a Monday means a full week out.
	parsed, err := ParseNaturalDate("next monday", testNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-21", parsed.Date)
}

func TestParseNaturalDateUnparseable(t *testing.T) {
	_, err := ParseNaturalDate("whenever works", testNow, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specific date")
}
