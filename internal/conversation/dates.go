package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateCheck is the result of validating a caller-supplied date against the
// day of week they said.
type DateCheck struct {
	Valid             bool   `json:"is_valid"`
	Date              string `json:"date"`
	DayOfWeek         string `json:"day_of_week"`
	ExpectedDayOfWeek string `json:"expected_day_of_week,omitempty"`
	FormattedDate     string `json:"formatted_date"`
	SuggestedDate     string `json:"suggested_date,omitempty"`
	Suggestion        string `json:"suggestion,omitempty"`
	Message           string `json:"message"`
}

// ParsedDate is a natural-language date resolved to a calendar day.
type ParsedDate struct {
	Date          string `json:"date"`
	DayOfWeek     string `json:"day_of_week"`
	FormattedDate string `json:"formatted_date"`
}

func formatLongDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

// ValidateDate checks that a YYYY-MM-DD date falls on the day of week the
// caller named. When it does not, the next matching date is suggested.
func ValidateDate(dateStr, expectedDay string, loc *time.Location) (DateCheck, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return DateCheck{}, fmt.Errorf("please provide date in YYYY-MM-DD format")
	}

	actualDay := date.Weekday().String()
	if strings.EqualFold(actualDay, strings.TrimSpace(expectedDay)) {
		return DateCheck{
			Valid:         true,
			Date:          dateStr,
			DayOfWeek:     actualDay,
			FormattedDate: formatLongDate(date),
			Message:       fmt.Sprintf("%s - date and day match correctly.", formatLongDate(date)),
		}, nil
	}

	target, ok := parseWeekdayName(expectedDay)
	check := DateCheck{
		Valid:             false,
		Date:              dateStr,
		DayOfWeek:         actualDay,
		ExpectedDayOfWeek: expectedDay,
		FormattedDate:     formatLongDate(date),
		Message:           fmt.Sprintf("%s is actually a %s, not %s.", dateStr, actualDay, expectedDay),
	}
	if ok {
		suggested := nextWeekday(date, target, false)
		check.SuggestedDate = suggested.Format("2006-01-02")
		check.Suggestion = fmt.Sprintf("Did you mean %s?", formatLongDate(suggested))
	}
	return check, nil
}

var (
	relativeDayPattern = regexp.MustCompile(`(?i)(next|this)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)
	bareDayPattern     = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	monthDayPattern    = regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\s*(\d{1,2})`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ParseNaturalDate resolves phrases like "tomorrow", "next Tuesday" or
// "January 26th" relative to now in the clinic's timezone.
func ParseNaturalDate(dateText string, now time.Time, loc *time.Location) (ParsedDate, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, loc)
	text := strings.ToLower(strings.TrimSpace(dateText))

	if strings.Contains(text, "today") {
		return parsedDateFrom(today), nil
	}
	if strings.Contains(text, "tomorrow") {
		return parsedDateFrom(today.AddDate(0, 0, 1)), nil
	}

	if m := relativeDayPattern.FindStringSubmatch(text); m != nil {
		target, _ := parseWeekdayName(m[2])
		isNext := strings.EqualFold(m[1], "next")
		return parsedDateFrom(nextWeekday(today, target, isNext)), nil
	}

	if m := bareDayPattern.FindStringSubmatch(text); m != nil {
		target, _ := parseWeekdayName(m[1])
		return parsedDateFrom(nextWeekday(today, target, false)), nil
	}

	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		month := monthsByName[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		result := time.Date(today.Year(), month, day, 12, 0, 0, 0, loc)
		// A date already behind us means next year.
		if result.Before(today) {
			result = result.AddDate(1, 0, 0)
		}
		return parsedDateFrom(result), nil
	}

	return ParsedDate{}, fmt.Errorf("I couldn't understand %q. Could you give me a specific date like \"January 28th\" or \"next Tuesday\"?", dateText)
}

func parsedDateFrom(t time.Time) ParsedDate {
	return ParsedDate{
		Date:          t.Format("2006-01-02"),
		DayOfWeek:     t.Weekday().String(),
		FormattedDate: formatLongDate(t),
	}
}

func parseWeekdayName(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	}
	return 0, false
}

// nextWeekday finds the next occurrence of target strictly after from.
// nextWeek pushes the result at least one full week out.
func nextWeekday(from time.Time, target time.Weekday, nextWeek bool) time.Time {
	days := int(target) - int(from.Weekday())
	if days <= 0 || nextWeek {
		days += 7
	}
	if nextWeek && days <= 7 {
		days += 7
	}
	return from.AddDate(0, 0, days)
}
