// Package clinic provides clinic records, business hours, and clinic-facing
// context for the conversational agent.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned for unknown clinics.
var ErrNotFound = errors.New("clinic: not found")

// DayHours represents the opening hours for a single day.
// Nil means the clinic is closed that day.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// GetHoursForDay returns the configured hours for a weekday, or nil when closed.
func (b *BusinessHours) GetHoursForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// HasAnyHours returns true if at least one day has business hours configured.
func (b *BusinessHours) HasAnyHours() bool {
	return b.Sunday != nil || b.Monday != nil || b.Tuesday != nil ||
		b.Wednesday != nil || b.Thursday != nil || b.Friday != nil || b.Saturday != nil
}

// Clinic holds a clinic's record and operating configuration.
type Clinic struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Address               string        `json:"address,omitempty"`
	Phone                 string        `json:"phone,omitempty"`
	Email                 string        `json:"email,omitempty"`
	StaffEmail            string        `json:"staff_email,omitempty"`
	Timezone              string        `json:"timezone"`
	BusinessHours         BusinessHours `json:"business_hours"`
	InsuranceAccepted     []string      `json:"insurance_accepted,omitempty"`
	ParkingInfo           string        `json:"parking_info,omitempty"`
	EmergencyInstructions string        `json:"emergency_instructions,omitempty"`
	Greeting              string        `json:"greeting,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
}

// Location resolves the clinic's timezone, falling back to UTC.
func (c *Clinic) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsOpenAt checks if the clinic is open at the given time. A clinic with no
// configured hours is treated as always open.
func (c *Clinic) IsOpenAt(t time.Time) bool {
	localTime := t.In(c.Location())

	hours := c.BusinessHours.GetHoursForDay(localTime.Weekday())
	if hours == nil {
		return !c.BusinessHours.HasAnyHours()
	}

	openTime, err := time.Parse("15:04", hours.Open)
	if err != nil {
		return false
	}
	closeTime, err := time.Parse("15:04", hours.Close)
	if err != nil {
		return false
	}

	currentMinutes := localTime.Hour()*60 + localTime.Minute()
	openMinutes := openTime.Hour()*60 + openTime.Minute()
	closeMinutes := closeTime.Hour()*60 + closeTime.Minute()
	return currentMinutes >= openMinutes && currentMinutes < closeMinutes
}

// NextOpenTime returns when the clinic next opens, or the current time if
// already open.
func (c *Clinic) NextOpenTime(t time.Time) time.Time {
	loc := c.Location()
	localTime := t.In(loc)

	for i := 0; i < 7; i++ {
		checkDate := localTime.AddDate(0, 0, i)
		hours := c.BusinessHours.GetHoursForDay(checkDate.Weekday())
		if hours == nil {
			continue
		}

		openTime, err := time.Parse("15:04", hours.Open)
		if err != nil {
			continue
		}
		openDateTime := time.Date(
			checkDate.Year(), checkDate.Month(), checkDate.Day(),
			openTime.Hour(), openTime.Minute(), 0, 0, loc,
		)

		if i == 0 {
			closeTime, _ := time.Parse("15:04", hours.Close)
			closeDateTime := time.Date(
				checkDate.Year(), checkDate.Month(), checkDate.Day(),
				closeTime.Hour(), closeTime.Minute(), 0, 0, loc,
			)
			if localTime.Before(openDateTime) {
				return openDateTime
			}
			if localTime.Before(closeDateTime) {
				return localTime
			}
			continue
		}
		return openDateTime
	}

	return time.Date(localTime.Year(), localTime.Month(), localTime.Day()+1, 9, 0, 0, 0, loc)
}

// HoursContext describes current open status for the system prompt.
func (c *Clinic) HoursContext(t time.Time) string {
	localTime := t.In(c.Location())
	isOpen := c.IsOpenAt(t)

	status := "CLOSED"
	if isOpen {
		status = "OPEN"
	}

	hours := c.BusinessHours.GetHoursForDay(localTime.Weekday())
	todayHours := "Closed today"
	if hours != nil {
		todayHours = fmt.Sprintf("%s - %s", hours.Open, hours.Close)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Clinic: %s\n", c.Name)
	fmt.Fprintf(&b, "Current time: %s (%s)\n", localTime.Format("Monday, January 2, 2006 3:04 PM"), c.Timezone)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Today's hours: %s\n", todayHours)
	if !isOpen {
		fmt.Fprintf(&b, "Next open: %s\n", c.NextOpenTime(t).Format("Monday at 3:04 PM"))
	}
	return b.String()
}

// Info renders the clinic record for the get_clinic_info tool.
func (c *Clinic) Info() map[string]any {
	return map[string]any{
		"name":                   c.Name,
		"address":                c.Address,
		"phone":                  c.Phone,
		"email":                  c.Email,
		"timezone":               c.Timezone,
		"insurance_accepted":     c.InsuranceAccepted,
		"parking_info":           c.ParkingInfo,
		"emergency_instructions": c.EmergencyInstructions,
	}
}

// AcceptsInsurance reports whether the clinic takes the named plan.
func (c *Clinic) AcceptsInsurance(plan string) bool {
	needle := strings.ToLower(strings.TrimSpace(plan))
	if needle == "" {
		return false
	}
	for _, accepted := range c.InsuranceAccepted {
		lower := strings.ToLower(accepted)
		if strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			return true
		}
	}
	return false
}

// Repository loads clinic records from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps the shared pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clinicColumns = `
	id, name, address, phone, email, staff_email, timezone,
	business_hours, insurance_accepted, parking_info,
	emergency_instructions, greeting, created_at
`

// Get fetches a clinic by id.
func (r *Repository) Get(ctx context.Context, id string) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id)
	return scanClinic(row)
}

// GetByPhone fetches the clinic that owns an inbound phone line.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE phone = $1`, phone)
	return scanClinic(row)
}

// StaffEmail resolves the staff notification address for a clinic. It
// satisfies the notify package's contact source.
func (r *Repository) StaffEmail(ctx context.Context, clinicID string) (string, error) {
	c, err := r.Get(ctx, clinicID)
	if err != nil {
		return "", err
	}
	if c.StaffEmail != "" {
		return c.StaffEmail, nil
	}
	return c.Email, nil
}

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Address,
		&c.Phone,
		&c.Email,
		&c.StaffEmail,
		&c.Timezone,
		&c.BusinessHours,
		&c.InsuranceAccepted,
		&c.ParkingInfo,
		&c.EmergencyInstructions,
		&c.Greeting,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clinic: scan: %w", err)
	}
	return &c, nil
}
