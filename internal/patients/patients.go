// Package patients manages patient records and builds the per-call context
// the conversational agent and triage consume.
package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned for unknown patients.
var ErrNotFound = errors.New("patients: not found")

// Patient is one patient record.
type Patient struct {
	ID                  uuid.UUID  `json:"id"`
	ClinicID            string     `json:"clinic_id"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone"`
	Email               string     `json:"email,omitempty"`
	DateOfBirth         *time.Time `json:"date_of_birth,omitempty"`
	InsuranceProvider   string     `json:"insurance_provider,omitempty"`
	InsuranceMemberID   string     `json:"insurance_member_id,omitempty"`
	InsuranceVerified   bool       `json:"insurance_verified"`
	Allergies           []string   `json:"allergies,omitempty"`
	Medications         []string   `json:"medications,omitempty"`
	Conditions          []string   `json:"conditions,omitempty"`
	StaffNotes          string     `json:"staff_notes,omitempty"`
	PreferredProviderID string     `json:"preferred_provider_id,omitempty"`
	PreferredTimeOfDay  string     `json:"preferred_time_of_day,omitempty"`
	Language            string     `json:"language,omitempty"`
	NoShowCount         int        `json:"no_show_count"`
	TotalVisits         int        `json:"total_visits"`
	LastVisitAt         *time.Time `json:"last_visit_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasInsurance reports whether insurance details are on file.
func (p *Patient) HasInsurance() bool {
	return p.InsuranceProvider != ""
}

// Repository persists patients via pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps the shared pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `
	id, clinic_id, name, phone, email, date_of_birth,
	insurance_provider, insurance_member_id, insurance_verified,
	allergies, medications, conditions, staff_notes,
	preferred_provider_id, preferred_time_of_day, language,
	no_show_count, total_visits, last_visit_at, created_at, updated_at
`

// FindByPhone looks a patient up by phone number within a clinic. Phone is
// the primary caller identity.
func (r *Repository) FindByPhone(ctx context.Context, clinicID, phone string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE clinic_id = $1 AND phone = $2
	`, clinicID, normalizePhone(phone))
	return scanPatient(row)
}

// Get fetches a patient by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

// Create inserts a new patient record.
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Phone = normalizePhone(p.Phone)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (
			id, clinic_id, name, phone, email, date_of_birth,
			insurance_provider, insurance_member_id, language
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.ClinicID, p.Name, p.Phone, p.Email, p.DateOfBirth,
		p.InsuranceProvider, p.InsuranceMemberID, p.Language).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("patients: create: %w", err)
	}
	return nil
}

// UpdateInsurance replaces the patient's insurance details; any update
// resets verification.
func (r *Repository) UpdateInsurance(ctx context.Context, id uuid.UUID, provider, memberID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET insurance_provider = $2, insurance_member_id = $3,
		    insurance_verified = false, updated_at = now()
		WHERE id = $1
	`, id, provider, memberID)
	if err != nil {
		return fmt.Errorf("patients: update insurance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordVisit bumps the visit counters after a completed appointment.
func (r *Repository) RecordVisit(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET total_visits = total_visits + 1, last_visit_at = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("patients: record visit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordNoShow bumps the no-show counter.
func (r *Repository) RecordNoShow(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET no_show_count = no_show_count + 1, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("patients: record no-show: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.Name,
		&p.Phone,
		&p.Email,
		&p.DateOfBirth,
		&p.InsuranceProvider,
		&p.InsuranceMemberID,
		&p.InsuranceVerified,
		&p.Allergies,
		&p.Medications,
		&p.Conditions,
		&p.StaffNotes,
		&p.PreferredProviderID,
		&p.PreferredTimeOfDay,
		&p.Language,
		&p.NoShowCount,
		&p.TotalVisits,
		&p.LastVisitAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: scan: %w", err)
	}
	return &p, nil
}

// normalizePhone strips formatting so lookups match regardless of how the
// number was entered. A leading + is kept.
func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
