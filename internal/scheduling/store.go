package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOverlap is returned when the database rejects a write because the
// occupied range would intersect another active booking for that provider.
var ErrOverlap = errors.New("scheduling: booking overlaps an existing appointment")

// ErrBookingNotFound is returned for lookups and updates of unknown bookings.
var ErrBookingNotFound = errors.New("scheduling: booking not found")

// Store is the persistence boundary of the scheduling engine. The database
// carries an exclusion constraint over (provider, occupied range) for
// non-cancelled rows, so a conflicting write fails atomically regardless of
// process topology.
type Store interface {
	ListBookings(ctx context.Context, clinicID string, from, to time.Time) ([]Booking, error)
	ListProviderBookings(ctx context.Context, clinicID, providerID string, from, to time.Time) ([]Booking, error)
	ListPatientBookings(ctx context.Context, patientID string, from time.Time) ([]Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	CreateBooking(ctx context.Context, b *Booking) error
	UpdateBookingSlot(ctx context.Context, id uuid.UUID, providerID string, start time.Time, notes string) error
	CancelBooking(ctx context.Context, id uuid.UUID, reason string) error
}

// PgxIface is the subset of pgxpool.Pool the store uses; pgxmock implements it.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists bookings via pgx.
type PostgresStore struct {
	pool PgxIface
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// NewPostgresStoreWithIface is used by tests to inject a mock pool.
func NewPostgresStoreWithIface(pool PgxIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const bookingColumns = `
	id, clinic_id, patient_id, provider_id, call_id, start_at,
	duration_minutes, service_type, reason, notes, status,
	cancelled_at, cancellation_reason, created_at, updated_at
`

// ListBookings returns all bookings for a clinic whose start falls in [from, to].
func (s *PostgresStore) ListBookings(ctx context.Context, clinicID string, from, to time.Time) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM appointments
		WHERE clinic_id = $1 AND start_at >= $2 AND start_at <= $3
	`
	rows, err := s.pool.Query(ctx, query, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListProviderBookings returns one provider's bookings in [from, to].
func (s *PostgresStore) ListProviderBookings(ctx context.Context, clinicID, providerID string, from, to time.Time) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM appointments
		WHERE clinic_id = $1 AND provider_id = $2 AND start_at >= $3 AND start_at <= $4
	`
	rows, err := s.pool.Query(ctx, query, clinicID, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list provider bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListPatientBookings returns a patient's non-cancelled bookings starting at or after from.
func (s *PostgresStore) ListPatientBookings(ctx context.Context, patientID string, from time.Time) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM appointments
		WHERE patient_id = $1 AND start_at >= $2 AND status NOT IN ('cancelled')
		ORDER BY start_at
	`
	rows, err := s.pool.Query(ctx, query, patientID, from)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list patient bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// GetBooking fetches a single booking by id.
func (s *PostgresStore) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM appointments WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("scheduling: get booking: %w", err)
	}
	return b, nil
}

// CreateBooking inserts a new appointment. A per-provider advisory lock makes
// concurrent conflicting attempts fail fast; the exclusion constraint remains
// the authority and is surfaced as ErrOverlap.
func (s *PostgresStore) CreateBooking(ctx context.Context, b *Booking) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.ProviderID); err != nil {
		return fmt.Errorf("scheduling: provider lock: %w", err)
	}

	query := `
		INSERT INTO appointments (
			id, clinic_id, patient_id, provider_id, call_id, start_at,
			duration_minutes, service_type, reason, notes, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		b.ID,
		b.ClinicID,
		b.PatientID,
		b.ProviderID,
		b.CallID,
		b.StartAt,
		b.DurationMinutes,
		b.ServiceType,
		b.Reason,
		b.Notes,
		b.Status,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("scheduling: insert booking: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit: %w", err)
	}
	return nil
}

// UpdateBookingSlot moves a booking to a new provider and start time in a
// single write, which frees the old range and occupies the new one
// atomically. Status becomes rescheduled.
func (s *PostgresStore) UpdateBookingSlot(ctx context.Context, id uuid.UUID, providerID string, start time.Time, notes string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, providerID); err != nil {
		return fmt.Errorf("scheduling: provider lock: %w", err)
	}

	query := `
		UPDATE appointments
		SET provider_id = $2, start_at = $3, status = 'rescheduled',
		    notes = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, query, id, providerID, start, notes)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("scheduling: update booking slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit: %w", err)
	}
	return nil
}

// CancelBooking soft-cancels. Cancelling an already-cancelled booking
// succeeds without error.
func (s *PostgresStore) CancelBooking(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE appointments
		SET status = 'cancelled',
		    cancelled_at = COALESCE(cancelled_at, now()),
		    cancellation_reason = COALESCE(NULLIF($2, ''), cancellation_reason),
		    updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("scheduling: cancel booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate bookings: %w", err)
	}
	return out, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID,
		&b.ClinicID,
		&b.PatientID,
		&b.ProviderID,
		&b.CallID,
		&b.StartAt,
		&b.DurationMinutes,
		&b.ServiceType,
		&b.Reason,
		&b.Notes,
		&b.Status,
		&b.CancelledAt,
		&b.CancellationReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
