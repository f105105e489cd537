// Package providers manages the clinic's provider roster and exposes it to
// the scheduling engine as parsed weekly availability.
package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// ErrNotFound is returned for unknown providers.
var ErrNotFound = errors.New("providers: not found")

// Provider is one dentist or hygienist on the roster. WeeklyHours is the raw
// JSON definition; malformed values fall back to weekday defaults when parsed.
type Provider struct {
	ID          string    `json:"id"`
	ClinicID    string    `json:"clinic_id"`
	Name        string    `json:"name"`
	Specialty   string    `json:"specialty"`
	WeeklyHours string    `json:"weekly_hours,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository loads providers from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps the shared pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const providerColumns = `id, clinic_id, name, specialty, weekly_hours, active, created_at`

// ListActive returns a clinic's active providers ordered by name.
func (r *Repository) ListActive(ctx context.Context, clinicID string) ([]Provider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE clinic_id = $1 AND active = true
		ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("providers: list: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get fetches one provider scoped to a clinic.
func (r *Repository) Get(ctx context.Context, clinicID, id string) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE clinic_id = $1 AND id = $2
	`, clinicID, id)
	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Specialty, &p.WeeklyHours, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("providers: scan: %w", err)
	}
	return &p, nil
}

// ProviderSource is the read surface Directory adapts; the repository
// implements it.
type ProviderSource interface {
	ListActive(ctx context.Context, clinicID string) ([]Provider, error)
	Get(ctx context.Context, clinicID, id string) (*Provider, error)
}

// Directory adapts the provider roster to the scheduling engine, parsing
// each provider's weekly hours.
type Directory struct {
	source ProviderSource
	logger *logging.Logger
}

var _ scheduling.ProviderDirectory = (*Directory)(nil)

// NewDirectory wires the scheduling adapter.
func NewDirectory(source ProviderSource, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{source: source, logger: logger.Component("providers")}
}

// ListActive returns active providers with parsed availability.
func (d *Directory) ListActive(ctx context.Context, clinicID string) ([]scheduling.ProviderSchedule, error) {
	providers, err := d.source.ListActive(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	schedules := make([]scheduling.ProviderSchedule, 0, len(providers))
	for _, p := range providers {
		schedules = append(schedules, d.toSchedule(p))
	}
	return schedules, nil
}

// Get returns one provider with parsed availability.
func (d *Directory) Get(ctx context.Context, clinicID, providerID string) (*scheduling.ProviderSchedule, error) {
	p, err := d.source.Get(ctx, clinicID, providerID)
	if err != nil {
		return nil, err
	}
	schedule := d.toSchedule(*p)
	return &schedule, nil
}

func (d *Directory) toSchedule(p Provider) scheduling.ProviderSchedule {
	return scheduling.ProviderSchedule{
		ID:           p.ID,
		Name:         p.Name,
		Specialty:    p.Specialty,
		Availability: scheduling.ParseWeeklyHours(p.WeeklyHours, d.logger),
	}
}
