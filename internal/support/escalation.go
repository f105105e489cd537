package support

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority orders escalations and callbacks for staff.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Escalation is one durable hand-off to human staff.
type Escalation struct {
	ID        uuid.UUID `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	CallID    string    `json:"call_id"`
	Reason    string    `json:"reason"`
	Priority  Priority  `json:"priority"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// EscalationStore persists escalations.
type EscalationStore struct {
	db *sql.DB
}

// NewEscalationStore wraps the shared sql pool.
func NewEscalationStore(db *sql.DB) *EscalationStore {
	return &EscalationStore{db: db}
}

// Create inserts a new escalation and returns it with generated fields set.
func (s *EscalationStore) Create(ctx context.Context, clinicID, callID, reason string, priority Priority) (*Escalation, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	e := &Escalation{
		ID:       uuid.New(),
		ClinicID: clinicID,
		CallID:   callID,
		Reason:   reason,
		Priority: priority,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO escalations (id, clinic_id, call_id, reason, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.ClinicID, e.CallID, e.Reason, e.Priority).Scan(&e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("support: insert escalation: %w", err)
	}
	return e, nil
}

// ListOpen returns unresolved escalations for a clinic, most urgent first.
func (s *EscalationStore) ListOpen(ctx context.Context, clinicID string) ([]Escalation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, clinic_id, call_id, reason, priority, resolved, created_at
		FROM escalations
		WHERE clinic_id = $1 AND resolved = false
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 0
				WHEN 'high' THEN 1
				WHEN 'medium' THEN 2
				ELSE 3
			END,
			created_at
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("support: list escalations: %w", err)
	}
	defer rows.Close()

	var out []Escalation
	for rows.Next() {
		var e Escalation
		if err := rows.Scan(&e.ID, &e.ClinicID, &e.CallID, &e.Reason, &e.Priority, &e.Resolved, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("support: scan escalation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Resolve marks an escalation handled.
func (s *EscalationStore) Resolve(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE escalations SET resolved = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("support: resolve escalation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
