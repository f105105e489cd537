package support

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallbackStatus tracks a queue entry's lifecycle.
type CallbackStatus string

const (
	CallbackPending    CallbackStatus = "pending"
	CallbackInProgress CallbackStatus = "in_progress"
	CallbackCompleted  CallbackStatus = "completed"
	CallbackCancelled  CallbackStatus = "cancelled"
)

// CallbackEntry is one patient waiting for a return call.
type CallbackEntry struct {
	ID           uuid.UUID      `json:"id"`
	ClinicID     string         `json:"clinic_id"`
	PatientName  string         `json:"patient_name"`
	PatientPhone string         `json:"patient_phone"`
	Reason       string         `json:"reason"`
	Priority     Priority       `json:"priority"`
	Status       CallbackStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CallbackQueue is the durable patient callback list. Ordering is by
// priority then age, computed at read time so requeued entries keep their
// original position.
type CallbackQueue struct {
	db *sql.DB
}

// NewCallbackQueue wraps the shared sql pool.
func NewCallbackQueue(db *sql.DB) *CallbackQueue {
	return &CallbackQueue{db: db}
}

// Enqueue adds a patient to the queue.
func (q *CallbackQueue) Enqueue(ctx context.Context, clinicID, patientName, patientPhone, reason string, priority Priority) (*CallbackEntry, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	entry := &CallbackEntry{
		ID:           uuid.New(),
		ClinicID:     clinicID,
		PatientName:  patientName,
		PatientPhone: patientPhone,
		Reason:       reason,
		Priority:     priority,
		Status:       CallbackPending,
	}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO callback_queue (id, clinic_id, patient_name, patient_phone, reason, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, entry.ID, entry.ClinicID, entry.PatientName, entry.PatientPhone, entry.Reason, entry.Priority, entry.Status).
		Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("support: enqueue callback: %w", err)
	}
	return entry, nil
}

const callbackOrder = `
	CASE priority
		WHEN 'urgent' THEN 0
		WHEN 'high' THEN 1
		WHEN 'medium' THEN 2
		ELSE 3
	END,
	created_at
`

// List returns a clinic's queue, optionally filtered by status.
func (q *CallbackQueue) List(ctx context.Context, clinicID string, status CallbackStatus) ([]CallbackEntry, error) {
	query := `
		SELECT id, clinic_id, patient_name, patient_phone, reason, priority, status, created_at
		FROM callback_queue
		WHERE clinic_id = $1
	`
	args := []any{clinicID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY ` + callbackOrder

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("support: list callbacks: %w", err)
	}
	defer rows.Close()

	var out []CallbackEntry
	for rows.Next() {
		var e CallbackEntry
		if err := rows.Scan(&e.ID, &e.ClinicID, &e.PatientName, &e.PatientPhone, &e.Reason, &e.Priority, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("support: scan callback: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListOverdue returns pending entries across all clinics older than the
// cutoff, oldest first. The reminder worker uses it to chase stale promises.
func (q *CallbackQueue) ListOverdue(ctx context.Context, cutoff time.Time) ([]CallbackEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, clinic_id, patient_name, patient_phone, reason, priority, status, created_at
		FROM callback_queue
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("support: list overdue callbacks: %w", err)
	}
	defer rows.Close()

	var out []CallbackEntry
	for rows.Next() {
		var e CallbackEntry
		if err := rows.Scan(&e.ID, &e.ClinicID, &e.PatientName, &e.PatientPhone, &e.Reason, &e.Priority, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("support: scan callback: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NextPending claims the highest-priority pending entry for a clinic and
// marks it in progress. Returns sql.ErrNoRows when the queue is empty.
func (q *CallbackQueue) NextPending(ctx context.Context, clinicID string) (*CallbackEntry, error) {
	var e CallbackEntry
	err := q.db.QueryRowContext(ctx, `
		UPDATE callback_queue
		SET status = 'in_progress', updated_at = now()
		WHERE id = (
			SELECT id FROM callback_queue
			WHERE clinic_id = $1 AND status = 'pending'
			ORDER BY `+callbackOrder+`
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, clinic_id, patient_name, patient_phone, reason, priority, status, created_at
	`, clinicID).
		Scan(&e.ID, &e.ClinicID, &e.PatientName, &e.PatientPhone, &e.Reason, &e.Priority, &e.Status, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("support: claim callback: %w", err)
	}
	return &e, nil
}

// UpdateStatus moves an entry to a new lifecycle state.
func (q *CallbackQueue) UpdateStatus(ctx context.Context, id uuid.UUID, status CallbackStatus) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE callback_queue SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("support: update callback status: %w", err)
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
