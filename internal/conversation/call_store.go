package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallRecord is the durable row for a completed or in-flight call.
type CallRecord struct {
	ID              uuid.UUID  `json:"id"`
	CallID          string     `json:"call_id"`
	ClinicID        string     `json:"clinic_id"`
	PatientID       string     `json:"patient_id,omitempty"`
	CallerPhone     string     `json:"caller_phone,omitempty"`
	Transcript      string     `json:"transcript,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	Status          string     `json:"status"`
	Intent          string     `json:"intent,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// CallStore persists call records to PostgreSQL for reporting and audit.
type CallStore struct {
	db *sql.DB
}

// NewCallStore creates a call store. A nil db yields a no-op store so the
// engine can run without durable call history in development.
func NewCallStore(db *sql.DB) *CallStore {
	if db == nil {
		return nil
	}
	return &CallStore{db: db}
}

// StartCall records that a call began.
func (s *CallStore) StartCall(ctx context.Context, callID, clinicID, callerPhone string, startedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (id, call_id, clinic_id, caller_phone, status, started_at)
		VALUES ($1, $2, $3, $4, 'active', $5)
		ON CONFLICT (call_id) DO NOTHING
	`, uuid.New(), callID, clinicID, callerPhone, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("conversation: start call: %w", err)
	}
	return nil
}

// CompleteCall upserts the final call record with transcript and outcome.
func (s *CallStore) CompleteCall(ctx context.Context, rec CallRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	var patientID any
	if rec.PatientID != "" {
		patientID = rec.PatientID
	}
	endedAt := time.Now().UTC()
	if rec.EndedAt != nil {
		endedAt = rec.EndedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (id, call_id, clinic_id, patient_id, caller_phone, transcript, duration_seconds, status, intent, outcome, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'completed', $8, $9, $10, $11)
		ON CONFLICT (call_id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			transcript = EXCLUDED.transcript,
			duration_seconds = EXCLUDED.duration_seconds,
			status = EXCLUDED.status,
			intent = EXCLUDED.intent,
			outcome = EXCLUDED.outcome,
			ended_at = EXCLUDED.ended_at
	`, uuid.New(), rec.CallID, rec.ClinicID, patientID, rec.CallerPhone,
		rec.Transcript, rec.DurationSeconds, rec.Intent, rec.Outcome,
		rec.StartedAt.UTC(), endedAt)
	if err != nil {
		return fmt.Errorf("conversation: complete call: %w", err)
	}
	return nil
}

// GetCall fetches one call record by its external call id.
func (s *CallStore) GetCall(ctx context.Context, callID string) (*CallRecord, error) {
	if s == nil || s.db == nil {
		return nil, sql.ErrNoRows
	}
	var rec CallRecord
	var patientID, transcript, intent, outcome sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, call_id, clinic_id, patient_id, caller_phone, transcript, duration_seconds, status, intent, outcome, started_at, ended_at
		FROM calls WHERE call_id = $1
	`, callID).Scan(&rec.ID, &rec.CallID, &rec.ClinicID, &patientID, &rec.CallerPhone,
		&transcript, &rec.DurationSeconds, &rec.Status, &intent, &outcome, &rec.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	rec.PatientID = patientID.String
	rec.Transcript = transcript.String
	rec.Intent = intent.String
	rec.Outcome = outcome.String
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	return &rec, nil
}

// RecentCalls lists the latest calls for a clinic, newest first.
func (s *CallStore) RecentCalls(ctx context.Context, clinicID string, limit int) ([]CallRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, call_id, clinic_id, patient_id, caller_phone, transcript, duration_seconds, status, intent, outcome, started_at, ended_at
		FROM calls WHERE clinic_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, clinicID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: recent calls: %w", err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var rec CallRecord
		var patientID, transcript, intent, outcome sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.CallID, &rec.ClinicID, &patientID, &rec.CallerPhone,
			&transcript, &rec.DurationSeconds, &rec.Status, &intent, &outcome, &rec.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		rec.PatientID = patientID.String
		rec.Transcript = transcript.String
		rec.Intent = intent.String
		rec.Outcome = outcome.String
		if endedAt.Valid {
			rec.EndedAt = &endedAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
