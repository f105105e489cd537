package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresStoreWithIface(mock), mock
}

func TestCreateBooking(t *testing.T) {
	store, mock := newMockStore(t)

	b := &Booking{
		ID:              uuid.New(),
		ClinicID:        "clinic-1",
		PatientID:       "patient-1",
		ProviderID:      "prov-1",
		CallID:          "call-1",
		StartAt:         time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		ServiceType:     "cleaning",
		Reason:          "routine cleaning",
		Notes:           "Booked via Dentsi AI",
		Status:          StatusScheduled,
	}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(b.ProviderID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(b.ID, b.ClinicID, b.PatientID, b.ProviderID, b.CallID, b.StartAt,
			b.DurationMinutes, b.ServiceType, b.Reason, b.Notes, b.Status).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))
	mock.ExpectCommit()

	if err := store.CreateBooking(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if b.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be populated")
	}
}

func TestCreateBookingOverlap(t *testing.T) {
	store, mock := newMockStore(t)

	b := &Booking{
		ID:              uuid.New(),
		ClinicID:        "clinic-1",
		PatientID:       "patient-1",
		ProviderID:      "prov-1",
		StartAt:         time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		ServiceType:     "cleaning",
		Status:          StatusScheduled,
	}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(b.ProviderID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(b.ID, b.ClinicID, b.PatientID, b.ProviderID, b.CallID, b.StartAt,
			b.DurationMinutes, b.ServiceType, b.Reason, b.Notes, b.Status).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"})
	mock.ExpectRollback()

	err := store.CreateBooking(context.Background(), b)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestUpdateBookingSlotNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	start := time.Date(2026, 9, 8, 14, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("prov-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id, "prov-1", start, "moved").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.UpdateBookingSlot(context.Background(), id, "prov-1", start, "moved")
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestUpdateBookingSlotOverlap(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	start := time.Date(2026, 9, 8, 14, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("prov-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(id, "prov-1", start, "moved").
		WillReturnError(&pgconn.PgError{Code: "23P01"})
	mock.ExpectRollback()

	err := store.UpdateBookingSlot(context.Background(), id, "prov-1", start, "moved")
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestCancelBooking(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(id, "patient request").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.CancelBooking(context.Background(), id, "patient request"); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}
}

func TestCancelBookingNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(id, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.CancelBooking(context.Background(), id, "")
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := store.GetBooking(context.Background(), id)
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestListProviderBookings(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	columns := []string{
		"id", "clinic_id", "patient_id", "provider_id", "call_id", "start_at",
		"duration_minutes", "service_type", "reason", "notes", "status",
		"cancelled_at", "cancellation_reason", "created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT").
		WithArgs("clinic-1", "prov-1", from, to).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(uuid.New(), "clinic-1", "patient-1", "prov-1", "call-1",
				from.Add(10*time.Hour), 60, "cleaning", "routine cleaning", "", "scheduled",
				(*time.Time)(nil), "", time.Now(), time.Now()))

	bookings, err := store.ListProviderBookings(context.Background(), "clinic-1", "prov-1", from, to)
	if err != nil {
		t.Fatalf("list provider bookings: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}
	if bookings[0].Status != StatusScheduled {
		t.Fatalf("unexpected status %q", bookings[0].Status)
	}
}
