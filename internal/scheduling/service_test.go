package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	bookings  map[uuid.UUID]*Booking
	createErr error
	updateErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{bookings: make(map[uuid.UUID]*Booking)}
}

func (m *memoryStore) ListBookings(_ context.Context, clinicID string, from, to time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range m.bookings {
		if b.ClinicID == clinicID && !b.StartAt.Before(from) && !b.StartAt.After(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memoryStore) ListProviderBookings(_ context.Context, clinicID, providerID string, from, to time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range m.bookings {
		if b.ClinicID == clinicID && b.ProviderID == providerID && !b.StartAt.Before(from) && !b.StartAt.After(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memoryStore) ListPatientBookings(_ context.Context, patientID string, from time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range m.bookings {
		if b.PatientID == patientID && !b.StartAt.Before(from) && b.Status != StatusCancelled {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memoryStore) GetBooking(_ context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copy := *b
	return &copy, nil
}

func (m *memoryStore) CreateBooking(_ context.Context, b *Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	copy := *b
	m.bookings[b.ID] = &copy
	return nil
}

func (m *memoryStore) UpdateBookingSlot(_ context.Context, id uuid.UUID, providerID string, start time.Time, notes string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	b, ok := m.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.ProviderID = providerID
	b.StartAt = start
	b.Notes = notes
	b.Status = StatusRescheduled
	return nil
}

func (m *memoryStore) CancelBooking(_ context.Context, id uuid.UUID, reason string) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.CancelledAt == nil {
		now := time.Now()
		b.CancelledAt = &now
		b.CancellationReason = reason
	}
	b.Status = StatusCancelled
	return nil
}

type memoryDirectory struct {
	providers []ProviderSchedule
}

func (d *memoryDirectory) ListActive(_ context.Context, _ string) ([]ProviderSchedule, error) {
	return d.providers, nil
}

func (d *memoryDirectory) Get(_ context.Context, _ string, providerID string) (*ProviderSchedule, error) {
	for _, p := range d.providers {
		if p.ID == providerID {
			copy := p
			return &copy, nil
		}
	}
	return nil, ErrBookingNotFound
}

func newTestService(store Store, providers ...ProviderSchedule) *Service {
	if len(providers) == 0 {
		providers = []ProviderSchedule{weekdayProvider("prov-1")}
	}
	return NewService(store, &memoryDirectory{providers: providers}, nil,
		WithClock(func() time.Time { return monday(7, 0) }))
}

func validRequest() BookingRequest {
	return BookingRequest{
		ClinicID:    "clinic-1",
		PatientID:   "patient-1",
		ProviderID:  "prov-1",
		CallID:      "call-1",
		Start:       monday(10, 0),
		ServiceType: "cleaning",
		Reason:      "routine cleaning",
	}
}

func TestBookSuccess(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	result, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotEqual(t, uuid.Nil, result.BookingID)

	booked, err := store.GetBooking(context.Background(), result.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, booked.Status)
	assert.Equal(t, 60, booked.DurationMinutes)
	assert.Equal(t, monday(10, 0), booked.StartAt)
}

func TestBookValidation(t *testing.T) {
	svc := newTestService(newMemoryStore())

	req := validRequest()
	req.PatientID = ""
	_, err := svc.Book(context.Background(), req)
	assert.Error(t, err)
}

func TestBookConflictReturnsAlternatives(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	first, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	require.False(t, second.Success)
	assert.Contains(t, second.ConflictReason, "provider has an appointment at 10:00")
	require.NotEmpty(t, second.Alternatives)
	assert.LessOrEqual(t, len(second.Alternatives), 3)
	for _, alt := range second.Alternatives {
		available, _, err := svc.IsSlotAvailable(context.Background(), "clinic-1", alt.ProviderID, alt.Start, "cleaning")
		require.NoError(t, err)
		assert.True(t, available, "alternative %s should be free", alt.Start)
	}
}

func TestBookCommitRaceSurfacesConflict(t *testing.T) {
	store := newMemoryStore()
	store.createErr = ErrOverlap
	svc := newTestService(store)

	result, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.NotEmpty(t, result.ConflictReason)
	assert.NotEmpty(t, result.Alternatives)
}

func TestBookOutsideWorkingHours(t *testing.T) {
	svc := newTestService(newMemoryStore())

	req := validRequest()
	req.Start = monday(18, 0)
	result, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, "requested time is outside working hours", result.ConflictReason)
}

func TestReschedule(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	booked, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, booked.Success)

	moved, err := svc.Reschedule(context.Background(), booked.BookingID, "prov-1", monday(14, 0))
	require.NoError(t, err)
	require.True(t, moved.Success)

	after, err := store.GetBooking(context.Background(), booked.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, after.Status)
	assert.Equal(t, monday(14, 0), after.StartAt)
}

func TestRescheduleDoesNotConflictWithItself(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	booked, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)

	// Moving by 30 minutes overlaps the booking's own old range.
	moved, err := svc.Reschedule(context.Background(), booked.BookingID, "prov-1", monday(10, 30))
	require.NoError(t, err)
	assert.True(t, moved.Success)
}

func TestRescheduleConflict(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	first, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.Start = monday(13, 0)
	second, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.Success)

	require.True(t, first.Success)
	moved, err := svc.Reschedule(context.Background(), second.BookingID, "prov-1", monday(10, 30))
	require.NoError(t, err)
	assert.False(t, moved.Success)
	assert.Contains(t, moved.ConflictReason, "provider has an appointment")
}

func TestRescheduleUnknownBooking(t *testing.T) {
	svc := newTestService(newMemoryStore())

	result, err := svc.Reschedule(context.Background(), uuid.New(), "prov-1", monday(10, 0))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Appointment not found", result.Message)
}

func TestCancelIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	booked, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)

	first, err := svc.Cancel(context.Background(), booked.BookingID, "patient request")
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := svc.Cancel(context.Background(), booked.BookingID, "patient request")
	require.NoError(t, err)
	assert.True(t, second.Success)
}

func TestCancelUnknownBooking(t *testing.T) {
	svc := newTestService(newMemoryStore())

	result, err := svc.Cancel(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestCancelledSlotBecomesBookable(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	booked, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), booked.BookingID, "")
	require.NoError(t, err)

	again, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, again.Success)
}

func TestFindAvailableSlotsUrgencyHorizon(t *testing.T) {
	svc := newTestService(newMemoryStore())

	result, err := svc.FindAvailableSlots(context.Background(), "clinic-1", Preferences{
		ServiceType: "cleaning",
		Urgency:     UrgencyEmergency,
	}, monday(7, 0), monday(7, 0).AddDate(0, 0, 14))
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)

	horizon := monday(7, 0).AddDate(0, 0, 1)
	for _, slot := range result.Slots {
		assert.False(t, slot.Start.After(horizon.AddDate(0, 0, 1)), "slot %s beyond emergency horizon", slot.Start)
	}
}

func TestFindAvailableSlotsPreferredProvider(t *testing.T) {
	providers := []ProviderSchedule{weekdayProvider("prov-1"), weekdayProvider("prov-2")}
	svc := newTestService(newMemoryStore(), providers...)

	result, err := svc.FindAvailableSlots(context.Background(), "clinic-1", Preferences{
		ServiceType:         "cleaning",
		PreferredProviderID: "prov-2",
	}, monday(7, 0), monday(7, 0).AddDate(0, 0, 7))
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)
	assert.True(t, result.PreferredProviderAvailable)
	require.NotNil(t, result.NextWithPreferred)
	assert.Equal(t, "prov-2", result.NextWithPreferred.ProviderID)
	assert.Equal(t, "prov-2", result.Slots[0].ProviderID)
	assert.LessOrEqual(t, len(result.Slots), 10)
}

func TestNextAvailableForProvider(t *testing.T) {
	svc := newTestService(newMemoryStore())

	slot, err := svc.NextAvailableForProvider(context.Background(), "clinic-1", "prov-1", "checkup")
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, "prov-1", slot.ProviderID)
	assert.Equal(t, monday(9, 0), slot.Start)
}
