package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/git-bonda108/Dentsi-sub000/internal/observability/metrics"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

var schedulingTracer = otel.Tracer("dentsi/scheduling")

// conflictWindow bounds the booking fetch around a requested start; no
// service runs longer than two hours.
const conflictWindow = 4 * time.Hour

// maxReturnedSlots caps how many ranked slots a search returns.
const maxReturnedSlots = 10

// maxAlternatives caps the substitute slots attached to a conflict result.
const maxAlternatives = 3

// ProviderDirectory resolves providers and their parsed weekly availability.
type ProviderDirectory interface {
	ListActive(ctx context.Context, clinicID string) ([]ProviderSchedule, error)
	Get(ctx context.Context, clinicID, providerID string) (*ProviderSchedule, error)
}

// ServiceOption configures the scheduling service.
type ServiceOption func(*Service)

// WithMetrics attaches booking metrics.
func WithMetrics(m *metrics.BookingMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// Service is the scheduling engine entry point: ranked availability search
// plus conflict-checked booking, reschedule, and cancel.
type Service struct {
	store     Store
	providers ProviderDirectory
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	now       func() time.Time
}

// NewService wires the scheduling engine.
func NewService(store Store, providers ProviderDirectory, logger *logging.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic("scheduling: store required")
	}
	if providers == nil {
		panic("scheduling: provider directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:     store,
		providers: providers,
		logger:    logger.Component("scheduling"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindAvailableSlots generates and ranks candidate slots for the clinic in
// [from, to], capped by the urgency horizon. The result is a best-effort
// snapshot; Book re-validates at commit time.
func (s *Service) FindAvailableSlots(ctx context.Context, clinicID string, prefs Preferences, from, to time.Time) (*SearchResult, error) {
	started := s.now()
	if from.IsZero() {
		from = started
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, DefaultSearchDays)
	}
	to = HorizonEnd(from, to, prefs.Urgency)

	providers, err := s.providers.ListActive(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list providers: %w", err)
	}
	if len(providers) == 0 {
		return &SearchResult{Message: "No providers available"}, nil
	}

	duration := ServiceDuration(prefs.ServiceType)
	existing, err := s.store.ListBookings(ctx, clinicID, from.Add(-conflictWindow), to.Add(conflictWindow))
	if err != nil {
		return nil, err
	}

	var all []Slot
	for _, provider := range providers {
		all = append(all, GenerateSlots(provider, from, to, duration, existing, started)...)
	}
	ranked := RankSlots(all, prefs, started)

	result := &SearchResult{
		TotalFound:                 len(ranked),
		PreferredProviderAvailable: prefs.PreferredProviderID == "",
	}
	for i := range ranked {
		if prefs.PreferredProviderID != "" && ranked[i].ProviderID == prefs.PreferredProviderID {
			result.PreferredProviderAvailable = true
			if result.NextWithPreferred == nil {
				slot := ranked[i]
				result.NextWithPreferred = &slot
			}
		}
	}
	if len(ranked) > 0 {
		first := ranked[0]
		result.FirstAvailable = &first
	}
	if len(ranked) > maxReturnedSlots {
		ranked = ranked[:maxReturnedSlots]
	}
	result.Slots = ranked

	urgency := string(prefs.Urgency)
	if urgency == "" {
		urgency = string(UrgencyRoutine)
	}
	s.metrics.ObserveSearchLatency(urgency, s.now().Sub(started).Seconds())
	return result, nil
}

// Book performs the conflict check and the persistence write; the store's
// exclusion constraint makes the pair atomic with respect to concurrent
// attempts for the same provider. On conflict it returns up to three ranked
// alternatives near the requested provider and time.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.Book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic_id", req.ClinicID),
		attribute.String("provider_id", req.ProviderID),
		attribute.String("service_type", req.ServiceType),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = ServiceDuration(req.ServiceType)
	}

	conflict, err := s.checkConflict(ctx, req.ClinicID, req.ProviderID, req.Start, duration, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.metrics.ObserveConflict("precheck")
		s.metrics.ObserveAttempt("book", "conflict")
		return s.conflictResult(ctx, req, conflict.Reason)
	}

	booking := &Booking{
		ID:              uuid.New(),
		ClinicID:        req.ClinicID,
		PatientID:       req.PatientID,
		ProviderID:      req.ProviderID,
		CallID:          req.CallID,
		StartAt:         req.Start,
		DurationMinutes: duration,
		ServiceType:     req.ServiceType,
		Reason:          req.Reason,
		Notes:           "Booked via Dentsi AI",
		Status:          StatusScheduled,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, ErrOverlap) {
			// Lost a commit-time race; the constraint is the authority.
			s.metrics.ObserveConflict("commit")
			s.metrics.ObserveAttempt("book", "conflict")
			return s.conflictResult(ctx, req, fmt.Sprintf("provider has an appointment at %s", req.Start.Format("15:04")))
		}
		s.metrics.ObserveAttempt("book", "error")
		return nil, err
	}

	s.metrics.ObserveAttempt("book", "success")
	s.logger.Info("appointment booked",
		"booking_id", booking.ID,
		"provider_id", booking.ProviderID,
		"start_at", booking.StartAt,
		"service_type", booking.ServiceType,
	)
	return &BookingResult{
		Success:   true,
		BookingID: booking.ID,
		Message: fmt.Sprintf("Appointment confirmed for %s at %s",
			req.Start.Format("Monday, January 2"), req.Start.Format("15:04")),
	}, nil
}

// Reschedule validates the new slot as a fresh booking, then moves the record
// in one atomic write so the old range frees exactly when the new one is
// occupied.
func (s *Service) Reschedule(ctx context.Context, bookingID uuid.UUID, newProviderID string, newStart time.Time) (*BookingResult, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.Reschedule")
	defer span.End()

	existing, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return &BookingResult{Success: false, Message: "Appointment not found"}, nil
		}
		return nil, err
	}

	conflict, err := s.checkConflict(ctx, existing.ClinicID, newProviderID, newStart, existing.DurationMinutes, bookingID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		s.metrics.ObserveAttempt("reschedule", "conflict")
		return &BookingResult{
			Success:        false,
			BookingID:      bookingID,
			ConflictReason: conflict.Reason,
			Message:        fmt.Sprintf("The new slot is not available. %s", conflict.Reason),
		}, nil
	}

	notes := fmt.Sprintf("Rescheduled from %s", existing.StartAt.Format("2006-01-02 15:04"))
	if err := s.store.UpdateBookingSlot(ctx, bookingID, newProviderID, newStart, notes); err != nil {
		if errors.Is(err, ErrOverlap) {
			s.metrics.ObserveConflict("commit")
			s.metrics.ObserveAttempt("reschedule", "conflict")
			return &BookingResult{
				Success:        false,
				BookingID:      bookingID,
				ConflictReason: "the new time was just taken",
				Message:        "The new slot is not available.",
			}, nil
		}
		s.metrics.ObserveAttempt("reschedule", "error")
		return nil, err
	}

	s.metrics.ObserveAttempt("reschedule", "success")
	s.logger.Info("appointment rescheduled",
		"booking_id", bookingID, "provider_id", newProviderID, "start_at", newStart)
	return &BookingResult{
		Success:   true,
		BookingID: bookingID,
		Message: fmt.Sprintf("Appointment rescheduled to %s at %s",
			newStart.Format("Monday, January 2"), newStart.Format("15:04")),
	}, nil
}

// Cancel soft-cancels a booking; repeating the cancel succeeds quietly.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*BookingResult, error) {
	if err := s.store.CancelBooking(ctx, bookingID, reason); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return &BookingResult{Success: false, Message: "Appointment not found"}, nil
		}
		s.metrics.ObserveAttempt("cancel", "error")
		return nil, err
	}
	s.metrics.ObserveAttempt("cancel", "success")
	return &BookingResult{Success: true, BookingID: bookingID, Message: "Appointment cancelled successfully"}, nil
}

// IsSlotAvailable answers a point query for one (provider, start, service).
func (s *Service) IsSlotAvailable(ctx context.Context, clinicID, providerID string, start time.Time, serviceType string) (bool, string, error) {
	conflict, err := s.checkConflict(ctx, clinicID, providerID, start, ServiceDuration(serviceType), uuid.Nil)
	if err != nil {
		return false, "", err
	}
	if conflict != nil {
		return false, conflict.Reason, nil
	}
	return true, "", nil
}

// NextAvailableForProvider returns the soonest ranked slot for one provider.
func (s *Service) NextAvailableForProvider(ctx context.Context, clinicID, providerID, serviceType string) (*Slot, error) {
	result, err := s.FindAvailableSlots(ctx, clinicID, Preferences{
		PreferredProviderID: providerID,
		PreferredTimeOfDay:  TimeAny,
		ServiceType:         serviceType,
	}, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if result.NextWithPreferred != nil {
		return result.NextWithPreferred, nil
	}
	return result.FirstAvailable, nil
}

// checkConflict loads the provider's schedule plus nearby bookings and runs
// the pure detector. excludeID skips the booking being rescheduled.
func (s *Service) checkConflict(ctx context.Context, clinicID, providerID string, start time.Time, durationMinutes int, excludeID uuid.UUID) (*Conflict, error) {
	provider, err := s.providers.Get(ctx, clinicID, providerID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: resolve provider: %w", err)
	}

	bookings, err := s.store.ListProviderBookings(ctx, clinicID, providerID, start.Add(-conflictWindow), start.Add(conflictWindow))
	if err != nil {
		return nil, err
	}
	if excludeID != uuid.Nil {
		filtered := bookings[:0]
		for _, b := range bookings {
			if b.ID != excludeID {
				filtered = append(filtered, b)
			}
		}
		bookings = filtered
	}
	return CheckConflict(start, durationMinutes, provider.Availability, bookings), nil
}

// conflictResult assembles the conflict response with nearby alternatives so
// the caller-facing layer can offer a substitute without a second round-trip.
func (s *Service) conflictResult(ctx context.Context, req BookingRequest, reason string) (*BookingResult, error) {
	search, err := s.FindAvailableSlots(ctx, req.ClinicID, Preferences{
		PreferredProviderID: req.ProviderID,
		PreferredTimeOfDay:  TimeAny,
		ServiceType:         req.ServiceType,
	}, s.now(), s.now().AddDate(0, 0, 7))
	if err != nil {
		s.logger.Warn("failed to load alternative slots", "error", err)
		search = &SearchResult{}
	}
	alternatives := search.Slots
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}
	return &BookingResult{
		Success:        false,
		ConflictReason: reason,
		Alternatives:   alternatives,
		Message:        fmt.Sprintf("That slot is no longer available. %s", reason),
	}, nil
}
