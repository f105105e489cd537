package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/git-bonda108/Dentsi-sub000/internal/clinic"
	"github.com/git-bonda108/Dentsi-sub000/internal/patients"
	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
	"github.com/git-bonda108/Dentsi-sub000/internal/support"
	"github.com/git-bonda108/Dentsi-sub000/internal/triage"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// PatientDirectory is the slice of the patient repository the tools need.
type PatientDirectory interface {
	FindByPhone(ctx context.Context, clinicID, phone string) (*patients.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
	Create(ctx context.Context, p *patients.Patient) error
	UpdateInsurance(ctx context.Context, id uuid.UUID, provider, memberID string) error
}

// Scheduler is the slice of the scheduling service the tools need.
type Scheduler interface {
	FindAvailableSlots(ctx context.Context, clinicID string, prefs scheduling.Preferences, from, to time.Time) (*scheduling.SearchResult, error)
	Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.BookingResult, error)
	Reschedule(ctx context.Context, bookingID uuid.UUID, newProviderID string, newStart time.Time) (*scheduling.BookingResult, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*scheduling.BookingResult, error)
}

// Escalator raises a call to human staff.
type Escalator interface {
	Escalate(ctx context.Context, call support.CallContext, reason string, priority support.Priority) (*support.Escalation, error)
}

// Triager assesses symptoms for urgency.
type Triager interface {
	Assess(patient triage.PatientContext, symptoms string) triage.Result
}

// Toolbox executes the agent's tool calls against the domain services.
type Toolbox struct {
	patients  PatientDirectory
	bookings  patients.BookingReader
	scheduler Scheduler
	providers scheduling.ProviderDirectory
	clinics   clinic.Source
	triage    Triager
	escalator Escalator
	logger    *logging.Logger
	now       func() time.Time
}

// NewToolbox wires tool execution to the domain services.
func NewToolbox(
	patientDir PatientDirectory,
	bookings patients.BookingReader,
	scheduler Scheduler,
	providerDir scheduling.ProviderDirectory,
	clinics clinic.Source,
	triager Triager,
	escalator Escalator,
	logger *logging.Logger,
) *Toolbox {
	if logger == nil {
		logger = logging.Default()
	}
	return &Toolbox{
		patients:  patientDir,
		bookings:  bookings,
		scheduler: scheduler,
		providers: providerDir,
		clinics:   clinics,
		triage:    triager,
		escalator: escalator,
		logger:    logger.Component("tools"),
		now:       time.Now,
	}
}

// WithToolboxClock overrides wall-clock time for tests.
func (t *Toolbox) WithClock(now func() time.Time) *Toolbox {
	t.now = now
	return t
}

// Execute validates the invocation arguments against the tool schema and
// dispatches to the handler. Handler errors never propagate; they come back
// as a failed ToolResult so the model can recover in conversation.
func (t *Toolbox) Execute(ctx context.Context, session *Session, inv ToolInvocation) ToolResult {
	spec, ok := findSpec(inv.Name)
	if !ok {
		t.logger.Warn("unknown tool requested", "tool", inv.Name, "call_id", session.CallID)
		return ToolResult{Success: false, Error: "Unknown tool", Message: "Tool not found"}
	}

	args, err := decodeArgs(spec, inv.Arguments)
	if err != nil {
		return ToolResult{Success: false, Error: err.Error(), Message: "Invalid tool arguments"}
	}

	t.logger.Info("executing tool", "tool", inv.Name, "call_id", session.CallID)

	switch inv.Name {
	case "lookup_patient":
		return t.lookupPatient(ctx, session, args["phone"])
	case "create_patient":
		return t.createPatient(ctx, session, args)
	case "get_providers":
		return t.getProviders(ctx, session)
	case "get_services":
		return t.getServices()
	case "get_clinic_info":
		return t.getClinicInfo(ctx, session)
	case "check_availability":
		return t.checkAvailability(ctx, session, args)
	case "book_appointment":
		return t.bookAppointment(ctx, session, args)
	case "reschedule_appointment":
		return t.rescheduleAppointment(ctx, session, args)
	case "cancel_appointment":
		return t.cancelAppointment(ctx, session, args)
	case "get_upcoming_appointments":
		return t.getUpcomingAppointments(ctx, session, args["patient_id"])
	case "update_patient_insurance":
		return t.updateInsurance(ctx, session, args)
	case "assess_urgency":
		return t.assessUrgency(ctx, session, args["symptoms"])
	case "get_medical_alerts":
		return t.getMedicalAlerts(ctx, session, args["patient_id"])
	case "create_escalation":
		return t.createEscalation(ctx, session, args)
	case "validate_date":
		return t.validateDate(ctx, session, args["date"], args["expected_day_of_week"])
	case "parse_natural_date":
		return t.parseNaturalDate(ctx, session, args["date_text"])
	case "analyze_sentiment":
		return ToolResult{Success: true, Data: AnalyzeSentiment(args["text"])}
	}
	return ToolResult{Success: false, Error: "Unknown tool", Message: "Tool not found"}
}

func findSpec(name string) (ToolSpec, bool) {
	for _, spec := range toolCatalogue {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// decodeArgs unmarshals the raw arguments and enforces required fields and
// enum membership from the schema. Unknown keys are dropped.
func decodeArgs(spec ToolSpec, raw json.RawMessage) (map[string]string, error) {
	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
		}
	}

	args := make(map[string]string, len(decoded))
	for name := range spec.Schema.Properties {
		v, ok := decoded[name]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			args[name] = s
		case float64:
			args[name] = fmt.Sprintf("%v", s)
		case bool:
			args[name] = fmt.Sprintf("%v", s)
		default:
			return nil, fmt.Errorf("argument %q has unsupported type", name)
		}
	}

	for _, required := range spec.Schema.Required {
		if strings.TrimSpace(args[required]) == "" {
			return nil, fmt.Errorf("missing required argument %q", required)
		}
	}
	for name, prop := range spec.Schema.Properties {
		if len(prop.Enum) == 0 || args[name] == "" {
			continue
		}
		if !containsFold(prop.Enum, args[name]) {
			return nil, fmt.Errorf("argument %q must be one of %s", name, strings.Join(prop.Enum, ", "))
		}
	}
	return args, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func (t *Toolbox) lookupPatient(ctx context.Context, session *Session, phone string) ToolResult {
	p, err := t.patients.FindByPhone(ctx, session.ClinicID, phone)
	if err != nil {
		if err == patients.ErrNotFound {
			return ToolResult{
				Success: true,
				Data:    map[string]any{"found": false},
				Message: "No patient record found for that number. Offer to create one.",
			}
		}
		return t.failure("lookup_patient", err)
	}

	session.Facts.PatientID = p.ID.String()
	session.Facts.PatientName = p.Name
	if session.Phase == PhaseGreeting {
		session.Phase = PhaseCollectingInfo
	}

	data := map[string]any{
		"found":              true,
		"patient_id":         p.ID.String(),
		"name":               p.Name,
		"phone":              p.Phone,
		"insurance_on_file":  p.HasInsurance(),
		"insurance_provider": p.InsuranceProvider,
		"total_visits":       p.TotalVisits,
		"no_show_count":      p.NoShowCount,
	}
	if p.PreferredProviderID != "" {
		data["preferred_provider_id"] = p.PreferredProviderID
	}
	if p.LastVisitAt != nil {
		data["last_visit"] = p.LastVisitAt.Format("2006-01-02")
	}
	return ToolResult{Success: true, Data: data}
}

func (t *Toolbox) createPatient(ctx context.Context, session *Session, args map[string]string) ToolResult {
	p := &patients.Patient{
		ClinicID:          session.ClinicID,
		Name:              args["name"],
		Phone:             args["phone"],
		Email:             args["email"],
		InsuranceProvider: args["insurance_provider"],
		InsuranceMemberID: args["insurance_id"],
	}
	if dob := args["date_of_birth"]; dob != "" {
		parsed, err := time.Parse("2006-01-02", dob)
		if err != nil {
			return ToolResult{Success: false, Error: "invalid date_of_birth", Message: "Date of birth must be YYYY-MM-DD"}
		}
		p.DateOfBirth = &parsed
	}

	if err := t.patients.Create(ctx, p); err != nil {
		return t.failure("create_patient", err)
	}

	session.CreatedPatientID = p.ID.String()
	session.Facts.PatientName = p.Name
	if session.Phase == PhaseGreeting {
		session.Phase = PhaseCollectingInfo
	}

	return ToolResult{
		Success: true,
		Data:    map[string]any{"patient_id": p.ID.String(), "name": p.Name},
		Message: fmt.Sprintf("Patient record created for %s.", p.Name),
	}
}

func (t *Toolbox) getProviders(ctx context.Context, session *Session) ToolResult {
	schedules, err := t.providers.ListActive(ctx, session.ClinicID)
	if err != nil {
		return t.failure("get_providers", err)
	}
	list := make([]map[string]any, 0, len(schedules))
	for _, p := range schedules {
		list = append(list, map[string]any{
			"provider_id": p.ID,
			"name":        p.Name,
			"specialty":   p.Specialty,
		})
	}
	return ToolResult{Success: true, Data: map[string]any{"providers": list}}
}

func (t *Toolbox) getServices() ToolResult {
	catalogue := scheduling.ServiceCatalogue()
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make([]map[string]any, 0, len(names))
	for _, name := range names {
		services = append(services, map[string]any{
			"service":          name,
			"duration_minutes": catalogue[name],
		})
	}
	return ToolResult{Success: true, Data: map[string]any{"services": services}}
}

func (t *Toolbox) getClinicInfo(ctx context.Context, session *Session) ToolResult {
	c, err := t.clinics.Get(ctx, session.ClinicID)
	if err != nil {
		return t.failure("get_clinic_info", err)
	}
	info := c.Info()
	info["currently_open"] = c.IsOpenAt(t.now())
	return ToolResult{Success: true, Data: info}
}

func (t *Toolbox) checkAvailability(ctx context.Context, session *Session, args map[string]string) ToolResult {
	c, err := t.clinics.Get(ctx, session.ClinicID)
	if err != nil {
		return t.failure("check_availability", err)
	}
	loc := c.Location()
	now := t.now().In(loc)

	prefs := scheduling.Preferences{
		ServiceType:         args["service_type"],
		PreferredProviderID: args["preferred_provider_id"],
		Urgency:             scheduling.Urgency(args["urgency"]),
	}
	if prefs.PreferredProviderID == "" && session.Facts.ChosenProviderID != "" {
		prefs.PreferredProviderID = session.Facts.ChosenProviderID
	}
	if prefs.Urgency == "" {
		if session.Facts.Urgency != "" {
			prefs.Urgency = scheduling.Urgency(session.Facts.Urgency)
		} else {
			prefs.Urgency = scheduling.UrgencyRoutine
		}
	}
	if tod := args["preferred_time"]; tod != "" {
		prefs.PreferredTimeOfDay = scheduling.TimeOfDay(strings.ToLower(tod))
	}

	from := now
	to := now.AddDate(0, 0, 14)
	if dateStr := args["preferred_date"]; dateStr != "" {
		day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			return ToolResult{Success: false, Error: "invalid preferred_date", Message: "Preferred date must be YYYY-MM-DD"}
		}
		if day.After(now) {
			from = day
		}
		to = from.AddDate(0, 0, 7)
	}

	result, err := t.scheduler.FindAvailableSlots(ctx, session.ClinicID, prefs, from, to)
	if err != nil {
		return t.failure("check_availability", err)
	}

	session.Facts.ServiceType = args["service_type"]
	// Once slots are on the table the agent is proposing times and waiting
	// for the caller to pick one.
	if result.TotalFound > 0 {
		session.Phase = PhaseConfirming
	} else {
		session.Phase = PhaseCheckingAvailability
	}

	slots := make([]map[string]any, 0, len(result.Slots))
	for _, s := range result.Slots {
		slots = append(slots, slotPayload(s, loc))
	}
	data := map[string]any{
		"slots":                        slots,
		"total_found":                  result.TotalFound,
		"preferred_provider_available": result.PreferredProviderAvailable,
	}
	if result.NextWithPreferred != nil {
		data["next_with_preferred"] = slotPayload(*result.NextWithPreferred, loc)
	}
	if result.FirstAvailable != nil {
		data["first_available"] = slotPayload(*result.FirstAvailable, loc)
	}
	return ToolResult{Success: true, Data: data, Message: result.Message}
}

func slotPayload(s scheduling.Slot, loc *time.Location) map[string]any {
	start := s.Start.In(loc)
	return map[string]any{
		"provider_id":      s.ProviderID,
		"provider_name":    s.ProviderName,
		"start":            start.Format(time.RFC3339),
		"spoken":           start.Format("Monday, January 2 at 3:04 PM"),
		"duration_minutes": s.DurationMinutes,
	}
}

func (t *Toolbox) bookAppointment(ctx context.Context, session *Session, args map[string]string) ToolResult {
	patientID := args["patient_id"]
	if patientID == "" {
		patientID = session.PatientID()
	}
	if patientID == "" {
		return ToolResult{
			Success: false,
			Error:   "no patient on file",
			Message: "Look up or create the patient before booking.",
		}
	}

	c, err := t.clinics.Get(ctx, session.ClinicID)
	if err != nil {
		return t.failure("book_appointment", err)
	}
	start, err := parseDateTime(args["date_time"], c.Location())
	if err != nil {
		return ToolResult{Success: false, Error: err.Error(), Message: "Appointment time must be an ISO date-time"}
	}

	result, err := t.scheduler.Book(ctx, scheduling.BookingRequest{
		ClinicID:    session.ClinicID,
		PatientID:   patientID,
		ProviderID:  args["provider_id"],
		CallID:      session.CallID,
		Start:       start,
		ServiceType: args["service_type"],
		Reason:      args["reason"],
	})
	if err != nil {
		return t.failure("book_appointment", err)
	}

	if !result.Success {
		data := map[string]any{"conflict_reason": result.ConflictReason}
		if len(result.Alternatives) > 0 {
			alts := make([]map[string]any, 0, len(result.Alternatives))
			for _, s := range result.Alternatives {
				alts = append(alts, slotPayload(s, c.Location()))
			}
			data["alternatives"] = alts
		}
		return ToolResult{Success: false, Data: data, Message: result.Message}
	}

	session.Facts.PatientID = patientID
	session.Facts.ServiceType = args["service_type"]
	session.Facts.ChosenProviderID = args["provider_id"]
	session.Facts.ChosenStart = &start
	session.Facts.BookingID = result.BookingID.String()
	session.Phase = PhaseBooked
	session.Intent = "booking"

	return ToolResult{
		Success: true,
		Data: map[string]any{
			"appointment_id": result.BookingID.String(),
			"start":          start.Format(time.RFC3339),
		},
		Message: result.Message,
	}
}

func (t *Toolbox) rescheduleAppointment(ctx context.Context, session *Session, args map[string]string) ToolResult {
	id, err := uuid.Parse(args["appointment_id"])
	if err != nil {
		return ToolResult{Success: false, Error: "invalid appointment_id", Message: "Appointment ID is not valid"}
	}
	c, err := t.clinics.Get(ctx, session.ClinicID)
	if err != nil {
		return t.failure("reschedule_appointment", err)
	}
	start, err := parseDateTime(args["new_date_time"], c.Location())
	if err != nil {
		return ToolResult{Success: false, Error: err.Error(), Message: "New appointment time must be an ISO date-time"}
	}

	result, err := t.scheduler.Reschedule(ctx, id, args["new_provider_id"], start)
	if err != nil {
		return t.failure("reschedule_appointment", err)
	}
	if !result.Success {
		return ToolResult{Success: false, Data: map[string]any{"conflict_reason": result.ConflictReason}, Message: result.Message}
	}

	session.Intent = "reschedule"
	return ToolResult{
		Success: true,
		Data:    map[string]any{"appointment_id": result.BookingID.String(), "start": start.Format(time.RFC3339)},
		Message: result.Message,
	}
}

func (t *Toolbox) cancelAppointment(ctx context.Context, session *Session, args map[string]string) ToolResult {
	id, err := uuid.Parse(args["appointment_id"])
	if err != nil {
		return ToolResult{Success: false, Error: "invalid appointment_id", Message: "Appointment ID is not valid"}
	}
	result, err := t.scheduler.Cancel(ctx, id, args["reason"])
	if err != nil {
		return t.failure("cancel_appointment", err)
	}
	if result.Success {
		session.Intent = "cancel"
	}
	return ToolResult{Success: result.Success, Message: result.Message}
}

func (t *Toolbox) getUpcomingAppointments(ctx context.Context, session *Session, patientID string) ToolResult {
	if patientID == "" {
		patientID = session.PatientID()
	}
	if patientID == "" {
		return ToolResult{Success: false, Error: "no patient on file", Message: "Look up the patient first."}
	}

	bookings, err := t.bookings.ListPatientBookings(ctx, patientID, t.now())
	if err != nil {
		return t.failure("get_upcoming_appointments", err)
	}

	c, err := t.clinics.Get(ctx, session.ClinicID)
	if err != nil {
		return t.failure("get_upcoming_appointments", err)
	}
	loc := c.Location()

	list := make([]map[string]any, 0, len(bookings))
	for _, b := range bookings {
		if !b.Active() {
			continue
		}
		list = append(list, map[string]any{
			"appointment_id": b.ID.String(),
			"provider_id":    b.ProviderID,
			"service":        b.ServiceType,
			"start":          b.StartAt.In(loc).Format(time.RFC3339),
			"spoken":         b.StartAt.In(loc).Format("Monday, January 2 at 3:04 PM"),
			"status":         string(b.Status),
		})
	}
	return ToolResult{Success: true, Data: map[string]any{"appointments": list}}
}

func (t *Toolbox) updateInsurance(ctx context.Context, session *Session, args map[string]string) ToolResult {
	patientID := args["patient_id"]
	if patientID == "" {
		patientID = session.PatientID()
	}
	id, err := uuid.Parse(patientID)
	if err != nil {
		return ToolResult{Success: false, Error: "invalid patient_id", Message: "Patient ID is not valid"}
	}

	if err := t.patients.UpdateInsurance(ctx, id, args["insurance_provider"], args["insurance_id"]); err != nil {
		return t.failure("update_patient_insurance", err)
	}

	session.Facts.InsuranceProvider = args["insurance_provider"]
	session.Facts.InsuranceMemberID = args["insurance_id"]
	return ToolResult{
		Success: true,
		Message: fmt.Sprintf("Insurance updated: %s.", args["insurance_provider"]),
	}
}

func (t *Toolbox) assessUrgency(ctx context.Context, session *Session, symptoms string) ToolResult {
	pctx := t.patientContext(ctx, session)
	result := t.triage.Assess(pctx, symptoms)

	session.Facts.Symptoms = symptoms
	session.Facts.Urgency = string(result.Urgency)
	if result.ShouldEscalate {
		session.EscalationReason = result.EscalationReason
	}

	return ToolResult{
		Success: true,
		Data: map[string]any{
			"urgency":           string(result.Urgency),
			"score":             result.Score,
			"reasons":           result.Reasons,
			"recommendations":   result.Recommendations,
			"estimated_wait":    result.EstimatedWait,
			"should_escalate":   result.ShouldEscalate,
			"escalation_reason": result.EscalationReason,
		},
		Message: triage.PromptContext(result),
	}
}

func (t *Toolbox) getMedicalAlerts(ctx context.Context, session *Session, patientID string) ToolResult {
	if patientID == "" {
		patientID = session.PatientID()
	}
	id, err := uuid.Parse(patientID)
	if err != nil {
		return ToolResult{Success: false, Error: "invalid patient_id", Message: "Patient ID is not valid"}
	}
	p, err := t.patients.Get(ctx, id)
	if err != nil {
		return t.failure("get_medical_alerts", err)
	}

	alerts := triage.MedicalAlerts(triage.PatientContext{
		PatientName: p.Name,
		Allergies:   p.Allergies,
		Medications: p.Medications,
		Conditions:  p.Conditions,
		StaffNotes:  p.StaffNotes,
		NoShowCount: p.NoShowCount,
	})
	return ToolResult{Success: true, Data: map[string]any{"alerts": alerts}}
}

func (t *Toolbox) createEscalation(ctx context.Context, session *Session, args map[string]string) ToolResult {
	escalation, err := t.escalator.Escalate(ctx, support.CallContext{
		CallID:   session.CallID,
		ClinicID: session.ClinicID,
		Intent:   session.Intent,
	}, args["reason"], support.Priority(strings.ToLower(args["priority"])))
	if err != nil {
		return t.failure("create_escalation", err)
	}

	session.Phase = PhaseEscalated
	session.Escalated = true
	session.EscalationReason = args["reason"]

	return ToolResult{
		Success: true,
		Data:    map[string]any{"escalation_id": escalation.ID.String()},
		Message: "Escalation created. A staff member has been notified.",
	}
}

func (t *Toolbox) validateDate(ctx context.Context, session *Session, date, expectedDay string) ToolResult {
	loc := t.clinicLocation(ctx, session)
	check, err := ValidateDate(date, expectedDay, loc)
	if err != nil {
		return ToolResult{Success: false, Error: "Invalid date format", Message: err.Error()}
	}
	return ToolResult{Success: true, Data: check, Message: check.Message}
}

func (t *Toolbox) parseNaturalDate(ctx context.Context, session *Session, text string) ToolResult {
	loc := t.clinicLocation(ctx, session)
	parsed, err := ParseNaturalDate(text, t.now(), loc)
	if err != nil {
		return ToolResult{Success: false, Error: "Could not parse date", Message: err.Error()}
	}
	return ToolResult{Success: true, Data: parsed}
}

func (t *Toolbox) patientContext(ctx context.Context, session *Session) triage.PatientContext {
	id, err := uuid.Parse(session.PatientID())
	if err != nil {
		return triage.PatientContext{}
	}
	p, err := t.patients.Get(ctx, id)
	if err != nil {
		return triage.PatientContext{}
	}
	return triage.PatientContext{
		PatientName: p.Name,
		Allergies:   p.Allergies,
		Medications: p.Medications,
		Conditions:  p.Conditions,
		StaffNotes:  p.StaffNotes,
		NoShowCount: p.NoShowCount,
	}
}

func (t *Toolbox) clinicLocation(ctx context.Context, session *Session) *time.Location {
	c, err := t.clinics.Get(ctx, session.ClinicID)
	if err != nil {
		return time.UTC
	}
	return c.Location()
}

func (t *Toolbox) failure(tool string, err error) ToolResult {
	t.logger.Error("tool execution failed", "tool", tool, "error", err)
	return ToolResult{
		Success: false,
		Error:   err.Error(),
		Message: "Something went wrong on our side. Apologize briefly and offer to connect staff if it persists.",
	}
}

func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", value)
}
