package conversation

// toolCatalogue declares every tool the agent can call. Parameter types are
// all strings; dates and times travel as ISO text and are parsed by the
// handlers.
var toolCatalogue = []ToolSpec{
	{
		Name:        "lookup_patient",
		Description: "Look up a patient by their phone number to get their history and preferences",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"phone": {Type: "string", Description: "Patient phone number"},
			},
			Required: []string{"phone"},
		},
	},
	{
		Name:        "create_patient",
		Description: "Create a new patient record",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"name":               {Type: "string", Description: "Patient full name"},
				"phone":              {Type: "string", Description: "Patient phone number"},
				"email":              {Type: "string", Description: "Patient email (optional)"},
				"date_of_birth":      {Type: "string", Description: "Date of birth YYYY-MM-DD (optional)"},
				"insurance_provider": {Type: "string", Description: "Insurance company name (optional)"},
				"insurance_id":       {Type: "string", Description: "Insurance member/policy ID (optional)"},
			},
			Required: []string{"name", "phone"},
		},
	},
	{
		Name:        "get_providers",
		Description: "Get list of available doctors at the clinic",
		Schema: ToolSchema{
			Type:       "object",
			Properties: map[string]ToolProperty{},
			Required:   []string{},
		},
	},
	{
		Name:        "get_services",
		Description: "Get list of dental services offered with typical appointment lengths",
		Schema: ToolSchema{
			Type:       "object",
			Properties: map[string]ToolProperty{},
			Required:   []string{},
		},
	},
	{
		Name:        "get_clinic_info",
		Description: "Get clinic information like hours, address, parking, and accepted insurance",
		Schema: ToolSchema{
			Type:       "object",
			Properties: map[string]ToolProperty{},
			Required:   []string{},
		},
	},
	{
		Name:        "check_availability",
		Description: "Check available appointment slots",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"service_type": {
					Type:        "string",
					Description: "Type of service (cleaning, checkup, filling, crown, root canal, extraction, emergency)",
				},
				"preferred_date": {Type: "string", Description: "Preferred date YYYY-MM-DD (optional)"},
				"preferred_time": {
					Type:        "string",
					Enum:        []string{"morning", "afternoon", "evening"},
					Description: "Preferred time of day (optional)",
				},
				"preferred_provider_id": {Type: "string", Description: "Preferred doctor ID (optional)"},
				"urgency": {
					Type:        "string",
					Enum:        []string{"routine", "soon", "urgent", "emergency"},
					Description: "Urgency from assess_urgency (optional)",
				},
			},
			Required: []string{"service_type"},
		},
	},
	{
		Name:        "book_appointment",
		Description: "Book an appointment for the patient",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"patient_id":   {Type: "string", Description: "Patient ID"},
				"provider_id":  {Type: "string", Description: "Doctor ID"},
				"date_time":    {Type: "string", Description: "Appointment date and time ISO format"},
				"service_type": {Type: "string", Description: "Type of service"},
				"reason":       {Type: "string", Description: "Reason for visit (optional)"},
			},
			Required: []string{"provider_id", "date_time", "service_type"},
		},
	},
	{
		Name:        "reschedule_appointment",
		Description: "Reschedule an existing appointment to a new date/time",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"appointment_id":  {Type: "string", Description: "Current appointment ID"},
				"new_provider_id": {Type: "string", Description: "Doctor ID for the new appointment"},
				"new_date_time":   {Type: "string", Description: "New appointment date/time in ISO format"},
			},
			Required: []string{"appointment_id", "new_provider_id", "new_date_time"},
		},
	},
	{
		Name:        "cancel_appointment",
		Description: "Cancel an existing appointment",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"appointment_id": {Type: "string", Description: "Appointment ID to cancel"},
				"reason":         {Type: "string", Description: "Reason for cancellation (optional)"},
			},
			Required: []string{"appointment_id"},
		},
	},
	{
		Name:        "get_upcoming_appointments",
		Description: "Get patient upcoming appointments",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"patient_id": {Type: "string", Description: "Patient ID"},
			},
			Required: []string{},
		},
	},
	{
		Name:        "update_patient_insurance",
		Description: "Update patient insurance information",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"patient_id":         {Type: "string", Description: "Patient ID"},
				"insurance_provider": {Type: "string", Description: "Insurance company name"},
				"insurance_id":       {Type: "string", Description: "Member/Policy ID"},
			},
			Required: []string{"insurance_provider", "insurance_id"},
		},
	},
	{
		Name:        "assess_urgency",
		Description: "Assess patient symptoms for urgency level (emergency, urgent, soon, routine). Use when patient describes pain or dental issues.",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"symptoms": {Type: "string", Description: "Description of patient symptoms or concerns"},
			},
			Required: []string{"symptoms"},
		},
	},
	{
		Name:        "get_medical_alerts",
		Description: "Get patient medical alerts including allergies, medications, and conditions",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"patient_id": {Type: "string", Description: "Patient ID"},
			},
			Required: []string{},
		},
	},
	{
		Name:        "create_escalation",
		Description: "Escalate to human staff when needed",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"reason": {Type: "string", Description: "Reason for escalation"},
				"priority": {
					Type:        "string",
					Enum:        []string{"low", "medium", "high", "urgent"},
					Description: "Priority level",
				},
			},
			Required: []string{"reason", "priority"},
		},
	},
	{
		Name:        "validate_date",
		Description: "Validate that a date matches the specified day of week. Use this BEFORE booking when patient mentions both a day and date.",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"date":                 {Type: "string", Description: "Date to validate in YYYY-MM-DD format"},
				"expected_day_of_week": {Type: "string", Description: "Expected day of week (Monday, Tuesday, etc.)"},
			},
			Required: []string{"date", "expected_day_of_week"},
		},
	},
	{
		Name:        "parse_natural_date",
		Description: `Parse natural language date references like "next Tuesday", "January 26th", "this Friday" into actual dates`,
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"date_text": {Type: "string", Description: "Natural language date text"},
			},
			Required: []string{"date_text"},
		},
	},
	{
		Name:        "analyze_sentiment",
		Description: "Analyze patient sentiment and speech clarity to adjust conversation tone",
		Schema: ToolSchema{
			Type: "object",
			Properties: map[string]ToolProperty{
				"text": {Type: "string", Description: "Patient speech text to analyze"},
			},
			Required: []string{"text"},
		},
	},
}

// ToolCatalogue returns the tool specs handed to the model each turn.
func ToolCatalogue() []ToolSpec {
	out := make([]ToolSpec, len(toolCatalogue))
	copy(out, toolCatalogue)
	return out
}
