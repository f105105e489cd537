// Package triage classifies patient-reported symptoms into urgency levels,
// surfaces medical alerts from the patient record, and decides when a call
// must be handed to a human.
package triage

import (
	"fmt"
	"strings"

	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// AlertType categorizes a medical alert.
type AlertType string

const (
	AlertAllergy    AlertType = "allergy"
	AlertMedication AlertType = "medication"
	AlertCondition  AlertType = "condition"
	AlertNote       AlertType = "note"
)

// Severity orders alerts for staff attention.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one patient-safety flag for the treating staff.
type Alert struct {
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Details  string    `json:"details,omitempty"`
}

// PatientContext is the slice of the patient record triage inspects.
type PatientContext struct {
	PatientName string
	Allergies   []string
	Medications []string
	Conditions  []string
	StaffNotes  string
	NoShowCount int
}

// Result is a full triage assessment for one set of symptoms.
type Result struct {
	Urgency          scheduling.Urgency `json:"urgency"`
	Score            int                `json:"score"`
	Reasons          []string           `json:"reasons"`
	Recommendations  []string           `json:"recommendations"`
	Alerts           []Alert            `json:"alerts"`
	EstimatedWait    string             `json:"estimated_wait"`
	ShouldEscalate   bool               `json:"should_escalate"`
	EscalationReason string             `json:"escalation_reason,omitempty"`
}

type symptomPattern struct {
	keywords       []string
	urgency        scheduling.Urgency
	score          int
	recommendation string
}

var symptomPatterns = []symptomPattern{
	{
		keywords:       []string{"severe pain", "unbearable pain", "extreme pain", "worst pain"},
		urgency:        scheduling.UrgencyEmergency,
		score:          10,
		recommendation: "Schedule emergency appointment immediately",
	},
	{
		keywords:       []string{"knocked out tooth", "tooth fell out", "avulsed tooth", "lost tooth accident"},
		urgency:        scheduling.UrgencyEmergency,
		score:          10,
		recommendation: "Emergency - tooth may be saved if treated within 30 minutes",
	},
	{
		keywords:       []string{"heavy bleeding", "won't stop bleeding", "bleeding a lot", "uncontrolled bleeding"},
		urgency:        scheduling.UrgencyEmergency,
		score:          10,
		recommendation: "Emergency - control bleeding and see dentist immediately",
	},
	{
		keywords:       []string{"swelling spreading", "face swelling", "throat swelling", "difficulty breathing"},
		urgency:        scheduling.UrgencyEmergency,
		score:          10,
		recommendation: "Emergency - possible infection spreading, needs immediate care",
	},
	{
		keywords:       []string{"jaw broken", "fractured jaw", "jaw injury", "can't open mouth"},
		urgency:        scheduling.UrgencyEmergency,
		score:          10,
		recommendation: "Emergency - possible jaw fracture, needs immediate evaluation",
	},
	{
		keywords:       []string{"broken tooth", "cracked tooth", "chipped tooth", "tooth broke"},
		urgency:        scheduling.UrgencyUrgent,
		score:          8,
		recommendation: "Schedule within 24 hours to prevent further damage",
	},
	{
		keywords:       []string{"abscess", "pus", "infection", "swollen gum"},
		urgency:        scheduling.UrgencyUrgent,
		score:          9,
		recommendation: "Urgent - infection may spread, needs antibiotics and treatment",
	},
	{
		keywords:       []string{"crown fell off", "filling fell out", "lost crown", "lost filling"},
		urgency:        scheduling.UrgencyUrgent,
		score:          7,
		recommendation: "Schedule within 24-48 hours to protect exposed tooth",
	},
	{
		keywords:       []string{"constant pain", "throbbing pain", "pain keeping me up", "can't sleep"},
		urgency:        scheduling.UrgencyUrgent,
		score:          8,
		recommendation: "Schedule same day if possible for pain relief",
	},
	{
		keywords:       []string{"fever", "feel sick", "swollen lymph nodes"},
		urgency:        scheduling.UrgencyUrgent,
		score:          9,
		recommendation: "Urgent - signs of spreading infection",
	},
	{
		keywords:       []string{"sensitivity", "sensitive to cold", "sensitive to hot", "sensitive when eating"},
		urgency:        scheduling.UrgencySoon,
		score:          5,
		recommendation: "Schedule within a week to evaluate cause",
	},
	{
		keywords:       []string{"mild pain", "slight pain", "occasional pain", "sometimes hurts"},
		urgency:        scheduling.UrgencySoon,
		score:          5,
		recommendation: "Schedule within a week for evaluation",
	},
	{
		keywords:       []string{"bleeding gums", "gums bleed when brushing"},
		urgency:        scheduling.UrgencySoon,
		score:          4,
		recommendation: "Schedule cleaning and gum evaluation within 1-2 weeks",
	},
	{
		keywords:       []string{"bad breath", "taste in mouth", "dry mouth"},
		urgency:        scheduling.UrgencySoon,
		score:          4,
		recommendation: "Schedule evaluation within 1-2 weeks",
	},
	{
		keywords:       []string{"cleaning", "checkup", "regular visit", "routine"},
		urgency:        scheduling.UrgencyRoutine,
		score:          2,
		recommendation: "Schedule at patient convenience",
	},
	{
		keywords:       []string{"whitening", "cosmetic", "straighten", "braces"},
		urgency:        scheduling.UrgencyRoutine,
		score:          1,
		recommendation: "Schedule consultation at convenience",
	},
}

var significantMedications = []struct{ name, alert string }{
	{"warfarin", "Blood thinner - bleeding risk during procedures"},
	{"coumadin", "Blood thinner - bleeding risk during procedures"},
	{"aspirin", "May increase bleeding during procedures"},
	{"plavix", "Blood thinner - bleeding risk"},
	{"xarelto", "Blood thinner - bleeding risk"},
	{"eliquis", "Blood thinner - bleeding risk"},
	{"bisphosphonates", "Risk of jaw necrosis with extractions"},
	{"fosamax", "Risk of jaw necrosis with extractions"},
	{"prednisone", "Steroid - may affect healing"},
	{"metformin", "Diabetic - monitor blood sugar"},
	{"insulin", "Diabetic - monitor blood sugar, schedule morning appointments"},
}

var significantConditions = []struct{ name, alert string }{
	{"diabetes", "Increased infection risk, slower healing"},
	{"heart disease", "May need antibiotic prophylaxis"},
	{"heart valve", "Requires antibiotic prophylaxis before procedures"},
	{"pacemaker", "Avoid certain equipment"},
	{"joint replacement", "May need antibiotic prophylaxis"},
	{"hip replacement", "May need antibiotic prophylaxis"},
	{"knee replacement", "May need antibiotic prophylaxis"},
	{"immunocompromised", "Increased infection risk"},
	{"hiv", "Increased infection risk, special precautions"},
	{"hepatitis", "Special infection control precautions"},
	{"pregnant", "Avoid X-rays, limit medications, prefer 2nd trimester"},
	{"epilepsy", "Seizure precautions"},
	{"anxiety", "May need sedation options discussed"},
}

// Conditions where any match is critical rather than warning.
var criticalConditions = []string{"heart valve", "immunocompromised", "pregnant"}

var emergencyPhrases = []string{
	"severe pain", "unbearable", "extreme pain",
	"knocked out", "tooth fell out", "avulsed",
	"heavy bleeding", "won't stop bleeding",
	"swelling spreading", "face swelling", "throat swelling",
	"difficulty breathing", "can't breathe",
	"jaw broken", "fractured jaw",
}

var escalationKeywords = []string{
	"suicide", "suicidal", "kill myself",
	"chest pain", "heart attack",
	"stroke", "numbness face",
	"allergic reaction", "anaphylaxis",
	"overdose",
}

var humanRequestPhrases = []string{
	"speak to someone", "talk to a person", "real person",
	"human", "staff", "manager",
}

// Service performs triage assessments.
type Service struct {
	logger *logging.Logger
}

// NewService builds the triage service.
func NewService(logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{logger: logger.Component("triage")}
}

// Assess runs the full triage pipeline: symptom analysis, medical alerts from
// the patient record, escalation triggers, and a wait-time estimate.
func (s *Service) Assess(patient PatientContext, symptoms string) Result {
	urgency, score, reasons, recommendations := AnalyzeSymptoms(symptoms)
	alerts := MedicalAlerts(patient)

	shouldEscalate, escalationReason := checkEscalation(symptoms, urgency, alerts)

	result := Result{
		Urgency:          urgency,
		Score:            score,
		Reasons:          reasons,
		Recommendations:  recommendations,
		Alerts:           alerts,
		EstimatedWait:    EstimatedWait(urgency),
		ShouldEscalate:   shouldEscalate,
		EscalationReason: escalationReason,
	}

	s.logger.Info("triage assessment",
		"patient", patient.PatientName,
		"urgency", result.Urgency,
		"score", result.Score,
		"alerts", len(result.Alerts),
		"escalate", result.ShouldEscalate,
	)
	return result
}

// AnalyzeSymptoms matches the symptom text against the pattern tables and
// returns the highest-scoring urgency plus the matched reasons and
// recommendations. Worsening or long-running symptoms bump the level.
func AnalyzeSymptoms(symptoms string) (scheduling.Urgency, int, []string, []string) {
	lower := strings.ToLower(symptoms)
	urgency := scheduling.UrgencyRoutine
	score := 1
	var reasons, recommendations []string

	for _, pattern := range symptomPatterns {
		for _, keyword := range pattern.keywords {
			if !strings.Contains(lower, keyword) {
				continue
			}
			if pattern.score > score {
				score = pattern.score
				urgency = pattern.urgency
			}
			if !containsString(reasons, keyword) {
				reasons = append(reasons, keyword)
			}
			if !containsString(recommendations, pattern.recommendation) {
				recommendations = append(recommendations, pattern.recommendation)
			}
			break
		}
	}

	if strings.Contains(lower, "getting worse") || strings.Contains(lower, "spreading") {
		score = minInt(10, score+2)
		if score >= 9 {
			urgency = scheduling.UrgencyEmergency
		} else if score >= 7 {
			urgency = scheduling.UrgencyUrgent
		}
		reasons = append(reasons, "Symptoms worsening/spreading")
	}

	if (strings.Contains(lower, "days") || strings.Contains(lower, "week")) && urgency == scheduling.UrgencyRoutine {
		urgency = scheduling.UrgencySoon
		score = maxInt(4, score)
		reasons = append(reasons, "Persistent symptoms")
	}

	if len(reasons) == 0 {
		reasons = []string{"Routine dental visit"}
	}
	if len(recommendations) == 0 {
		recommendations = []string{"Schedule at convenience"}
	}
	return urgency, score, reasons, recommendations
}

// IsEmergency is the fast pre-scheduling check run on every utterance.
func IsEmergency(symptoms string) bool {
	lower := strings.ToLower(symptoms)
	for _, phrase := range emergencyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// UrgencyLevel classifies symptoms without the full assessment.
func UrgencyLevel(symptoms string) scheduling.Urgency {
	urgency, _, _, _ := AnalyzeSymptoms(symptoms)
	return urgency
}

// MedicalAlerts derives staff-facing safety flags from the patient record.
func MedicalAlerts(patient PatientContext) []Alert {
	var alerts []Alert

	for _, allergy := range patient.Allergies {
		lower := strings.ToLower(allergy)
		switch {
		case strings.Contains(lower, "penicillin") || strings.Contains(lower, "amoxicillin"):
			alerts = append(alerts, Alert{
				Type: AlertAllergy, Severity: SeverityCritical,
				Message: "ALLERGY: " + allergy,
				Details: "Cannot prescribe penicillin-class antibiotics",
			})
		case strings.Contains(lower, "latex"):
			alerts = append(alerts, Alert{
				Type: AlertAllergy, Severity: SeverityCritical,
				Message: "ALLERGY: " + allergy,
				Details: "Use non-latex gloves and equipment",
			})
		case strings.Contains(lower, "local anesthetic") || strings.Contains(lower, "lidocaine"):
			alerts = append(alerts, Alert{
				Type: AlertAllergy, Severity: SeverityCritical,
				Message: "ALLERGY: " + allergy,
				Details: "Need alternative anesthetic options",
			})
		default:
			alerts = append(alerts, Alert{
				Type: AlertAllergy, Severity: SeverityWarning,
				Message: "Allergy: " + allergy,
			})
		}
	}

	for _, medication := range patient.Medications {
		lower := strings.ToLower(medication)
		for _, sig := range significantMedications {
			if strings.Contains(lower, sig.name) {
				alerts = append(alerts, Alert{
					Type: AlertMedication, Severity: SeverityWarning,
					Message: "Medication: " + medication,
					Details: sig.alert,
				})
				break
			}
		}
	}

	for _, condition := range patient.Conditions {
		lower := strings.ToLower(condition)
		for _, sig := range significantConditions {
			if !strings.Contains(lower, sig.name) {
				continue
			}
			severity := SeverityWarning
			for _, critical := range criticalConditions {
				if strings.Contains(lower, critical) {
					severity = SeverityCritical
					break
				}
			}
			alerts = append(alerts, Alert{
				Type: AlertCondition, Severity: severity,
				Message: "Condition: " + condition,
				Details: sig.alert,
			})
			break
		}
	}

	if notes := strings.ToLower(patient.StaffNotes); notes != "" {
		if strings.Contains(notes, "anxiety") || strings.Contains(notes, "nervous") || strings.Contains(notes, "phobia") {
			alerts = append(alerts, Alert{
				Type: AlertNote, Severity: SeverityInfo,
				Message: "Patient has dental anxiety",
				Details: "Use gentle approach, consider sedation options",
			})
		}
		if strings.Contains(notes, "difficult") || strings.Contains(notes, "gag reflex") {
			alerts = append(alerts, Alert{
				Type: AlertNote, Severity: SeverityInfo,
				Message: "Patient has strong gag reflex",
				Details: "May need breaks during procedures",
			})
		}
	}

	if patient.NoShowCount >= 2 {
		alerts = append(alerts, Alert{
			Type: AlertNote, Severity: SeverityWarning,
			Message: fmt.Sprintf("No-show history: %d missed appointments", patient.NoShowCount),
			Details: "Confirm appointment 24 hours before",
		})
	}

	return alerts
}

func checkEscalation(symptoms string, urgency scheduling.Urgency, alerts []Alert) (bool, string) {
	lower := strings.ToLower(symptoms)

	if urgency == scheduling.UrgencyEmergency {
		return true, "Emergency situation requires immediate human attention"
	}

	for _, keyword := range escalationKeywords {
		if strings.Contains(lower, keyword) {
			return true, "Detected keyword requiring escalation: " + keyword
		}
	}

	critical := 0
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			critical++
		}
	}
	if critical >= 2 {
		return true, "Multiple critical medical alerts"
	}

	for _, phrase := range humanRequestPhrases {
		if strings.Contains(lower, phrase) {
			return true, "Patient requested human assistance"
		}
	}

	return false, ""
}

// EstimatedWait maps urgency to the scheduling expectation communicated to
// the patient.
func EstimatedWait(urgency scheduling.Urgency) string {
	switch urgency {
	case scheduling.UrgencyEmergency:
		return "Immediate - same day emergency slot"
	case scheduling.UrgencyUrgent:
		return "Within 24-48 hours"
	case scheduling.UrgencySoon:
		return "Within 1 week"
	default:
		return "Next available appointment (typically 1-2 weeks)"
	}
}

// PromptContext renders the assessment as extra system-prompt context for
// the conversational agent.
func PromptContext(result Result) string {
	var b strings.Builder

	b.WriteString("\n## TRIAGE ASSESSMENT\n")
	fmt.Fprintf(&b, "Urgency: %s (%d/10)\n", strings.ToUpper(string(result.Urgency)), result.Score)
	fmt.Fprintf(&b, "Estimated scheduling: %s\n", result.EstimatedWait)

	if len(result.Reasons) > 0 {
		fmt.Fprintf(&b, "\nIdentified concerns: %s\n", strings.Join(result.Reasons, ", "))
	}

	if len(result.Alerts) > 0 {
		b.WriteString("\n## MEDICAL ALERTS\n")
		for _, alert := range result.Alerts {
			fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(alert.Severity)), alert.Message)
			if alert.Details != "" {
				fmt.Fprintf(&b, "   %s\n", alert.Details)
			}
		}
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("\n## RECOMMENDATIONS\n")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	if result.ShouldEscalate {
		fmt.Fprintf(&b, "\nESCALATION REQUIRED: %s\n", result.EscalationReason)
		b.WriteString("Offer to connect the patient with staff immediately\n")
	}

	return b.String()
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
