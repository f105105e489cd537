package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
)

func TestAnalyzeSymptoms(t *testing.T) {
	tests := []struct {
		symptoms string
		urgency  scheduling.Urgency
		minScore int
	}{
		{"I have severe pain, bleeding, and swelling", scheduling.UrgencyEmergency, 10},
		{"my tooth fell out after getting hit", scheduling.UrgencyEmergency, 10},
		{"face swelling that keeps getting worse", scheduling.UrgencyEmergency, 10},
		{"I have a cracked tooth from chewing ice", scheduling.UrgencyUrgent, 8},
		{"there is pus and my gum is swollen", scheduling.UrgencyUrgent, 9},
		{"my crown fell off yesterday", scheduling.UrgencyUrgent, 7},
		{"throbbing pain keeping me up at night", scheduling.UrgencyUrgent, 8},
		{"my teeth are sensitive to cold", scheduling.UrgencySoon, 5},
		{"gums bleed when brushing", scheduling.UrgencySoon, 4},
		{"just need a routine cleaning", scheduling.UrgencyRoutine, 2},
		{"interested in whitening", scheduling.UrgencyRoutine, 1},
		{"nothing specific", scheduling.UrgencyRoutine, 1},
	}
	for _, tt := range tests {
		t.Run(tt.symptoms, func(t *testing.T) {
			urgency, score, reasons, recommendations := AnalyzeSymptoms(tt.symptoms)
			assert.Equal(t, tt.urgency, urgency)
			assert.GreaterOrEqual(t, score, tt.minScore)
			assert.NotEmpty(t, reasons)
			assert.NotEmpty(t, recommendations)
		})
	}
}

func TestAnalyzeSymptomsWorseningBumpsUrgency(t *testing.T) {
	urgency, score, reasons, _ := AnalyzeSymptoms("mild pain that is getting worse")
	assert.Equal(t, scheduling.UrgencyUrgent, urgency)
	assert.Equal(t, 7, score)
	assert.Contains(t, reasons, "Symptoms worsening/spreading")
}

func TestAnalyzeSymptomsPersistenceBumpsRoutine(t *testing.T) {
	urgency, score, reasons, _ := AnalyzeSymptoms("it has felt odd for days")
	assert.Equal(t, scheduling.UrgencySoon, urgency)
	assert.Equal(t, 4, score)
	assert.Contains(t, reasons, "Persistent symptoms")
}

func TestIsEmergency(t *testing.T) {
	assert.True(t, IsEmergency("I am in severe pain"))
	assert.True(t, IsEmergency("my face swelling is bad and I can't breathe"))
	assert.True(t, IsEmergency("I think my jaw broken"))
	assert.False(t, IsEmergency("routine cleaning please"))
	assert.False(t, IsEmergency("my teeth are a bit sensitive"))
}

func TestMedicalAlerts(t *testing.T) {
	alerts := MedicalAlerts(PatientContext{
		Allergies:   []string{"Penicillin", "pollen"},
		Medications: []string{"Warfarin 5mg", "vitamin d"},
		Conditions:  []string{"Type 2 diabetes"},
		StaffNotes:  "very nervous patient",
		NoShowCount: 3,
	})

	byMessage := make(map[string]Alert)
	for _, a := range alerts {
		byMessage[a.Message] = a
	}

	penicillin, ok := byMessage["ALLERGY: Penicillin"]
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, penicillin.Severity)

	pollen, ok := byMessage["Allergy: pollen"]
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, pollen.Severity)

	warfarin, ok := byMessage["Medication: Warfarin 5mg"]
	require.True(t, ok)
	assert.Contains(t, warfarin.Details, "Blood thinner")

	diabetes, ok := byMessage["Condition: Type 2 diabetes"]
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, diabetes.Severity)

	_, ok = byMessage["Patient has dental anxiety"]
	assert.True(t, ok)

	noShow, ok := byMessage["No-show history: 3 missed appointments"]
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, noShow.Severity)
}

func TestMedicalAlertsCriticalConditions(t *testing.T) {
	alerts := MedicalAlerts(PatientContext{Conditions: []string{"pregnant", "heart valve replacement"}})
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, SeverityCritical, a.Severity)
	}
}

func TestAssessEscalation(t *testing.T) {
	svc := NewService(nil)

	emergency := svc.Assess(PatientContext{}, "severe pain and heavy bleeding")
	assert.True(t, emergency.ShouldEscalate)
	assert.Equal(t, "Emergency situation requires immediate human attention", emergency.EscalationReason)

	keyword := svc.Assess(PatientContext{}, "I have chest pain too")
	assert.True(t, keyword.ShouldEscalate)
	assert.Contains(t, keyword.EscalationReason, "chest pain")

	human := svc.Assess(PatientContext{}, "I want to talk to a person")
	assert.True(t, human.ShouldEscalate)
	assert.Equal(t, "Patient requested human assistance", human.EscalationReason)

	multiCritical := svc.Assess(PatientContext{
		Allergies: []string{"penicillin", "latex"},
	}, "checkup")
	assert.True(t, multiCritical.ShouldEscalate)
	assert.Equal(t, "Multiple critical medical alerts", multiCritical.EscalationReason)

	calm := svc.Assess(PatientContext{}, "routine cleaning")
	assert.False(t, calm.ShouldEscalate)
}

func TestEstimatedWait(t *testing.T) {
	assert.Equal(t, "Immediate - same day emergency slot", EstimatedWait(scheduling.UrgencyEmergency))
	assert.Equal(t, "Within 24-48 hours", EstimatedWait(scheduling.UrgencyUrgent))
	assert.Equal(t, "Within 1 week", EstimatedWait(scheduling.UrgencySoon))
	assert.Equal(t, "Next available appointment (typically 1-2 weeks)", EstimatedWait(scheduling.UrgencyRoutine))
}

func TestPromptContext(t *testing.T) {
	svc := NewService(nil)
	result := svc.Assess(PatientContext{Allergies: []string{"latex"}}, "abscess and fever")

	prompt := PromptContext(result)
	assert.True(t, strings.Contains(prompt, "TRIAGE ASSESSMENT"))
	assert.True(t, strings.Contains(prompt, "URGENT"))
	assert.True(t, strings.Contains(prompt, "MEDICAL ALERTS"))
	assert.True(t, strings.Contains(prompt, "ALLERGY: latex"))
}
