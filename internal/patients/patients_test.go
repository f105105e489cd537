package patients

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/git-bonda108/Dentsi-sub000/internal/scheduling"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(555) 000-1111", "5550001111"},
		{"+1 555-000-1111", "+15550001111"},
		{"555.000.1111", "5550001111"},
		{"5550001111", "5550001111"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePhone(tt.in), tt.in)
	}
}

func TestTriageContext(t *testing.T) {
	cc := &CallContext{
		Patient: &Patient{
			Name:        "Pat Doe",
			Allergies:   []string{"penicillin"},
			Medications: []string{"warfarin"},
			Conditions:  []string{"diabetes"},
			StaffNotes:  "nervous patient",
			NoShowCount: 2,
		},
		IsReturningPatient: true,
	}

	tc := cc.TriageContext()
	assert.Equal(t, "Pat Doe", tc.PatientName)
	assert.Equal(t, []string{"penicillin"}, tc.Allergies)
	assert.Equal(t, 2, tc.NoShowCount)

	empty := (&CallContext{Phone: "+15550001111"}).TriageContext()
	assert.Empty(t, empty.PatientName)
}

func TestPromptContextNewCaller(t *testing.T) {
	cc := &CallContext{Phone: "+15550001111"}
	prompt := cc.PromptContext()
	assert.Contains(t, prompt, "New caller from +15550001111")
	assert.Contains(t, prompt, "create a record before booking")
}

func TestPromptContextReturningPatient(t *testing.T) {
	lastVisit := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	cc := &CallContext{
		Patient: &Patient{
			Name:              "Pat Doe",
			TotalVisits:       7,
			LastVisitAt:       &lastVisit,
			InsuranceProvider: "Delta Dental",
			InsuranceVerified: true,
			NoShowCount:       1,
		},
		IsReturningPatient: true,
		LastVisitDaysAgo:   91,
		Upcoming: []scheduling.Booking{
			{
				ID:          uuid.New(),
				ProviderID:  "prov-1",
				StartAt:     time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
				ServiceType: "cleaning",
				Status:      scheduling.StatusScheduled,
			},
		},
	}

	prompt := cc.PromptContext()
	assert.Contains(t, prompt, "Returning patient: Pat Doe")
	assert.Contains(t, prompt, "Total visits: 7")
	assert.Contains(t, prompt, "91 days ago")
	assert.Contains(t, prompt, "Delta Dental (verified)")
	assert.Contains(t, prompt, "Missed appointments: 1")
	assert.Contains(t, prompt, "cleaning with provider prov-1")
}
