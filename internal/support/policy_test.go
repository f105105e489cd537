package support

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		message string
		want    ErrorClass
	}{
		{"request timed out after 5s", ErrTimeout},
		{"upstream timeout", ErrTimeout},
		{"no slots found for provider", ErrNoAvailability},
		{"time is not available", ErrNoAvailability},
		{"ambiguous request", ErrAmbiguousInput},
		{"intent unclear", ErrAmbiguousInput},
		{"database connection refused", ErrSystemError},
		{"network unreachable", ErrSystemError},
		{"emergency detected in utterance", ErrEmergency},
		{"urgent symptoms reported", ErrEmergency},
		{"something odd happened", ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(errors.New(tt.message)))
		})
	}
	assert.Equal(t, ErrUnknown, ClassifyError(nil))
}

func TestClassifyErrorDeadlineExceeded(t *testing.T) {
	// The canonical deadline error says "context deadline exceeded", which no
	// keyword matches; wrapped or not it must still land on retry.
	wrapped := fmt.Errorf("conversation: llm call: %w", context.DeadlineExceeded)
	assert.Equal(t, ErrTimeout, ClassifyError(wrapped))
	assert.Equal(t, ErrTimeout, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ActionRetry, FallbackFor(ClassifyError(wrapped)).Type)
}

func TestFallbackFor(t *testing.T) {
	retry := FallbackFor(ErrTimeout)
	assert.Equal(t, ActionRetry, retry.Type)
	assert.False(t, retry.RequiresStaffNotify)

	callback := FallbackFor(ErrNoAvailability)
	assert.Equal(t, ActionCallback, callback.Type)
	assert.True(t, callback.RequiresStaffNotify)
	assert.Contains(t, callback.Message, "cancellation")

	clarify := FallbackFor(ErrAmbiguousInput)
	assert.Equal(t, ActionRetry, clarify.Type)
	assert.Contains(t, clarify.Message, "schedule a new appointment or reschedule")

	system := FallbackFor(ErrSystemError)
	assert.Equal(t, ActionEscalate, system.Type)
	assert.True(t, system.RequiresStaffNotify)

	emergency := FallbackFor(ErrEmergency)
	assert.Equal(t, ActionEscalate, emergency.Type)
	assert.Contains(t, emergency.Message, "right away")

	unknown := FallbackFor(ErrUnknown)
	assert.Equal(t, ActionCallback, unknown.Type)
	assert.True(t, unknown.RequiresStaffNotify)
}

func TestRecoveryMessage(t *testing.T) {
	assert.Contains(t, RecoveryMessage(ErrTimeout), "try that again")
	assert.Contains(t, RecoveryMessage(ErrNoAvailability), "next week")
	assert.Contains(t, RecoveryMessage(ErrSystemError), "callback")
	assert.Contains(t, RecoveryMessage(ErrEmergency), "immediately")
	assert.Contains(t, RecoveryMessage(ErrUnknown), "call you back")
	assert.Contains(t, RecoveryMessage(ErrorClass("other")), "call you back")
}
