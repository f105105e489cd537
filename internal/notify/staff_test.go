package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	sent []EmailMessage
	err  error
}

func (c *capturingSender) Send(_ context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return c.err
}

type staticContacts struct {
	email string
	err   error
}

func (s staticContacts) StaffEmail(context.Context, string) (string, error) {
	return s.email, s.err
}

func TestNotifyStaff(t *testing.T) {
	sender := &capturingSender{}
	notifier := NewStaffNotifier(sender, staticContacts{email: "front-desk@clinic.test"}, nil)

	err := notifier.NotifyStaff(context.Background(), "clinic-1",
		"Call escalation: emergency", "Call call-1 escalated", "critical")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "front-desk@clinic.test", msg.To)
	assert.Equal(t, "[CRITICAL] Call escalation: emergency", msg.Subject)
	assert.Contains(t, msg.Body, "Severity: CRITICAL")
}

func TestNotifyStaffNoContact(t *testing.T) {
	sender := &capturingSender{}
	notifier := NewStaffNotifier(sender, staticContacts{}, nil)

	err := notifier.NotifyStaff(context.Background(), "clinic-1", "subject", "body", "info")
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestNotifyStaffContactLookupError(t *testing.T) {
	sender := &capturingSender{}
	notifier := NewStaffNotifier(sender, staticContacts{err: errors.New("boom")}, nil)

	err := notifier.NotifyStaff(context.Background(), "clinic-1", "subject", "body", "info")
	assert.Error(t, err)
}

func TestNotifyStaffNilSender(t *testing.T) {
	notifier := NewStaffNotifier(nil, staticContacts{email: "x@y.test"}, nil)
	assert.NoError(t, notifier.NotifyStaff(context.Background(), "clinic-1", "s", "b", "info"))
}
