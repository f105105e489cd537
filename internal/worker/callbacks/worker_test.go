package callbackworker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-bonda108/Dentsi-sub000/internal/support"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

type fakeQueue struct {
	entries []support.CallbackEntry
	cutoffs []time.Time
}

func (f *fakeQueue) ListOverdue(_ context.Context, cutoff time.Time) ([]support.CallbackEntry, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	var out []support.CallbackEntry
	for _, e := range f.entries {
		if e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) NotifyStaff(_ context.Context, clinicID, subject, message, severity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, clinicID+"|"+subject+"|"+severity)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var workerNow = time.Date(2026, time.September, 7, 12, 0, 0, 0, time.UTC)

func newTestWorker(queue *fakeQueue, notifier *fakeNotifier) *Worker {
	w := New(queue, notifier, time.Minute, 2, logging.New("error"))
	w.now = func() time.Time { return workerNow }
	return w
}

func TestSweepRemindsOverdueOnce(t *testing.T) {
	entry := support.CallbackEntry{
		ID:           uuid.New(),
		ClinicID:     "clinic1",
		PatientName:  "Maria Lopez",
		PatientPhone: "+15551234567",
		Reason:       "reschedule after failed booking",
		Priority:     support.PriorityMedium,
		Status:       support.CallbackPending,
		CreatedAt:    workerNow.Add(-2 * time.Hour),
	}
	queue := &fakeQueue{entries: []support.CallbackEntry{entry}}
	notifier := &fakeNotifier{}
	w := newTestWorker(queue, notifier)

	require.NoError(t, w.sweep(context.Background()))
	assert.Equal(t, 1, notifier.count())
	assert.Contains(t, notifier.calls[0], "clinic1|Overdue callback: +15551234567|warning")

	// Second sweep must not renotify the same entry.
	require.NoError(t, w.sweep(context.Background()))
	assert.Equal(t, 1, notifier.count())
}

func TestSweepSkipsFreshEntries(t *testing.T) {
	queue := &fakeQueue{entries: []support.CallbackEntry{{
		ID:        uuid.New(),
		ClinicID:  "clinic1",
		Status:    support.CallbackPending,
		CreatedAt: workerNow.Add(-5 * time.Minute),
	}}}
	notifier := &fakeNotifier{}
	w := newTestWorker(queue, notifier)

	require.NoError(t, w.sweep(context.Background()))
	assert.Zero(t, notifier.count())
	require.Len(t, queue.cutoffs, 1)
	assert.Equal(t, workerNow.Add(-DefaultOverdueAfter), queue.cutoffs[0])
}

func TestSweepUrgentSeverity(t *testing.T) {
	queue := &fakeQueue{entries: []support.CallbackEntry{{
		ID:           uuid.New(),
		ClinicID:     "clinic1",
		PatientPhone: "+15550001111",
		Priority:     support.PriorityUrgent,
		Status:       support.CallbackPending,
		CreatedAt:    workerNow.Add(-time.Hour),
	}}}
	notifier := &fakeNotifier{}
	w := newTestWorker(queue, notifier)

	require.NoError(t, w.sweep(context.Background()))
	require.Equal(t, 1, notifier.count())
	assert.Contains(t, notifier.calls[0], "|critical")
}

func TestDedupMapPrunesResolvedEntries(t *testing.T) {
	entry := support.CallbackEntry{
		ID:        uuid.New(),
		ClinicID:  "clinic1",
		Status:    support.CallbackPending,
		CreatedAt: workerNow.Add(-time.Hour),
	}
	queue := &fakeQueue{entries: []support.CallbackEntry{entry}}
	notifier := &fakeNotifier{}
	w := newTestWorker(queue, notifier)

	require.NoError(t, w.sweep(context.Background()))
	assert.Len(t, w.reminded, 1)

	// Entry completed and left the overdue list; the map forgets it.
	queue.entries = nil
	require.NoError(t, w.sweep(context.Background()))
	assert.Empty(t, w.reminded)
}

func TestRunStopsOnCancel(t *testing.T) {
	queue := &fakeQueue{}
	w := New(queue, &fakeNotifier{}, 10*time.Millisecond, 1, logging.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
