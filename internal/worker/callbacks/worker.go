// Package callbackworker chases pending callback promises. Entries that sit
// in the queue past the overdue threshold trigger a staff reminder so no
// patient waits on a return call that never comes.
package callbackworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/git-bonda108/Dentsi-sub000/internal/support"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// DefaultOverdueAfter is how long a callback may stay pending before staff
// get a reminder.
const DefaultOverdueAfter = 30 * time.Minute

// OverdueSource lists stale pending callbacks.
type OverdueSource interface {
	ListOverdue(ctx context.Context, cutoff time.Time) ([]support.CallbackEntry, error)
}

// Notifier delivers staff reminders.
type Notifier interface {
	NotifyStaff(ctx context.Context, clinicID, subject, message, severity string) error
}

// Worker polls the callback queue and fans reminders out to a bounded pool.
type Worker struct {
	queue        OverdueSource
	notifier     Notifier
	logger       *logging.Logger
	interval     time.Duration
	workers      int
	overdueAfter time.Duration
	now          func() time.Time

	mu       sync.Mutex
	reminded map[uuid.UUID]time.Time
}

// New creates a callback reminder worker.
func New(queue OverdueSource, notifier Notifier, interval time.Duration, workers int, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if workers <= 0 {
		workers = 1
	}
	return &Worker{
		queue:        queue,
		notifier:     notifier,
		logger:       logger.Component("callback-worker"),
		interval:     interval,
		workers:      workers,
		overdueAfter: DefaultOverdueAfter,
		now:          time.Now,
		reminded:     make(map[uuid.UUID]time.Time),
	}
}

// WithOverdueAfter overrides the overdue threshold.
func (w *Worker) WithOverdueAfter(d time.Duration) *Worker {
	if d > 0 {
		w.overdueAfter = d
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting", "interval", w.interval, "workers", w.workers, "overdue_after", w.overdueAfter)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// sweep finds overdue entries and reminds staff about each one once.
func (w *Worker) sweep(ctx context.Context) error {
	cutoff := w.now().Add(-w.overdueAfter)
	entries, err := w.queue.ListOverdue(ctx, cutoff)
	if err != nil {
		return err
	}

	pending := w.filterReminded(entries)
	if len(pending) == 0 {
		return nil
	}
	w.logger.Info("overdue callbacks found", "count", len(pending))

	jobs := make(chan support.CallbackEntry)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				w.remind(ctx, entry)
			}
		}()
	}
	for _, entry := range pending {
		jobs <- entry
	}
	close(jobs)
	wg.Wait()
	return nil
}

func (w *Worker) remind(ctx context.Context, entry support.CallbackEntry) {
	waiting := w.now().Sub(entry.CreatedAt).Round(time.Minute)
	subject := "Overdue callback: " + entry.PatientPhone
	message := fmt.Sprintf(
		"%s (%s) has been waiting %s for a return call.\nReason: %s\nPriority: %s",
		entry.PatientName, entry.PatientPhone, waiting, entry.Reason, entry.Priority,
	)
	severity := "warning"
	if entry.Priority == support.PriorityUrgent || entry.Priority == support.PriorityHigh {
		severity = "critical"
	}

	if err := w.notifier.NotifyStaff(ctx, entry.ClinicID, subject, message, severity); err != nil {
		w.logger.Error("reminder failed", "error", err, "callback_id", entry.ID)
		return
	}

	w.mu.Lock()
	w.reminded[entry.ID] = w.now()
	w.mu.Unlock()
	w.logger.Info("staff reminded", "callback_id", entry.ID, "clinic_id", entry.ClinicID, "waiting", waiting)
}

// filterReminded drops entries already reminded and prunes completed ones
// from the dedup map.
func (w *Worker) filterReminded(entries []support.CallbackEntry) []support.CallbackEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	live := make(map[uuid.UUID]struct{}, len(entries))
	var out []support.CallbackEntry
	for _, e := range entries {
		live[e.ID] = struct{}{}
		if _, seen := w.reminded[e.ID]; !seen {
			out = append(out, e)
		}
	}
	for id := range w.reminded {
		if _, ok := live[id]; !ok {
			delete(w.reminded, id)
		}
	}
	return out
}
