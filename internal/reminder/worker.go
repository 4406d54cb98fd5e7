package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/internal/observability/metrics"
	"github.com/estateone/tour-engine/pkg/logging"
)

// CandidateStore is the booking-store surface the scheduler needs.
// *booking.Store satisfies it.
type CandidateStore interface {
	ListReminderCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]booking.Booking, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	CountUnremindedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

var _ CandidateStore = (*booking.Store)(nil)

// Worker is the recurring reminder scheduler. Each tick scans the lookahead
// band [now+leadTime, now+leadTime+interval) for scheduled, unreminded
// bookings and dispatches exactly one reminder per booking: dispatch first,
// then mark sent through the same status-guarded update path the lifecycle
// uses. A failed dispatch leaves the flag unset so the next tick retries;
// the retry is naturally bounded because the booking eventually leaves the
// band.
type Worker struct {
	store      CandidateStore
	properties booking.PropertyLookup
	notifier   booking.Notifier
	lease      Lease
	metrics    *metrics.EngineMetrics
	logger     *logging.Logger
	interval   time.Duration
	leadTime   time.Duration
	leaseKey   string
}

// NewWorker creates a reminder worker. The lookahead band width equals the
// tick interval so no booking is skipped between ticks or counted twice.
func NewWorker(store CandidateStore, properties booking.PropertyLookup, notifier booking.Notifier, lease Lease, m *metrics.EngineMetrics, logger *logging.Logger, interval, leadTime time.Duration, leaseKey string) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if lease == nil {
		lease = NopLease{}
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if leadTime <= 0 {
		leadTime = 24 * time.Hour
	}
	if leaseKey == "" {
		leaseKey = "tour-engine:reminder-tick"
	}
	return &Worker{
		store:      store,
		properties: properties,
		notifier:   notifier,
		lease:      lease,
		metrics:    m,
		logger:     logger,
		interval:   interval,
		leadTime:   leadTime,
		leaseKey:   leaseKey,
	}
}

// Start runs the scheduler loop. Blocks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting reminder scheduler",
		"interval", w.interval.String(),
		"lead_time", w.leadTime.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder scheduler shutting down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if _, err := w.RunOnce(ctx, time.Now().UTC()); err != nil {
		w.logger.Error("reminder tick failed", "error", err)
	}
}

// RunOnce performs a single scheduler tick at the given instant. Returns
// the number of reminders dispatched. Taking now as a parameter keeps the
// band computation testable without real time passing.
func (w *Worker) RunOnce(ctx context.Context, now time.Time) (int, error) {
	claimed, err := w.lease.Acquire(ctx, w.tickLeaseKey(now), w.interval)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil
	}

	windowStart := now.Add(w.leadTime)
	windowEnd := windowStart.Add(w.interval)

	// Bookings that slipped below the band without a successful reminder
	// are permanently missed; surface them rather than silently masking.
	if missed, err := w.store.CountUnremindedBetween(ctx, now, windowStart); err != nil {
		w.logger.Error("reminder: missed-reminder check failed", "error", err)
	} else if missed > 0 {
		w.logger.Warn("reminder: bookings left the lookahead band without a reminder", "count", missed)
		w.metrics.ObserveRemindersMissed(int(missed))
	}

	candidates, err := w.store.ListReminderCandidates(ctx, windowStart, windowEnd)
	if err != nil {
		return 0, fmt.Errorf("reminder: list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	w.logger.Info("reminder: processing candidates",
		"count", len(candidates),
		"window_start", windowStart.Format(time.RFC3339),
		"window_end", windowEnd.Format(time.RFC3339),
	)

	processed := 0
	for i := range candidates {
		b := &candidates[i]
		if err := w.remind(ctx, b); err != nil {
			w.logger.Error("reminder: failed to process booking",
				"booking_id", b.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// TriggerNow dispatches an immediate reminder for one booking. It reuses
// the tick's dispatch-then-mark-sent path so idempotency behavior cannot
// diverge.
func (w *Worker) TriggerNow(ctx context.Context, id uuid.UUID) error {
	b, err := w.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != booking.StatusScheduled {
		return fmt.Errorf("%w: booking is %s", booking.ErrInvalidState, b.Status)
	}
	if b.ReminderSent {
		return fmt.Errorf("%w: reminder already sent", booking.ErrInvalidState)
	}
	return w.remind(ctx, b)
}

// remind dispatches a single reminder and marks the booking only after the
// dispatch reports success, so a half-completed dispatch never records a
// sent reminder.
func (w *Worker) remind(ctx context.Context, b *booking.Booking) error {
	prop, err := w.properties.Lookup(ctx, b.PropertyID)
	if err != nil {
		return fmt.Errorf("lookup property %s: %w", b.PropertyID, err)
	}

	ok := w.notifier.Announce(ctx, booking.EventReminder, b, booking.EventContext{
		PropertyTitle: prop.Title,
		PropertySlug:  prop.Slug,
	})
	if !ok {
		w.metrics.ObserveReminderFailure()
		return errors.New("dispatch failed, will retry next tick")
	}

	marked, err := w.store.MarkReminderSent(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if !marked {
		// A concurrent reschedule or cancel won the row between dispatch
		// and mark; its fresh reminder window applies.
		w.logger.Warn("reminder: booking changed during dispatch, not marked", "booking_id", b.ID)
		return nil
	}

	w.metrics.ObserveReminderDispatched()
	w.logger.Info("reminder sent",
		"booking_id", b.ID,
		"scheduled_at", b.ScheduledAt.Format(time.RFC3339),
	)
	return nil
}

func (w *Worker) tickLeaseKey(now time.Time) string {
	return fmt.Sprintf("%s:%d", w.leaseKey, now.Truncate(w.interval).Unix())
}
