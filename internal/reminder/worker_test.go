package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/internal/property"
)

type memStore struct {
	bookings map[uuid.UUID]*booking.Booking
}

func newMemStore(bookings ...*booking.Booking) *memStore {
	s := &memStore{bookings: make(map[uuid.UUID]*booking.Booking)}
	for _, b := range bookings {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		s.bookings[b.ID] = b
	}
	return s
}

func (s *memStore) ListReminderCandidates(_ context.Context, windowStart, windowEnd time.Time) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range s.bookings {
		if b.Status != booking.StatusScheduled || b.ReminderSent {
			continue
		}
		if b.ScheduledAt.Before(windowStart) || !b.ScheduledAt.Before(windowEnd) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (s *memStore) MarkReminderSent(_ context.Context, id uuid.UUID) (bool, error) {
	b, ok := s.bookings[id]
	if !ok || b.Status != booking.StatusScheduled || b.ReminderSent {
		return false, nil
	}
	b.ReminderSent = true
	return true, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *memStore) CountUnremindedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var count int64
	for _, b := range s.bookings {
		if b.Status != booking.StatusScheduled || b.ReminderSent {
			continue
		}
		if b.ScheduledAt.Before(from) || !b.ScheduledAt.Before(to) {
			continue
		}
		count++
	}
	return count, nil
}

type recordingNotifier struct {
	ok        bool
	reminders []uuid.UUID
}

func (n *recordingNotifier) Announce(_ context.Context, kind booking.EventKind, b *booking.Booking, _ booking.EventContext) bool {
	if kind == booking.EventReminder {
		n.reminders = append(n.reminders, b.ID)
	}
	return n.ok
}

type staticProperties struct{}

func (staticProperties) Lookup(_ context.Context, id string) (*property.Property, error) {
	return &property.Property{ID: id, Title: "14 Maple Drive", Slug: "14-maple-drive"}, nil
}

type denyLease struct{}

func (denyLease) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, nil
}

func newTestWorker(store *memStore, notifier *recordingNotifier, lease Lease) *Worker {
	return NewWorker(store, staticProperties{}, notifier, lease, nil, nil, time.Hour, 24*time.Hour, "test:reminder-tick")
}

func scheduledAt(now time.Time, offset time.Duration) *booking.Booking {
	return &booking.Booking{
		UserID:        "user-1",
		PropertyID:    "prop-1",
		Platform:      booking.PlatformZoom,
		Status:        booking.StatusScheduled,
		ScheduledAt:   now.Add(offset),
		Timezone:      "UTC",
		AttendeeEmail: "ann@example.com",
	}
}

func TestRunOnceDispatchesInsideBand(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	inside := scheduledAt(now, 24*time.Hour+5*time.Minute)
	beyond := scheduledAt(now, 26*time.Hour)
	store := newMemStore(inside, beyond)
	notifier := &recordingNotifier{ok: true}
	w := newTestWorker(store, notifier, NopLease{})

	processed, err := w.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []uuid.UUID{inside.ID}, notifier.reminders)
	assert.True(t, store.bookings[inside.ID].ReminderSent)
	assert.False(t, store.bookings[beyond.ID].ReminderSent)
}

func TestRunOnceSkipsNonCandidates(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	cancelled := scheduledAt(now, 24*time.Hour+5*time.Minute)
	cancelled.Status = booking.StatusCancelled
	already := scheduledAt(now, 24*time.Hour+10*time.Minute)
	already.ReminderSent = true
	store := newMemStore(cancelled, already)
	notifier := &recordingNotifier{ok: true}
	w := newTestWorker(store, notifier, NopLease{})

	processed, err := w.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, notifier.reminders)
}

func TestRunOnceNeverRedispatches(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	b := scheduledAt(now, 24*time.Hour+30*time.Minute)
	store := newMemStore(b)
	notifier := &recordingNotifier{ok: true}
	w := newTestWorker(store, notifier, NopLease{})

	_, err := w.RunOnce(context.Background(), now)
	require.NoError(t, err)

	// The same instant and the next tick both leave the booking alone.
	processed, err := w.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, processed)

	processed, err = w.RunOnce(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, processed)

	assert.Len(t, notifier.reminders, 1)
}

func TestRunOnceRetriesFailedDispatch(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	b := scheduledAt(now, 24*time.Hour+30*time.Minute)
	store := newMemStore(b)
	notifier := &recordingNotifier{ok: false}
	w := newTestWorker(store, notifier, NopLease{})

	processed, err := w.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.False(t, store.bookings[b.ID].ReminderSent, "failed dispatch must leave the flag unset")

	// The sink recovers; the retry succeeds within the same band.
	notifier.ok = true
	processed, err = w.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.True(t, store.bookings[b.ID].ReminderSent)
}

func TestRunOnceHonorsLease(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	b := scheduledAt(now, 24*time.Hour+30*time.Minute)
	store := newMemStore(b)
	notifier := &recordingNotifier{ok: true}
	w := newTestWorker(store, notifier, denyLease{})

	processed, err := w.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, notifier.reminders)
}

func TestTriggerNow(t *testing.T) {
	now := time.Now().UTC()
	b := scheduledAt(now, 3*time.Hour)
	store := newMemStore(b)
	notifier := &recordingNotifier{ok: true}
	w := newTestWorker(store, notifier, NopLease{})

	require.NoError(t, w.TriggerNow(context.Background(), b.ID))
	assert.True(t, store.bookings[b.ID].ReminderSent)

	// A second trigger is an invalid state, not a duplicate send.
	err := w.TriggerNow(context.Background(), b.ID)
	assert.ErrorIs(t, err, booking.ErrInvalidState)
	assert.Len(t, notifier.reminders, 1)
}

func TestTriggerNowRejectsNonScheduled(t *testing.T) {
	now := time.Now().UTC()
	b := scheduledAt(now, 3*time.Hour)
	b.Status = booking.StatusCancelled
	store := newMemStore(b)
	w := newTestWorker(store, &recordingNotifier{ok: true}, NopLease{})

	err := w.TriggerNow(context.Background(), b.ID)
	assert.ErrorIs(t, err, booking.ErrInvalidState)
}

func TestTriggerNowUnknownBooking(t *testing.T) {
	w := newTestWorker(newMemStore(), &recordingNotifier{ok: true}, NopLease{})

	err := w.TriggerNow(context.Background(), uuid.New())
	assert.ErrorIs(t, err, booking.ErrNotFound)
}
