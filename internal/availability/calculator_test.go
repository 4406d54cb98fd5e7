package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateone/tour-engine/internal/booking"
)

type fixedWindows struct {
	byDay map[int][]Window
}

func (f *fixedWindows) ListActive(_ context.Context, _ string, dayOfWeek int) ([]Window, error) {
	return f.byDay[dayOfWeek], nil
}

type capturingBookings struct {
	bookings []booking.Booking
	statuses []booking.Status
	calls    int
}

func (c *capturingBookings) ListByAgent(_ context.Context, _ string, _, _ time.Time, statuses []booking.Status) ([]booking.Booking, error) {
	c.calls++
	c.statuses = statuses
	return c.bookings, nil
}

func TestAvailableSlotsNoWindows(t *testing.T) {
	windows := &fixedWindows{byDay: map[int][]Window{}}
	bookings := &capturingBookings{}
	calc := NewCalculator(windows, bookings, nil)

	// 2026-09-14 is a Monday.
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	schedule, err := calc.AvailableSlots(context.Background(), "agent-1", date)
	require.NoError(t, err)

	assert.Empty(t, schedule.Windows)
	assert.Empty(t, schedule.Conflicts)
	assert.Zero(t, bookings.calls, "no windows means no conflict query")
}

func TestAvailableSlotsMatchesWeekday(t *testing.T) {
	monday := Window{ID: uuid.New(), AgentID: "agent-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsActive: true}
	windows := &fixedWindows{byDay: map[int][]Window{1: {monday}}}
	conflict := booking.Booking{ID: uuid.New(), Status: booking.StatusConfirmed}
	bookings := &capturingBookings{bookings: []booking.Booking{conflict}}
	calc := NewCalculator(windows, bookings, nil)

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	schedule, err := calc.AvailableSlots(context.Background(), "agent-1", date)
	require.NoError(t, err)

	require.Len(t, schedule.Windows, 1)
	assert.Equal(t, monday.ID, schedule.Windows[0].ID)
	require.Len(t, schedule.Conflicts, 1)
	assert.Equal(t, conflict.ID, schedule.Conflicts[0].ID)

	// Only live bookings block time.
	assert.Equal(t, []booking.Status{booking.StatusScheduled, booking.StatusConfirmed}, bookings.statuses)
}

func TestAvailableSlotsSundayIsDayZero(t *testing.T) {
	sunday := Window{ID: uuid.New(), AgentID: "agent-1", DayOfWeek: 0, StartTime: "10:00", EndTime: "14:00", IsActive: true}
	windows := &fixedWindows{byDay: map[int][]Window{0: {sunday}}}
	bookings := &capturingBookings{}
	calc := NewCalculator(windows, bookings, nil)

	// 2026-09-13 is a Sunday.
	date := time.Date(2026, 9, 13, 12, 0, 0, 0, time.UTC)
	schedule, err := calc.AvailableSlots(context.Background(), "agent-1", date)
	require.NoError(t, err)
	require.Len(t, schedule.Windows, 1)
	assert.Equal(t, sunday.ID, schedule.Windows[0].ID)

	// The schedule date is normalized to midnight of the requested day.
	assert.Equal(t, time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC), schedule.Date)
}
