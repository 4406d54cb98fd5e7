package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/estateone/tour-engine/internal/booking"
	"github.com/estateone/tour-engine/pkg/logging"
)

// WindowSource lists an agent's active weekly windows. *Store satisfies it.
type WindowSource interface {
	ListActive(ctx context.Context, agentID string, dayOfWeek int) ([]Window, error)
}

var _ WindowSource = (*Store)(nil)

// BookingSource lists an agent's bookings for conflict detection.
type BookingSource interface {
	ListByAgent(ctx context.Context, agentID string, from, to time.Time, statuses []booking.Status) ([]booking.Booking, error)
}

// DaySchedule is the raw availability picture for one agent and date:
// the matching active windows and the bookings that block time inside
// them. Slot-granularity subtraction is a presentation concern layered on
// top.
type DaySchedule struct {
	Date      time.Time         `json:"date"`
	Windows   []Window          `json:"windows"`
	Conflicts []booking.Booking `json:"conflicts"`
}

// Calculator computes an agent's availability for a given date.
type Calculator struct {
	windows  WindowSource
	bookings BookingSource
	logger   *logging.Logger
}

// NewCalculator creates an availability calculator.
func NewCalculator(windows WindowSource, bookings BookingSource, logger *logging.Logger) *Calculator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Calculator{windows: windows, bookings: bookings, logger: logger}
}

// AvailableSlots returns the active windows matching date's day of week and
// the scheduled/confirmed bookings on that date. Cancelled and completed
// bookings do not block. An agent with no active windows returns an empty
// schedule, not an error. Overlapping windows are returned as stored; the
// data owner is responsible for avoiding overlaps.
func (c *Calculator) AvailableSlots(ctx context.Context, agentID string, date time.Time) (*DaySchedule, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	windows, err := c.windows.ListActive(ctx, agentID, int(dayStart.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("availability: windows for agent %s: %w", agentID, err)
	}

	schedule := &DaySchedule{Date: dayStart, Windows: windows}
	if len(windows) == 0 {
		return schedule, nil
	}

	conflicts, err := c.bookings.ListByAgent(ctx, agentID, dayStart, dayEnd,
		[]booking.Status{booking.StatusScheduled, booking.StatusConfirmed})
	if err != nil {
		return nil, fmt.Errorf("availability: conflicts for agent %s: %w", agentID, err)
	}
	schedule.Conflicts = conflicts

	c.logger.Debug("availability computed",
		"agent_id", agentID,
		"date", dayStart.Format(time.DateOnly),
		"windows", len(windows),
		"conflicts", len(conflicts),
	)
	return schedule, nil
}
