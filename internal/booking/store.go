package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const bookingColumns = `id, user_id, property_id, lead_id, expert_id, platform, scheduled_at, duration_minutes, timezone, meeting_url, status, reminder_sent, attendee_email, attendee_name, notes, admin_notes, confirmed_at, confirmed_by, created_at, updated_at`

// Store provides persistence for bookings. Every transition is a single
// conditional UPDATE guarded on the current status, so concurrent
// reschedulers and cancellers serialize on the database row.
type Store struct {
	db DB
}

// NewStore creates a new booking store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a new booking.
func (s *Store) Create(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = StatusScheduled
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (id, user_id, property_id, lead_id, expert_id, platform, scheduled_at, duration_minutes, timezone, meeting_url, status, reminder_sent, attendee_email, attendee_name, notes, admin_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		b.ID, b.UserID, b.PropertyID, b.LeadID, b.ExpertID, string(b.Platform),
		b.ScheduledAt, b.DurationMins, b.Timezone, b.MeetingURL, string(b.Status),
		b.ReminderSent, b.AttendeeEmail, b.AttendeeName, b.Notes, b.AdminNotes,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: create: %w", err)
	}
	return nil
}

// GetByID returns a booking or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("booking: get by id: %w", err)
	}
	defer rows.Close()
	bookings, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, ErrNotFound
	}
	return &bookings[0], nil
}

// ListByUser returns a user's bookings, newest tour first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY scheduled_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: list by user: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListByAgent returns an agent's bookings within [from, to) matching any of
// the given statuses.
func (s *Store) ListByAgent(ctx context.Context, agentID string, from, to time.Time, statuses []Status) ([]Booking, error) {
	statusStrs := make([]string, len(statuses))
	for i, st := range statuses {
		statusStrs[i] = string(st)
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE expert_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND status = ANY($4)
		ORDER BY scheduled_at ASC`, agentID, from, to, statusStrs)
	if err != nil {
		return nil, fmt.Errorf("booking: list by agent: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// Confirm transitions a booking from scheduled → confirmed. Returns false
// when no scheduled booking with the id exists.
func (s *Store) Confirm(ctx context.Context, id uuid.UUID, adminID, adminNotes string) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'confirmed', confirmed_at = $1, confirmed_by = $2, admin_notes = $3, updated_at = $1
		WHERE id = $4 AND status = 'scheduled'`, now, adminID, adminNotes, id)
	if err != nil {
		return false, fmt.Errorf("booking: confirm: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Reschedule moves a non-terminal booking to a new time, replaces the
// meeting link, and resets the reminder flag so a fresh reminder window
// applies.
func (s *Store) Reschedule(ctx context.Context, id uuid.UUID, newAt time.Time, meetingURL *string) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET scheduled_at = $1, meeting_url = $2, status = 'scheduled', reminder_sent = false, updated_at = $3
		WHERE id = $4 AND status IN ('scheduled', 'confirmed', 'rescheduled')`, newAt, meetingURL, now, id)
	if err != nil {
		return false, fmt.Errorf("booking: reschedule: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Cancel transitions any non-terminal booking → cancelled.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled', updated_at = $1
		WHERE id = $2 AND status NOT IN ('completed', 'cancelled')`, now, id)
	if err != nil {
		return false, fmt.Errorf("booking: cancel: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Complete transitions a booking → completed, valid from scheduled or
// confirmed.
func (s *Store) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'completed', updated_at = $1
		WHERE id = $2 AND status IN ('scheduled', 'confirmed')`, now, id)
	if err != nil {
		return false, fmt.Errorf("booking: complete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkReminderSent flips reminder_sent exactly once. The status guard means
// a booking rescheduled or cancelled mid-dispatch keeps its fresh flag.
func (s *Store) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET reminder_sent = true, updated_at = $1
		WHERE id = $2 AND status = 'scheduled' AND reminder_sent = false`, now, id)
	if err != nil {
		return false, fmt.Errorf("booking: mark reminder sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListReminderCandidates returns scheduled, unreminded bookings whose tour
// starts inside [windowStart, windowEnd).
func (s *Store) ListReminderCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'scheduled' AND reminder_sent = false
		  AND scheduled_at >= $1 AND scheduled_at < $2
		ORDER BY scheduled_at ASC`, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("booking: list reminder candidates: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// CountUnremindedBetween counts scheduled bookings inside [from, to) that
// never received a reminder. Used to surface reminders that slipped below
// the lookahead band.
func (s *Store) CountUnremindedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE status = 'scheduled' AND reminder_sent = false
		  AND scheduled_at >= $1 AND scheduled_at < $2`, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("booking: count unreminded: %w", err)
	}
	return count, nil
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		var b Booking
		var platform, status string
		err := rows.Scan(
			&b.ID, &b.UserID, &b.PropertyID, &b.LeadID, &b.ExpertID,
			&platform, &b.ScheduledAt, &b.DurationMins, &b.Timezone,
			&b.MeetingURL, &status, &b.ReminderSent,
			&b.AttendeeEmail, &b.AttendeeName, &b.Notes, &b.AdminNotes,
			&b.ConfirmedAt, &b.ConfirmedBy, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("booking: scan: %w", err)
		}
		b.Platform = Platform(platform)
		b.Status = Status(status)
		result = append(result, b)
	}
	return result, rows.Err()
}
