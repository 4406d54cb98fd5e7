package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func bookingRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "property_id", "lead_id", "expert_id", "platform",
		"scheduled_at", "duration_minutes", "timezone", "meeting_url", "status",
		"reminder_sent", "attendee_email", "attendee_name", "notes", "admin_notes",
		"confirmed_at", "confirmed_by", "created_at", "updated_at",
	})
}

func addBookingRow(rows *pgxmock.Rows, id uuid.UUID, status string, at time.Time) *pgxmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(
		id, "user-1", "prop-1", (*string)(nil), (*string)(nil), "zoom",
		at, 30, "UTC", (*string)(nil), status,
		false, "ann@example.com", "Ann", "", "",
		(*time.Time)(nil), (*string)(nil), now, now,
	)
}

func TestStoreCreateAssignsIDAndTimestamps(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), "user-1", "prop-1", (*string)(nil), (*string)(nil), "zoom",
			pgxmock.AnyArg(), 30, "UTC", (*string)(nil), "scheduled", false,
			"ann@example.com", "Ann", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	b := &Booking{
		UserID:        "user-1",
		PropertyID:    "prop-1",
		Platform:      PlatformZoom,
		ScheduledAt:   time.Now().Add(48 * time.Hour).UTC(),
		DurationMins:  30,
		Timezone:      "UTC",
		AttendeeEmail: "ann@example.com",
		AttendeeName:  "Ann",
	}
	require.NoError(t, store.Create(context.Background(), b))

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.False(t, b.CreatedAt.IsZero())
	assert.Equal(t, StatusScheduled, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(id).
		WillReturnRows(bookingRows())

	_, err := store.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreConfirmGuardsOnScheduled(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE bookings").
		WithArgs(pgxmock.AnyArg(), "admin-1", "looks good", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.Confirm(context.Background(), id, "admin-1", "looks good")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second confirm matches no scheduled row.
	mock.ExpectExec("UPDATE bookings").
		WithArgs(pgxmock.AnyArg(), "admin-1", "", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err = store.Confirm(context.Background(), id, "admin-1", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRescheduleResetsReminder(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	newAt := time.Now().Add(96 * time.Hour).UTC()
	link := "https://zoom.us/j/123456789012?pwd=abcdefabcdef"

	mock.ExpectExec("UPDATE bookings").
		WithArgs(newAt, &link, pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.Reschedule(context.Background(), id, newAt, &link)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCancelTerminalRowUntouched(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE bookings").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkReminderSentOnce(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE bookings").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE bookings").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.MarkReminderSent(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkReminderSent(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListReminderCandidates(t *testing.T) {
	store, mock := newMockStore(t)
	windowStart := time.Now().Add(24 * time.Hour).UTC()
	windowEnd := windowStart.Add(time.Hour)
	id := uuid.New()

	rows := addBookingRow(bookingRows(), id, "scheduled", windowStart.Add(10*time.Minute))
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(windowStart, windowEnd).
		WillReturnRows(rows)

	got, err := store.ListReminderCandidates(context.Background(), windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, StatusScheduled, got[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListByAgentFiltersStatuses(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Now().UTC()
	to := from.AddDate(0, 0, 1)
	id := uuid.New()

	rows := addBookingRow(bookingRows(), id, "confirmed", from.Add(2*time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs("agent-1", from, to, []string{"scheduled", "confirmed"}).
		WillReturnRows(rows)

	got, err := store.ListByAgent(context.Background(), "agent-1", from, to,
		[]Status{StatusScheduled, StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusConfirmed, got[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCountUnremindedBetween(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Now().UTC()
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := store.CountUnremindedBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
