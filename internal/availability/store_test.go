package availability

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

func TestStoreCreateWindow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO availability_windows").
		WithArgs(pgxmock.AnyArg(), "agent-1", 1, "09:00", "17:00", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	w := &Window{AgentID: "agent-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsActive: true}
	require.NoError(t, store.Create(context.Background(), w))
	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListActive(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "agent_id", "day_of_week", "start_time", "end_time", "is_active", "created_at", "updated_at"}).
		AddRow(id, "agent-1", 2, "09:00", "12:00", true, now, now)

	mock.ExpectQuery("SELECT (.+) FROM availability_windows").
		WithArgs("agent-1", 2).
		WillReturnRows(rows)

	windows, err := store.ListActive(context.Background(), "agent-1", 2)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, id, windows[0].ID)
	assert.Equal(t, "09:00", windows[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDeactivateMissingWindow(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE availability_windows").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.Deactivate(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
