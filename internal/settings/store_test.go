package settings

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesOmitsMissingKeys(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"key", "value"}).
		AddRow("zoom_client_id", "abc123")

	mock.ExpectQuery("SELECT key, value").
		WithArgs([]string{"zoom_client_id", "zoom_client_secret"}).
		WillReturnRows(rows)

	store := NewStore(mock)
	values, err := store.Values(context.Background(), "zoom_client_id", "zoom_client_secret")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"zoom_client_id": "abc123"}, values)
	_, present := values["zoom_client_secret"]
	assert.False(t, present)
	assert.NoError(t, mock.ExpectationsWereMet())
}
