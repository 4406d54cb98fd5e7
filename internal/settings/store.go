package settings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads named settings (provider account ids, client credentials)
// managed through the admin panel. A missing key is not an error; callers
// decide whether an absent value means "not configured".
type Store struct {
	db DB
}

// NewStore creates a settings store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Values returns the settings for the given keys. Keys with no row are
// omitted from the result map.
func (s *Store) Values(ctx context.Context, keys ...string) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT key, value
		FROM settings
		WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("settings: values: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("settings: scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
