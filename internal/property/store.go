package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a property id does not resolve.
var ErrNotFound = errors.New("property: not found")

// Property is the slice of the catalog the engine needs: a display title
// for meeting names and a slug for deep links in notifications.
type Property struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads property display data owned by the catalog side of the site.
type Store struct {
	db DB
}

// NewStore creates a property store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Lookup returns the property for id, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, id string) (*Property, error) {
	var p Property
	err := s.db.QueryRow(ctx, `
		SELECT id, title, slug
		FROM properties
		WHERE id = $1`, id).Scan(&p.ID, &p.Title, &p.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("property: lookup: %w", err)
	}
	return &p, nil
}
