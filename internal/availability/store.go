package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Window is a recurring weekly availability slot for one agent. StartTime
// and EndTime are HH:MM strings local to the agent's own timezone. Windows
// are created by agents or admins, never by the booking flow.
type Window struct {
	ID        uuid.UUID `json:"id"`
	AgentID   string    `json:"agent_id"`
	DayOfWeek int       `json:"day_of_week"` // 0 = Sunday … 6 = Saturday
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for availability windows.
type Store struct {
	db DB
}

// NewStore creates an availability store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a new availability window.
func (s *Store) Create(ctx context.Context, w *Window) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO availability_windows (id, agent_id, day_of_week, start_time, end_time, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.AgentID, w.DayOfWeek, w.StartTime, w.EndTime, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("availability: create window: %w", err)
	}
	return nil
}

// ListActive returns an agent's active windows for a day of week. Agents
// with no rows simply have no availability that day.
func (s *Store) ListActive(ctx context.Context, agentID string, dayOfWeek int) ([]Window, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, agent_id, day_of_week, start_time, end_time, is_active, created_at, updated_at
		FROM availability_windows
		WHERE agent_id = $1 AND day_of_week = $2 AND is_active = true
		ORDER BY start_time ASC`, agentID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("availability: list active: %w", err)
	}
	defer rows.Close()
	return scanWindows(rows)
}

// Deactivate marks a window inactive. Returns false when no window with
// the id exists.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE availability_windows SET is_active = false, updated_at = $1
		WHERE id = $2`, now, id)
	if err != nil {
		return false, fmt.Errorf("availability: deactivate: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanWindows(rows pgx.Rows) ([]Window, error) {
	var result []Window
	for rows.Next() {
		var w Window
		err := rows.Scan(
			&w.ID, &w.AgentID, &w.DayOfWeek, &w.StartTime, &w.EndTime,
			&w.IsActive, &w.CreatedAt, &w.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("availability: scan window: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
