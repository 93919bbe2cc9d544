package gamification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists awarded events.
type Repository interface {
	Insert(ctx context.Context, event *Event) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error)
	TotalPoints(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, event *Event) error {
	event.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO gamification_events (id, user_id, event, points, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.UserID, event.Event, event.Points, event.CreatedAt)
	return err
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, event, points, created_at FROM gamification_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Event, &e.Points, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// TotalPoints recomputes a user's points from the event log. Used to reseed
// the leaderboard when Redis starts cold.
func (r *repository) TotalPoints(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM gamification_events WHERE user_id = $1`,
		userID).Scan(&total)
	return total, err
}
