package mlmonitor

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msmebazaar/platform/internal/shared"
)

// Repository persists model evaluation snapshots.
type Repository interface {
	Insert(ctx context.Context, snapshot *Snapshot) error
	Latest(ctx context.Context, model string) (*Snapshot, error)
	BestAccuracy(ctx context.Context, model string) (float64, error)
	History(ctx context.Context, model string, limit int) ([]Snapshot, error)
	Models(ctx context.Context) ([]string, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, snapshot *Snapshot) error {
	snapshot.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO ml_snapshots (id, model, version, accuracy, drift, latency_ms, evaluated_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snapshot.ID, snapshot.Model, snapshot.Version, snapshot.Accuracy, snapshot.Drift, snapshot.LatencyMS, snapshot.EvaluatedAt, snapshot.CreatedAt)
	return err
}

func (r *repository) Latest(ctx context.Context, model string) (*Snapshot, error) {
	var s Snapshot
	err := r.db.QueryRow(ctx,
		`SELECT id, model, version, accuracy, drift, latency_ms, evaluated_at, created_at FROM ml_snapshots WHERE model = $1 ORDER BY evaluated_at DESC LIMIT 1`,
		model).Scan(&s.ID, &s.Model, &s.Version, &s.Accuracy, &s.Drift, &s.LatencyMS, &s.EvaluatedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) BestAccuracy(ctx context.Context, model string) (float64, error) {
	var best float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(accuracy), 0) FROM ml_snapshots WHERE model = $1`,
		model).Scan(&best)
	return best, err
}

func (r *repository) History(ctx context.Context, model string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, model, version, accuracy, drift, latency_ms, evaluated_at, created_at FROM ml_snapshots WHERE model = $1 ORDER BY evaluated_at DESC LIMIT $2`,
		model, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Model, &s.Version, &s.Accuracy, &s.Drift, &s.LatencyMS, &s.EvaluatedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func (r *repository) Models(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT model FROM ml_snapshots ORDER BY model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}
