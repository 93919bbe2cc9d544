package txmatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msmebazaar/platform/internal/shared"
)

// Repository persists expectations and reconciliation results.
type Repository interface {
	InsertExpectation(ctx context.Context, exp *Expectation) error
	GetExpectation(ctx context.Context, id uuid.UUID) (*Expectation, error)
	OpenExpectations(ctx context.Context, asOf time.Time) ([]Expectation, error)
	MarkMatched(ctx context.Context, ids []uuid.UUID) error
	InsertMatches(ctx context.Context, matches []Match) error
	MatchesSince(ctx context.Context, since time.Time, limit int) ([]Match, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) InsertExpectation(ctx context.Context, exp *Expectation) error {
	exp.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO tx_expectations (id, reference, kind, user_id, amount, due_date, matched, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		exp.ID, exp.Reference, exp.Kind, exp.UserID, exp.Amount, exp.DueDate, exp.Matched, exp.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

func (r *repository) GetExpectation(ctx context.Context, id uuid.UUID) (*Expectation, error) {
	var exp Expectation
	err := r.db.QueryRow(ctx,
		`SELECT id, reference, kind, user_id, amount, due_date, matched, created_at FROM tx_expectations WHERE id = $1`,
		id).Scan(&exp.ID, &exp.Reference, &exp.Kind, &exp.UserID, &exp.Amount, &exp.DueDate, &exp.Matched, &exp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &exp, nil
}

// OpenExpectations returns unmatched expectations due on or before asOf.
func (r *repository) OpenExpectations(ctx context.Context, asOf time.Time) ([]Expectation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, reference, kind, user_id, amount, due_date, matched, created_at FROM tx_expectations WHERE matched = FALSE AND due_date <= $1 ORDER BY due_date`,
		asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exps []Expectation
	for rows.Next() {
		var exp Expectation
		if err := rows.Scan(&exp.ID, &exp.Reference, &exp.Kind, &exp.UserID, &exp.Amount, &exp.DueDate, &exp.Matched, &exp.CreatedAt); err != nil {
			return nil, err
		}
		exps = append(exps, exp)
	}
	return exps, rows.Err()
}

func (r *repository) MarkMatched(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `UPDATE tx_expectations SET matched = TRUE WHERE id = ANY($1)`, ids)
	return err
}

func (r *repository) InsertMatches(ctx context.Context, matches []Match) error {
	for _, m := range matches {
		_, err := r.db.Exec(ctx,
			`INSERT INTO tx_matches (id, payment_id, reference, expectation_id, rule, amount, run_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, m.PaymentID, m.Reference, m.ExpectationID, m.Rule, m.Amount, m.RunAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) MatchesSince(ctx context.Context, since time.Time, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, payment_id, reference, expectation_id, rule, amount, run_at FROM tx_matches WHERE run_at >= $1 ORDER BY run_at DESC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.PaymentID, &m.Reference, &m.ExpectationID, &m.Rule, &m.Amount, &m.RunAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
