package payments

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msmebazaar/platform/internal/shared"
)

// ListFilters narrows payment queries. Participant matches either side of a
// payment and is how non-admin callers are scoped.
type ListFilters struct {
	Participant *uuid.UUID
	PayerID     *uuid.UUID
	PayeeID     *uuid.UUID
	Status      string
	Purpose     string
	Page        int
	Limit       int
}

// Repository defines persistence operations for payments.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	List(ctx context.Context, filters ListFilters) ([]Payment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, settledAt *time.Time) error
	SettledBetween(ctx context.Context, from, to time.Time) ([]Payment, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const paymentColumns = `id, reference, payer_id, payee_id, amount, currency, purpose, status, created_at, settled_at`

func (r *repository) Create(ctx context.Context, payment *Payment) error {
	payment.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		payment.ID, payment.Reference, payment.PayerID, payment.PayeeID, payment.Amount,
		payment.Currency, payment.Purpose, payment.Status, payment.CreatedAt, payment.SettledAt)
	return err
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference))
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Payment, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Participant != nil {
		argCount++
		placeholder := `$` + strconv.Itoa(argCount)
		where += ` AND (payer_id = ` + placeholder + ` OR payee_id = ` + placeholder + `)`
		args = append(args, *filters.Participant)
	}
	if filters.PayerID != nil {
		argCount++
		where += ` AND payer_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.PayerID)
	}
	if filters.PayeeID != nil {
		argCount++
		where += ` AND payee_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.PayeeID)
	}
	if filters.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.Purpose != "" {
		argCount++
		where += ` AND purpose = $` + strconv.Itoa(argCount)
		args = append(args, filters.Purpose)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + paymentColumns + ` FROM payments` + where + ` ORDER BY created_at DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, settledAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE payments SET status=$1, settled_at=$2 WHERE id=$3`, status, settledAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SettledBetween returns succeeded payments in the window, used by the
// reconciliation job.
func (r *repository) SettledBetween(ctx context.Context, from, to time.Time) ([]Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = $1 AND settled_at >= $2 AND settled_at < $3 ORDER BY settled_at`,
		StatusSucceeded, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) scanOne(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := scanPayment(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPayment(row pgx.Row, p *Payment) error {
	return row.Scan(&p.ID, &p.Reference, &p.PayerID, &p.PayeeID, &p.Amount, &p.Currency,
		&p.Purpose, &p.Status, &p.CreatedAt, &p.SettledAt)
}
