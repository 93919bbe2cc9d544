package loans

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

// ListFilters narrows application queries.
type ListFilters struct {
	BorrowerID *uuid.UUID
	NBFCID     *uuid.UUID
	Status     string
	Page       int
	Limit      int
}

// Repository defines persistence operations for the loan module.
type Repository interface {
	CreateApplication(ctx context.Context, app *Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*Application, error)
	ListApplications(ctx context.Context, filters ListFilters) ([]Application, int, error)
	UpdateApplication(ctx context.Context, app *Application) error

	CreateNBFC(ctx context.Context, nbfc *NBFC) error
	GetNBFC(ctx context.Context, id uuid.UUID) (*NBFC, error)
	ListNBFCs(ctx context.Context, activeOnly bool) ([]NBFC, error)
	UpdateNBFC(ctx context.Context, nbfc *NBFC) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const appColumns = `id, borrower_id, nbfc_id, amount, currency, tenure_months, purpose, status, emi, created_at, decided_at, disbursed_at`

func (r *repository) CreateApplication(ctx context.Context, app *Application) error {
	app.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO loan_applications (`+appColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		app.ID, app.BorrowerID, app.NBFCID, app.Amount, app.Currency, app.TenureMonths,
		app.Purpose, app.Status, app.EMI, app.CreatedAt, app.DecidedAt, app.DisbursedAt)
	return err
}

func (r *repository) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	var app Application
	err := scanApplication(r.db.QueryRow(ctx, `SELECT `+appColumns+` FROM loan_applications WHERE id = $1`, id), &app)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *repository) ListApplications(ctx context.Context, filters ListFilters) ([]Application, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.BorrowerID != nil {
		argCount++
		where += ` AND borrower_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.BorrowerID)
	}
	if filters.NBFCID != nil {
		argCount++
		where += ` AND nbfc_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.NBFCID)
	}
	if filters.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM loan_applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + appColumns + ` FROM loan_applications` + where + ` ORDER BY created_at DESC`
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

	var apps []Application
	for rows.Next() {
		var app Application
		if err := scanApplication(rows, &app); err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	return apps, total, rows.Err()
}

func (r *repository) UpdateApplication(ctx context.Context, app *Application) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loan_applications SET nbfc_id=$1, status=$2, emi=$3, decided_at=$4, disbursed_at=$5 WHERE id=$6`,
		app.NBFCID, app.Status, app.EMI, app.DecidedAt, app.DisbursedAt, app.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CreateNBFC(ctx context.Context, nbfc *NBFC) error {
	nbfc.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO nbfc_partners (id, name, base_rate, max_exposure, active, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		nbfc.ID, nbfc.Name, nbfc.BaseRate, nbfc.MaxExposure, nbfc.Active, nbfc.CreatedAt)
	return err
}

func (r *repository) GetNBFC(ctx context.Context, id uuid.UUID) (*NBFC, error) {
	var nbfc NBFC
	err := r.db.QueryRow(ctx,
		`SELECT id, name, base_rate, max_exposure, active, created_at FROM nbfc_partners WHERE id = $1`, id).
		Scan(&nbfc.ID, &nbfc.Name, &nbfc.BaseRate, &nbfc.MaxExposure, &nbfc.Active, &nbfc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &nbfc, nil
}

func (r *repository) ListNBFCs(ctx context.Context, activeOnly bool) ([]NBFC, error) {
	query := `SELECT id, name, base_rate, max_exposure, active, created_at FROM nbfc_partners`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nbfcs []NBFC
	for rows.Next() {
		var nbfc NBFC
		if err := rows.Scan(&nbfc.ID, &nbfc.Name, &nbfc.BaseRate, &nbfc.MaxExposure, &nbfc.Active, &nbfc.CreatedAt); err != nil {
			return nil, err
		}
		nbfcs = append(nbfcs, nbfc)
	}
	return nbfcs, rows.Err()
}

func (r *repository) UpdateNBFC(ctx context.Context, nbfc *NBFC) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE nbfc_partners SET name=$1, base_rate=$2, max_exposure=$3, active=$4 WHERE id=$5`,
		nbfc.Name, nbfc.BaseRate, nbfc.MaxExposure, nbfc.Active, nbfc.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanApplication(row pgx.Row, app *Application) error {
	return row.Scan(&app.ID, &app.BorrowerID, &app.NBFCID, &app.Amount, &app.Currency, &app.TenureMonths,
		&app.Purpose, &app.Status, &app.EMI, &app.CreatedAt, &app.DecidedAt, &app.DisbursedAt)
}
