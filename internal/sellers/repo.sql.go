package sellers

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

// Repository defines persistence operations for listings.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Listing, int, error)
	Get(ctx context.Context, id uuid.UUID) (*Listing, error)
	Create(ctx context.Context, listing *Listing) error
	Update(ctx context.Context, listing *Listing) error
	ListedSince(ctx context.Context, since time.Time, limit int) ([]Listing, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const listingColumns = `id, owner_id, name, sector, region, description, annual_revenue, asking_price, currency, status, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Listing, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	add := func(clause string, value any) {
		argCount++
		where += ` AND ` + clause + `$` + strconv.Itoa(argCount)
		args = append(args, value)
	}

	if filters.Sector != "" {
		add(`sector = `, filters.Sector)
	}
	if filters.Region != "" {
		add(`region = `, filters.Region)
	}
	if filters.Status != "" {
		add(`status = `, filters.Status)
	}
	if filters.OwnerID != nil {
		add(`owner_id = `, *filters.OwnerID)
	}
	if filters.MinPrice > 0 {
		add(`asking_price >= `, filters.MinPrice)
	}
	if filters.MaxPrice > 0 {
		add(`asking_price <= `, filters.MaxPrice)
	}
	if filters.Search != "" {
		argCount++
		ph := `$` + strconv.Itoa(argCount)
		where += ` AND (name ILIKE ` + ph + ` OR description ILIKE ` + ph + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + listingColumns + ` FROM listings` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
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

	var listings []Listing
	for rows.Next() {
		var l Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, 0, err
		}
		listings = append(listings, l)
	}
	return listings, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var l Listing
	err := scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id), &l)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *repository) Create(ctx context.Context, listing *Listing) error {
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	_, err := r.db.Exec(ctx,
		`INSERT INTO listings (`+listingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		listing.ID, listing.OwnerID, listing.Name, listing.Sector, listing.Region, listing.Description,
		listing.AnnualRevenue, listing.AskingPrice, listing.Currency, listing.Status, listing.CreatedAt, listing.UpdatedAt)
	return err
}

func (r *repository) Update(ctx context.Context, listing *Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE listings SET name=$1, sector=$2, region=$3, description=$4, annual_revenue=$5, asking_price=$6, currency=$7, status=$8, updated_at=$9 WHERE id=$10`,
		listing.Name, listing.Sector, listing.Region, listing.Description, listing.AnnualRevenue,
		listing.AskingPrice, listing.Currency, listing.Status, listing.UpdatedAt, listing.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListedSince returns recently listed businesses, newest first.
func (r *repository) ListedSince(ctx context.Context, since time.Time, limit int) ([]Listing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE status = $1 AND updated_at >= $2 ORDER BY updated_at DESC LIMIT $3`,
		StatusListed, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func scanListing(row pgx.Row, l *Listing) error {
	return row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Sector, &l.Region, &l.Description,
		&l.AnnualRevenue, &l.AskingPrice, &l.Currency, &l.Status, &l.CreatedAt, &l.UpdatedAt)
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "name " + dir
	case "asking_price":
		return "asking_price " + dir
	case "annual_revenue":
		return "annual_revenue " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "updated_at DESC"
	}
}
