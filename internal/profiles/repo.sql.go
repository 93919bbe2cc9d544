package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msmebazaar/platform/internal/shared"
)

// Repository defines persistence operations for profiles.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
	ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var (
		p        Profile
		prefsRaw []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT user_id, phone, business_name, gst_number, address, city, state, pincode, preferences, updated_at FROM profiles WHERE user_id = $1`,
		userID).Scan(&p.UserID, &p.Phone, &p.BusinessName, &p.GSTNumber, &p.Address, &p.City, &p.State, &p.Pincode, &prefsRaw, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(prefsRaw) > 0 {
		if err := json.Unmarshal(prefsRaw, &p.Preferences); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *repository) Upsert(ctx context.Context, profile *Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	prefsRaw, err := json.Marshal(profile.Preferences)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO profiles (user_id, phone, business_name, gst_number, address, city, state, pincode, preferences, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			phone = EXCLUDED.phone,
			business_name = EXCLUDED.business_name,
			gst_number = EXCLUDED.gst_number,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			pincode = EXCLUDED.pincode,
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at`,
		profile.UserID, profile.Phone, profile.BusinessName, profile.GSTNumber, profile.Address,
		profile.City, profile.State, profile.Pincode, prefsRaw, profile.UpdatedAt)
	return err
}

// ActiveUserIDs lists users whose profiles were touched since the given time.
// The match sweep uses it to bound how many match sets get rebuilt.
func (r *repository) ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM profiles WHERE updated_at >= $1 ORDER BY updated_at DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
