package matchmaking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/profiles"
	"github.com/msmebazaar/platform/internal/sellers"
	"github.com/msmebazaar/platform/internal/shared"
)

const (
	catalogueWindow = 180 * 24 * time.Hour
	catalogueLimit  = 500
	defaultTopN     = 10
)

// ListingSource provides the active catalogue to score against.
type ListingSource interface {
	ListedSince(ctx context.Context, since time.Time, limit int) ([]sellers.Listing, error)
}

// ProfileSource resolves buyer preferences.
type ProfileSource interface {
	Get(ctx context.Context, userID uuid.UUID) (*profiles.Profile, error)
}

// Service computes and caches buyer/seller matches.
type Service struct {
	listings ListingSource
	profiles ProfileSource
	cache    *Cache
	now      func() time.Time
}

// NewService constructs a Service. The cache may be nil; matches are then
// computed on every request.
func NewService(listings ListingSource, profileSource ProfileSource, cache *Cache) *Service {
	return &Service{listings: listings, profiles: profileSource, cache: cache, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Matches returns the top matches for the user, served from cache when warm.
// A user without stored preferences still gets recency-ordered listings.
func (s *Service) Matches(ctx context.Context, userID uuid.UUID, limit int) ([]Match, error) {
	if limit <= 0 || limit > 50 {
		limit = defaultTopN
	}
	key, err := s.cache.BuildKey(ctx, "match", userID.String())
	if err != nil {
		return nil, err
	}

	var matches []Match
	err = s.cache.FetchJSON(ctx, key, &matches, func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx, userID, limit)
	})
	if err != nil {
		return nil, err
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Rebuild recomputes and stores the match set for one user, bypassing any
// cached value. Used by the scheduled rebuild job.
func (s *Service) Rebuild(ctx context.Context, userID uuid.UUID) error {
	key, err := s.cache.BuildKey(ctx, "match", userID.String())
	if err != nil {
		return err
	}
	matches, err := s.compute(ctx, userID, defaultTopN)
	if err != nil {
		return err
	}
	return s.cache.StoreJSON(ctx, key, matches)
}

func (s *Service) compute(ctx context.Context, userID uuid.UUID, limit int) ([]Match, error) {
	var criteria Criteria
	profile, err := s.profiles.Get(ctx, userID)
	switch {
	case err == nil:
		criteria = CriteriaFromPreferences(profile.Preferences)
	case errors.Is(err, shared.ErrNotFound):
		// No profile yet; fall through with empty criteria.
	default:
		return nil, err
	}

	now := s.now()
	listings, err := s.listings.ListedSince(ctx, now.Add(-catalogueWindow), catalogueLimit)
	if err != nil {
		return nil, err
	}
	return Rank(criteria, listings, now, limit), nil
}
