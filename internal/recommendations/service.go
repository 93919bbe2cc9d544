package recommendations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/msmebazaar/platform/internal/profiles"
	"github.com/msmebazaar/platform/internal/sellers"
	"github.com/msmebazaar/platform/internal/shared"
)

const (
	cacheVersionKey = "recs:version"
	recentWindow    = 90 * 24 * time.Hour
	defaultCount    = 10
)

// ListingSource is the slice of the listing catalogue the recommender reads.
type ListingSource interface {
	List(ctx context.Context, filters sellers.ListFilters) ([]sellers.Listing, int, error)
	ListedSince(ctx context.Context, since time.Time, limit int) ([]sellers.Listing, error)
}

// ProfileSource resolves user preferences.
type ProfileSource interface {
	Get(ctx context.Context, userID uuid.UUID) (*profiles.Profile, error)
}

// Service suggests listings per user, cached in Redis with a TTL. A version
// counter shared across instances invalidates on catalogue writes.
type Service struct {
	listings ListingSource
	profiles ProfileSource
	redis    *redis.Client
	ttl      time.Duration
	now      func() time.Time
}

// NewService constructs a Service. The Redis client may be nil; results are
// then computed on every request.
func NewService(listings ListingSource, profileSource ProfileSource, client *redis.Client, ttl time.Duration) *Service {
	return &Service{listings: listings, profiles: profileSource, redis: client, ttl: ttl, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// ForUser returns listing recommendations for the user. Users without stored
// preferences get recently listed businesses.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Recommendation, error) {
	if limit <= 0 || limit > 50 {
		limit = defaultCount
	}

	key, err := s.cacheKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.fromCache(ctx, key); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	recs, err := s.compute(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, recs)
	return recs, nil
}

// CountFor reports how many recommendations are ready for a user. Feeds the
// profile summary.
func (s *Service) CountFor(ctx context.Context, userID string) (int, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return 0, fmt.Errorf("recommendations: bad user id %q", userID)
	}
	recs, err := s.ForUser(ctx, id, defaultCount)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Invalidate bumps the cache version so every cached set is recomputed.
// Satisfies the listing module's invalidation hook.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Incr(ctx, cacheVersionKey).Err()
}

func (s *Service) compute(ctx context.Context, userID uuid.UUID, limit int) ([]Recommendation, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var recs []Recommendation
	seen := make(map[uuid.UUID]bool)
	add := func(listings []sellers.Listing, reason string) {
		for _, l := range listings {
			if len(recs) >= limit || seen[l.ID] || l.OwnerID == userID {
				continue
			}
			seen[l.ID] = true
			recs = append(recs, Recommendation{
				ListingID:   l.ID,
				Name:        l.Name,
				Sector:      l.Sector,
				Region:      l.Region,
				AskingPrice: l.AskingPrice,
				Currency:    l.Currency,
				Reason:      reason,
			})
		}
	}

	if profile != nil {
		for _, sector := range splitPref(profile.Preferences["sectors"]) {
			listings, _, err := s.listings.List(ctx, sellers.ListFilters{
				Sector: sector,
				Status: sellers.StatusListed,
				Limit:  limit,
			})
			if err != nil {
				return nil, err
			}
			add(listings, ReasonSector)
		}
		for _, region := range splitPref(profile.Preferences["regions"]) {
			if len(recs) >= limit {
				break
			}
			listings, _, err := s.listings.List(ctx, sellers.ListFilters{
				Region: region,
				Status: sellers.StatusListed,
				Limit:  limit,
			})
			if err != nil {
				return nil, err
			}
			add(listings, ReasonRegion)
		}
	}

	if len(recs) < limit {
		recent, err := s.listings.ListedSince(ctx, s.now().Add(-recentWindow), limit)
		if err != nil {
			return nil, err
		}
		add(recent, ReasonRecent)
	}
	return recs, nil
}

func splitPref(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Service) cacheKey(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.redis == nil {
		return "recs:" + userID.String(), nil
	}
	ver, err := s.redis.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		ver = 1
		if err := s.redis.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}
	return "recs:" + userID.String() + ":" + strconv.FormatInt(ver, 10), nil
}

func (s *Service) fromCache(ctx context.Context, key string) ([]Recommendation, bool) {
	if s.redis == nil {
		return nil, false
	}
	payload, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var recs []Recommendation
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, false
	}
	return recs, true
}

func (s *Service) store(ctx context.Context, key string, recs []Recommendation) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return
	}
	_ = s.redis.Set(ctx, key, raw, s.ttl).Err()
}
