package recommendations

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/profiles"
	"github.com/msmebazaar/platform/internal/sellers"
	"github.com/msmebazaar/platform/internal/shared"
)

type stubListings struct {
	listings []sellers.Listing
	calls    int
}

func (s *stubListings) List(ctx context.Context, filters sellers.ListFilters) ([]sellers.Listing, int, error) {
	s.calls++
	var out []sellers.Listing
	for _, l := range s.listings {
		if filters.Sector != "" && l.Sector != filters.Sector {
			continue
		}
		if filters.Region != "" && l.Region != filters.Region {
			continue
		}
		if filters.Status != "" && l.Status != filters.Status {
			continue
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

func (s *stubListings) ListedSince(ctx context.Context, since time.Time, limit int) ([]sellers.Listing, error) {
	s.calls++
	var out []sellers.Listing
	for _, l := range s.listings {
		if l.Status == sellers.StatusListed && !l.UpdatedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

type stubProfiles struct {
	profile *profiles.Profile
}

func (s *stubProfiles) Get(ctx context.Context, userID uuid.UUID) (*profiles.Profile, error) {
	if s.profile == nil {
		return nil, shared.ErrNotFound
	}
	return s.profile, nil
}

func listed(name, sector, region string) sellers.Listing {
	return sellers.Listing{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Name:      name,
		Sector:    sector,
		Region:    region,
		Currency:  "INR",
		Status:    sellers.StatusListed,
		UpdatedAt: time.Now(),
	}
}

func newTestService(t *testing.T, listings *stubListings, profileSource *stubProfiles) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(listings, profileSource, client, time.Minute)
}

func TestForUserPrefersSectorThenRegion(t *testing.T) {
	source := &stubListings{listings: []sellers.Listing{
		listed("Weave", "textiles", "Kerala"),
		listed("Spice", "food", "Maharashtra"),
		listed("Forge", "steel", "Gujarat"),
	}}
	prefs := &stubProfiles{profile: &profiles.Profile{
		Preferences: map[string]string{"sectors": "textiles", "regions": "Maharashtra"},
	}}
	svc := newTestService(t, source, prefs)

	recs, err := svc.ForUser(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "Weave", recs[0].Name)
	require.Equal(t, ReasonSector, recs[0].Reason)
	require.Equal(t, "Spice", recs[1].Name)
	require.Equal(t, ReasonRegion, recs[1].Reason)
	require.Equal(t, ReasonRecent, recs[2].Reason)
}

func TestForUserFallsBackToRecent(t *testing.T) {
	source := &stubListings{listings: []sellers.Listing{
		listed("Weave", "textiles", "Kerala"),
	}}
	svc := newTestService(t, source, &stubProfiles{})

	recs, err := svc.ForUser(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, ReasonRecent, recs[0].Reason)
}

func TestForUserSkipsOwnListings(t *testing.T) {
	owner := uuid.New()
	own := listed("Mine", "textiles", "Kerala")
	own.OwnerID = owner
	source := &stubListings{listings: []sellers.Listing{own}}
	svc := newTestService(t, source, &stubProfiles{})

	recs, err := svc.ForUser(context.Background(), owner, 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestForUserCachesUntilInvalidated(t *testing.T) {
	source := &stubListings{listings: []sellers.Listing{
		listed("Weave", "textiles", "Kerala"),
	}}
	svc := newTestService(t, source, &stubProfiles{})
	userID := uuid.New()

	_, err := svc.ForUser(context.Background(), userID, 10)
	require.NoError(t, err)
	calls := source.calls
	require.Positive(t, calls)

	_, err = svc.ForUser(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Equal(t, calls, source.calls)

	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.ForUser(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Greater(t, source.calls, calls)
}

func TestCountFor(t *testing.T) {
	source := &stubListings{listings: []sellers.Listing{
		listed("Weave", "textiles", "Kerala"),
		listed("Spice", "food", "Maharashtra"),
	}}
	svc := newTestService(t, source, &stubProfiles{})

	count, err := svc.CountFor(context.Background(), uuid.NewString())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = svc.CountFor(context.Background(), "not-a-uuid")
	require.Error(t, err)
}
