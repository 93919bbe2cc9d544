package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/shared"
)

type memoryRepo struct {
	profiles map[uuid.UUID]*Profile
	getErr   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{profiles: make(map[uuid.UUID]*Profile)}
}

func (m *memoryRepo) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memoryRepo) Upsert(ctx context.Context, profile *Profile) error {
	profile.UpdatedAt = time.Now()
	clone := *profile
	m.profiles[profile.UserID] = &clone
	return nil
}

func (m *memoryRepo) ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, p := range m.profiles {
		if !p.UpdatedAt.Before(since) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type recordingEmitter struct {
	events []string
}

func (r *recordingEmitter) Award(ctx context.Context, userID, event string) error {
	r.events = append(r.events, event)
	return nil
}

type stubEngagement struct{}

func (stubEngagement) Standing(ctx context.Context, userID string) (int64, string, error) {
	return 120, "silver", nil
}

type stubRecs struct{}

func (stubRecs) CountFor(ctx context.Context, userID string) (int, error) {
	return 7, nil
}

func TestCompletionAwardsOnce(t *testing.T) {
	repo := newMemoryRepo()
	emitter := &recordingEmitter{}
	svc := NewService(repo, nil, nil, emitter)
	userID := uuid.New()

	partial := &Profile{UserID: userID, Phone: "9999999999"}
	_, err := svc.Upsert(context.Background(), partial)
	require.NoError(t, err)
	require.Empty(t, emitter.events)

	full := &Profile{UserID: userID, Phone: "9999999999", BusinessName: "Looms Ltd", City: "Cuttack", State: "Odisha"}
	_, err = svc.Upsert(context.Background(), full)
	require.NoError(t, err)
	require.Equal(t, []string{"profile_completed"}, emitter.events)

	// Saving an already complete profile does not award again.
	full.Address = "Main Road"
	_, err = svc.Upsert(context.Background(), full)
	require.NoError(t, err)
	require.Len(t, emitter.events, 1)
}

func TestSummaryAggregates(t *testing.T) {
	repo := newMemoryRepo()
	userID := uuid.New()
	repo.profiles[userID] = &Profile{UserID: userID, BusinessName: "Looms Ltd"}
	svc := NewService(repo, stubEngagement{}, stubRecs{}, nil)

	summary, err := svc.Summary(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, summary.Profile)
	require.Equal(t, int64(120), summary.Points)
	require.Equal(t, "silver", summary.Badge)
	require.Equal(t, 7, summary.Recommendations)
}

func TestSummaryToleratesMissingProfile(t *testing.T) {
	svc := NewService(newMemoryRepo(), stubEngagement{}, stubRecs{}, nil)

	summary, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, summary.Profile)
	require.Equal(t, int64(120), summary.Points)
}

func TestSummaryPropagatesStoreErrors(t *testing.T) {
	repo := newMemoryRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Summary(context.Background(), uuid.New())
	require.Error(t, err)
}
