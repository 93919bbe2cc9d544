package sellers

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
	listings map[uuid.UUID]*Listing
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{listings: make(map[uuid.UUID]*Listing)}
}

func (m *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Listing, int, error) {
	var out []Listing
	for _, l := range m.listings {
		if filters.Sector != "" && l.Sector != filters.Sector {
			continue
		}
		if filters.Status != "" && l.Status != filters.Status {
			continue
		}
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *l
	return &clone, nil
}

func (m *memoryRepo) Create(ctx context.Context, listing *Listing) error {
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	clone := *listing
	m.listings[listing.ID] = &clone
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, listing *Listing) error {
	if _, ok := m.listings[listing.ID]; !ok {
		return shared.ErrNotFound
	}
	listing.UpdatedAt = time.Now()
	clone := *listing
	m.listings[listing.ID] = &clone
	return nil
}

func (m *memoryRepo) ListedSince(ctx context.Context, since time.Time, limit int) ([]Listing, error) {
	var out []Listing
	for _, l := range m.listings {
		if l.Status == StatusListed && !l.UpdatedAt.Before(since) {
			out = append(out, *l)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

func ownerIdentity(ownerID uuid.UUID) *shared.Identity {
	return &shared.Identity{UserID: ownerID.String(), Role: "seller"}
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Sector: "textiles"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Name: "Looms Ltd"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Name: "Looms Ltd", Sector: "textiles", AskingPrice: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateNormalisesAndDefaults(t *testing.T) {
	inv := &countingInvalidator{}
	svc := NewService(newMemoryRepo(), nil, inv)

	listing, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Name:   "  Looms Ltd  ",
		Sector: " Textiles ",
		Region: "Odisha",
	})
	require.NoError(t, err)
	require.Equal(t, "Looms Ltd", listing.Name)
	require.Equal(t, "textiles", listing.Sector)
	require.Equal(t, "odisha", listing.Region)
	require.Equal(t, "INR", listing.Currency)
	require.Equal(t, StatusDraft, listing.Status)
	require.Equal(t, 1, inv.calls)
}

func TestTransitionStateMachine(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ownerID := uuid.New()
	caller := ownerIdentity(ownerID)

	listing, err := svc.Create(context.Background(), ownerID, CreateInput{Name: "Looms Ltd", Sector: "textiles"})
	require.NoError(t, err)

	// draft -> sold skips the listed state.
	_, err = svc.Transition(context.Background(), listing.ID, caller, StatusSold)
	require.ErrorIs(t, err, shared.ErrValidation)

	listed, err := svc.Transition(context.Background(), listing.ID, caller, StatusListed)
	require.NoError(t, err)
	require.Equal(t, StatusListed, listed.Status)

	sold, err := svc.Transition(context.Background(), listing.ID, caller, StatusSold)
	require.NoError(t, err)
	require.Equal(t, StatusSold, sold.Status)

	// Sold is terminal.
	_, err = svc.Transition(context.Background(), listing.ID, caller, StatusListed)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSuspendedRequiresAdminToRelist(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ownerID := uuid.New()
	caller := ownerIdentity(ownerID)

	listing, err := svc.Create(context.Background(), ownerID, CreateInput{Name: "Looms Ltd", Sector: "textiles"})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), listing.ID, caller, StatusListed)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), listing.ID, caller, StatusSuspended)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), listing.ID, caller, StatusListed)
	require.ErrorIs(t, err, shared.ErrForbidden)

	admin := &shared.Identity{UserID: uuid.NewString(), Role: "admin"}
	relisted, err := svc.Transition(context.Background(), listing.ID, admin, StatusListed)
	require.NoError(t, err)
	require.Equal(t, StatusListed, relisted.Status)
}

func TestUpdateRejectsStrangers(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ownerID := uuid.New()

	listing, err := svc.Create(context.Background(), ownerID, CreateInput{Name: "Looms Ltd", Sector: "textiles"})
	require.NoError(t, err)

	stranger := &shared.Identity{UserID: uuid.NewString(), Role: "seller"}
	_, err = svc.Update(context.Background(), listing.ID, stranger, CreateInput{Name: "Hijacked", Sector: "textiles"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Update(context.Background(), uuid.New(), ownerIdentity(ownerID), CreateInput{Name: "X", Sector: "textiles"})
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
