package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/shared"
)

type memoryRepo struct {
	payments map[uuid.UUID]*Payment
	byRef    map[string]uuid.UUID
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{payments: make(map[uuid.UUID]*Payment), byRef: make(map[string]uuid.UUID)}
}

func (m *memoryRepo) Create(ctx context.Context, payment *Payment) error {
	payment.CreatedAt = time.Now()
	clone := *payment
	m.payments[payment.ID] = &clone
	m.byRef[payment.Reference] = payment.ID
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memoryRepo) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	id, ok := m.byRef[reference]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Payment, int, error) {
	var out []Payment
	for _, p := range m.payments {
		if filters.Participant != nil && p.PayerID != *filters.Participant && p.PayeeID != *filters.Participant {
			continue
		}
		if filters.PayerID != nil && p.PayerID != *filters.PayerID {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, settledAt *time.Time) error {
	p, ok := m.payments[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Status = status
	p.SettledAt = settledAt
	return nil
}

func (m *memoryRepo) SettledBetween(ctx context.Context, from, to time.Time) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.Status == StatusSucceeded && p.SettledAt != nil && !p.SettledAt.Before(from) && p.SettledAt.Before(to) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memoryKeys struct {
	refs map[string]string
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{refs: make(map[string]string)}
}

func (m *memoryKeys) CheckAndInsert(ctx context.Context, key, module, refID string) error {
	if _, ok := m.refs[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.refs[key] = refID
	return nil
}

func (m *memoryKeys) Resolve(ctx context.Context, key, module string) (string, error) {
	refID, ok := m.refs[key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return refID, nil
}

func (m *memoryKeys) Delete(ctx context.Context, key string) error {
	delete(m.refs, key)
	return nil
}

func validInput() CreateInput {
	return CreateInput{PayeeID: uuid.New(), Amount: 5000_00, Purpose: PurposeListing}
}

func TestCreateRequiresIdempotencyKey(t *testing.T) {
	svc := NewService(newMemoryRepo(), newMemoryKeys())

	_, _, err := svc.Create(context.Background(), uuid.New(), "", validInput())
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateReplaySameKey(t *testing.T) {
	svc := NewService(newMemoryRepo(), newMemoryKeys())
	payer := uuid.New()

	first, replayed, err := svc.Create(context.Background(), payer, "key-1", validInput())
	require.NoError(t, err)
	require.False(t, replayed)
	require.Equal(t, StatusInitiated, first.Status)
	require.Contains(t, first.Reference, "PAY-")

	second, replayed, err := svc.Create(context.Background(), payer, "key-1", validInput())
	require.NoError(t, err)
	require.True(t, replayed)
	require.Equal(t, first.ID, second.ID)

	// A fresh key produces a distinct payment.
	third, replayed, err := svc.Create(context.Background(), payer, "key-2", validInput())
	require.NoError(t, err)
	require.False(t, replayed)
	require.NotEqual(t, first.ID, third.ID)
}

func TestApplyEventLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo(), newMemoryKeys())

	payment, _, err := svc.Create(context.Background(), uuid.New(), "key-1", validInput())
	require.NoError(t, err)

	_, err = svc.ApplyEvent(context.Background(), payment.Reference, "refunded")
	require.ErrorIs(t, err, shared.ErrValidation)

	settled, err := svc.ApplyEvent(context.Background(), payment.Reference, "captured")
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, settled.Status)
	require.NotNil(t, settled.SettledAt)

	// Terminal payments reject further events.
	_, err = svc.ApplyEvent(context.Background(), payment.Reference, "failed")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.ApplyEvent(context.Background(), "PAY-UNKNOWN", "captured")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListScopedToCaller(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, newMemoryKeys())
	mine := uuid.New()
	other := uuid.New()

	_, _, err := svc.Create(context.Background(), mine, "key-1", validInput())
	require.NoError(t, err)
	_, _, err = svc.Create(context.Background(), other, "key-2", validInput())
	require.NoError(t, err)

	caller := &shared.Identity{UserID: mine.String(), Role: "buyer"}
	list, total, err := svc.List(context.Background(), ListFilters{}, caller)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, mine, list[0].PayerID)

	admin := &shared.Identity{UserID: uuid.NewString(), Role: "admin"}
	all, total, err := svc.List(context.Background(), ListFilters{}, admin)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)
}

func TestListIncludesPaymentsReceived(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, newMemoryKeys())
	buyer := uuid.New()
	seller := uuid.New()

	input := validInput()
	input.PayeeID = seller
	_, _, err := svc.Create(context.Background(), buyer, "key-1", input)
	require.NoError(t, err)

	payee := &shared.Identity{UserID: seller.String(), Role: "seller"}
	list, total, err := svc.List(context.Background(), ListFilters{}, payee)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, seller, list[0].PayeeID)

	stranger := &shared.Identity{UserID: uuid.NewString(), Role: "buyer"}
	none, total, err := svc.List(context.Background(), ListFilters{}, stranger)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, none)
}
