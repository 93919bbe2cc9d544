package loans

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/shared"
)

type memoryRepo struct {
	apps  map[uuid.UUID]*Application
	nbfcs map[uuid.UUID]*NBFC
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{apps: make(map[uuid.UUID]*Application), nbfcs: make(map[uuid.UUID]*NBFC)}
}

func (m *memoryRepo) CreateApplication(ctx context.Context, app *Application) error {
	app.CreatedAt = time.Now()
	clone := *app
	m.apps[app.ID] = &clone
	return nil
}

func (m *memoryRepo) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	app, ok := m.apps[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *app
	return &clone, nil
}

func (m *memoryRepo) ListApplications(ctx context.Context, filters ListFilters) ([]Application, int, error) {
	var out []Application
	for _, app := range m.apps {
		if filters.BorrowerID != nil && app.BorrowerID != *filters.BorrowerID {
			continue
		}
		if filters.Status != "" && app.Status != filters.Status {
			continue
		}
		out = append(out, *app)
	}
	return out, len(out), nil
}

func (m *memoryRepo) UpdateApplication(ctx context.Context, app *Application) error {
	if _, ok := m.apps[app.ID]; !ok {
		return shared.ErrNotFound
	}
	clone := *app
	m.apps[app.ID] = &clone
	return nil
}

func (m *memoryRepo) CreateNBFC(ctx context.Context, nbfc *NBFC) error {
	nbfc.CreatedAt = time.Now()
	clone := *nbfc
	m.nbfcs[nbfc.ID] = &clone
	return nil
}

func (m *memoryRepo) GetNBFC(ctx context.Context, id uuid.UUID) (*NBFC, error) {
	nbfc, ok := m.nbfcs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *nbfc
	return &clone, nil
}

func (m *memoryRepo) ListNBFCs(ctx context.Context, activeOnly bool) ([]NBFC, error) {
	var out []NBFC
	for _, nbfc := range m.nbfcs {
		if activeOnly && !nbfc.Active {
			continue
		}
		out = append(out, *nbfc)
	}
	return out, nil
}

func (m *memoryRepo) UpdateNBFC(ctx context.Context, nbfc *NBFC) error {
	if _, ok := m.nbfcs[nbfc.ID]; !ok {
		return shared.ErrNotFound
	}
	clone := *nbfc
	m.nbfcs[nbfc.ID] = &clone
	return nil
}

func setup(t *testing.T) (*Service, *memoryRepo, *NBFC) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	nbfc, err := svc.CreateNBFC(context.Background(), &NBFC{Name: "Capital First", BaseRate: 14, MaxExposure: 50_000_00, Active: true})
	require.NoError(t, err)
	return svc, repo, nbfc
}

func TestApplyValidation(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Apply(context.Background(), uuid.New(), ApplyInput{Amount: 0, TenureMonths: 12})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Apply(context.Background(), uuid.New(), ApplyInput{Amount: 1000_00, TenureMonths: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	app, err := svc.Apply(context.Background(), uuid.New(), ApplyInput{Amount: 1000_00, TenureMonths: 12})
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, app.Status)
	require.Equal(t, "INR", app.Currency)
}

func TestAssignChecksNBFC(t *testing.T) {
	svc, _, nbfc := setup(t)
	app, err := svc.Apply(context.Background(), uuid.New(), ApplyInput{Amount: 10_000_00, TenureMonths: 24})
	require.NoError(t, err)

	// Over the exposure limit.
	big, err := svc.Apply(context.Background(), uuid.New(), ApplyInput{Amount: 99_000_00, TenureMonths: 24})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), big.ID, nbfc.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	assigned, err := svc.Assign(context.Background(), app.ID, nbfc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnderReview, assigned.Status)
	require.NotNil(t, assigned.NBFCID)

	// Cannot assign twice.
	_, err = svc.Assign(context.Background(), app.ID, nbfc.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDecisionLifecycle(t *testing.T) {
	svc, _, nbfc := setup(t)
	app, err := svc.Apply(context.Background(), uuid.New(), ApplyInput{Amount: 12_000_00, TenureMonths: 12})
	require.NoError(t, err)

	// Cannot approve before review.
	_, err = svc.Decide(context.Background(), app.ID, true)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Assign(context.Background(), app.ID, nbfc.ID)
	require.NoError(t, err)

	approved, err := svc.Decide(context.Background(), app.ID, true)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Greater(t, approved.EMI, int64(0))
	require.NotEmpty(t, approved.EMIDisplay)
	require.NotNil(t, approved.DecidedAt)

	disbursed, err := svc.Disburse(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDisbursed, disbursed.Status)

	// Terminal: no further decisions.
	_, err = svc.Decide(context.Background(), app.ID, false)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRejectedIsTerminal(t *testing.T) {
	svc, _, _ := setup(t)
	app, err := svc.Apply(context.Background(), uuid.New(), ApplyInput{Amount: 5_000_00, TenureMonths: 6})
	require.NoError(t, err)

	rejected, err := svc.Decide(context.Background(), app.ID, false)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)

	_, err = svc.Disburse(context.Background(), app.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestBorrowerListScopedToSelf(t *testing.T) {
	svc, _, _ := setup(t)
	mine := uuid.New()
	other := uuid.New()
	_, err := svc.Apply(context.Background(), mine, ApplyInput{Amount: 1_000_00, TenureMonths: 12})
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), other, ApplyInput{Amount: 2_000_00, TenureMonths: 12})
	require.NoError(t, err)

	caller := &shared.Identity{UserID: mine.String(), Role: "buyer"}
	apps, total, err := svc.List(context.Background(), ListFilters{}, caller)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, apps, 1)
	require.Equal(t, mine, apps[0].BorrowerID)
}

func TestComputeEMI(t *testing.T) {
	// 1,00,000.00 at 12% over 12 months: the standard reducing-balance EMI
	// is 8,884.88 per month.
	emi := ComputeEMI(100_000_00, 12, 12)
	require.InDelta(t, 888488, emi, 1)

	// Zero rate falls back to straight division.
	require.Equal(t, int64(100_000_00/12), ComputeEMI(100_000_00, 0, 12))
	require.Equal(t, int64(0), ComputeEMI(0, 12, 12))
}

func TestFormatAmountGrouping(t *testing.T) {
	formatted := FormatAmount(123_456_700, "INR")
	require.Contains(t, formatted, "INR")
	require.Contains(t, formatted, ".00")
}
