package loans

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/shared"
)

// ApplyInput carries the fields accepted when submitting an application.
type ApplyInput struct {
	Amount       int64
	Currency     string
	TenureMonths int
	Purpose      string
}

// Service wraps loan and NBFC business rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Apply submits a new loan application for the borrower.
func (s *Service) Apply(ctx context.Context, borrowerID uuid.UUID, input ApplyInput) (*Application, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	if input.TenureMonths < 3 || input.TenureMonths > 120 {
		return nil, fmt.Errorf("%w: tenure must be between 3 and 120 months", shared.ErrValidation)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}
	app := &Application{
		ID:           uuid.New(),
		BorrowerID:   borrowerID,
		Amount:       input.Amount,
		Currency:     currency,
		TenureMonths: input.TenureMonths,
		Purpose:      strings.TrimSpace(input.Purpose),
		Status:       StatusSubmitted,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "loan.applied", app.ID, map[string]any{"amount": app.Amount, "currency": currency})
	return app, nil
}

// Get fetches an application, restricted to its borrower, the assigned NBFC,
// and back-office roles.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller *shared.Identity) (*Application, error) {
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mayView(app, caller) {
		return nil, shared.ErrForbidden
	}
	decorate(app)
	return app, nil
}

// List returns applications visible to the caller.
func (s *Service) List(ctx context.Context, filters ListFilters, caller *shared.Identity) ([]Application, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	// Borrowers only ever see their own applications.
	if caller != nil && (caller.Role == "buyer" || caller.Role == "seller") {
		borrowerID, err := uuid.Parse(caller.UserID)
		if err != nil {
			return nil, 0, shared.ErrUnauthorized
		}
		filters.BorrowerID = &borrowerID
	}
	apps, total, err := s.repo.ListApplications(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	for i := range apps {
		decorate(&apps[i])
	}
	return apps, total, nil
}

// Assign routes a submitted application to an NBFC partner for review.
func (s *Service) Assign(ctx context.Context, id, nbfcID uuid.UUID) (*Application, error) {
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(app.Status, StatusUnderReview) {
		return nil, fmt.Errorf("%w: application is %s, not %s", shared.ErrValidation, app.Status, StatusSubmitted)
	}
	nbfc, err := s.repo.GetNBFC(ctx, nbfcID)
	if err != nil {
		return nil, err
	}
	if !nbfc.Active {
		return nil, fmt.Errorf("%w: nbfc %s is inactive", shared.ErrValidation, nbfc.Name)
	}
	if nbfc.MaxExposure > 0 && app.Amount > nbfc.MaxExposure {
		return nil, fmt.Errorf("%w: amount exceeds nbfc exposure limit", shared.ErrValidation)
	}

	app.NBFCID = &nbfc.ID
	app.Status = StatusUnderReview
	if err := s.repo.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "loan.assigned", app.ID, map[string]any{"nbfc": nbfc.ID.String()})
	decorate(app)
	return app, nil
}

// Decide approves or rejects an application under review. Approval computes
// the EMI from the assigned NBFC's base rate.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, approve bool) (*Application, error) {
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	target := StatusRejected
	if approve {
		target = StatusApproved
	}
	if !transitionAllowed(app.Status, target) {
		return nil, fmt.Errorf("%w: cannot move application from %s to %s", shared.ErrValidation, app.Status, target)
	}

	if approve {
		if app.NBFCID == nil {
			return nil, fmt.Errorf("%w: application has no assigned nbfc", shared.ErrValidation)
		}
		nbfc, err := s.repo.GetNBFC(ctx, *app.NBFCID)
		if err != nil {
			return nil, err
		}
		app.EMI = ComputeEMI(app.Amount, nbfc.BaseRate, app.TenureMonths)
	}

	now := time.Now().UTC()
	app.Status = target
	app.DecidedAt = &now
	if err := s.repo.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "loan.decided", app.ID, map[string]any{"status": target, "emi": app.EMI})
	decorate(app)
	return app, nil
}

// Disburse marks an approved application as paid out.
func (s *Service) Disburse(ctx context.Context, id uuid.UUID) (*Application, error) {
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(app.Status, StatusDisbursed) {
		return nil, fmt.Errorf("%w: cannot disburse a %s application", shared.ErrValidation, app.Status)
	}
	now := time.Now().UTC()
	app.Status = StatusDisbursed
	app.DisbursedAt = &now
	if err := s.repo.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "loan.disbursed", app.ID, nil)
	decorate(app)
	return app, nil
}

// CreateNBFC registers a lending partner.
func (s *Service) CreateNBFC(ctx context.Context, nbfc *NBFC) (*NBFC, error) {
	if strings.TrimSpace(nbfc.Name) == "" {
		return nil, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if nbfc.BaseRate < 0 || nbfc.BaseRate > 60 {
		return nil, fmt.Errorf("%w: base rate out of range", shared.ErrValidation)
	}
	nbfc.ID = uuid.New()
	if err := s.repo.CreateNBFC(ctx, nbfc); err != nil {
		return nil, err
	}
	return nbfc, nil
}

// ListNBFCs returns lending partners.
func (s *Service) ListNBFCs(ctx context.Context, activeOnly bool) ([]NBFC, error) {
	return s.repo.ListNBFCs(ctx, activeOnly)
}

// UpdateNBFC updates a lending partner.
func (s *Service) UpdateNBFC(ctx context.Context, nbfc *NBFC) error {
	if strings.TrimSpace(nbfc.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	return s.repo.UpdateNBFC(ctx, nbfc)
}

func mayView(app *Application, caller *shared.Identity) bool {
	if caller == nil {
		return false
	}
	switch caller.Role {
	case "admin", "agent":
		return true
	case "nbfc":
		return app.NBFCID != nil && app.NBFCID.String() == caller.UserID
	default:
		return app.BorrowerID.String() == caller.UserID
	}
}

func decorate(app *Application) {
	if app.EMI > 0 {
		app.EMIDisplay = FormatAmount(app.EMI, app.Currency)
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := ""
	if identity := shared.IdentityFromContext(ctx); identity != nil {
		actor = identity.UserID
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "loan_application",
		EntityID: id.String(),
		Meta:     meta,
	})
}
