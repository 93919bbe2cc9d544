package txmatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/payments"
	"github.com/msmebazaar/platform/internal/shared"
)

// PaymentSource provides settled payments for a reconciliation window.
type PaymentSource interface {
	SettledBetween(ctx context.Context, from, to time.Time) ([]payments.Payment, error)
}

// ExpectationInput carries the fields accepted when registering an
// expectation.
type ExpectationInput struct {
	Reference string
	Kind      string
	UserID    uuid.UUID
	Amount    int64
	DueDate   time.Time
}

// Service runs payment reconciliation.
type Service struct {
	repo     Repository
	payments PaymentSource
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, source PaymentSource, opts Options, logger *slog.Logger) *Service {
	if opts.DateWindow <= 0 {
		opts = DefaultOptions()
	}
	return &Service{repo: repo, payments: source, opts: opts, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Expect registers an expectation for a future settlement.
func (s *Service) Expect(ctx context.Context, input ExpectationInput) (*Expectation, error) {
	if input.Reference == "" {
		return nil, fmt.Errorf("%w: reference required", shared.ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	switch input.Kind {
	case KindLoanEMI, KindListingSale:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", shared.ErrValidation, input.Kind)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date required", shared.ErrValidation)
	}

	exp := &Expectation{
		ID:        uuid.New(),
		Reference: input.Reference,
		Kind:      input.Kind,
		UserID:    input.UserID,
		Amount:    input.Amount,
		DueDate:   input.DueDate.UTC(),
	}
	if err := s.repo.InsertExpectation(ctx, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// Reconcile matches payments settled in [from, to) against open expectations
// and persists the outcome. Matched expectations are closed.
func (s *Service) Reconcile(ctx context.Context, from, to time.Time) (*Report, error) {
	settled, err := s.payments.SettledBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load settled payments: %w", err)
	}
	// Expectations due inside the window, padded so early settlements still
	// find their due date.
	open, err := s.repo.OpenExpectations(ctx, to.Add(s.opts.DateWindow))
	if err != nil {
		return nil, fmt.Errorf("load open expectations: %w", err)
	}

	report := Reconcile(settled, open, s.opts, s.now().UTC())
	if len(report.Matches) > 0 {
		if err := s.repo.InsertMatches(ctx, report.Matches); err != nil {
			return nil, fmt.Errorf("persist matches: %w", err)
		}
		ids := make([]uuid.UUID, len(report.Matches))
		for i, m := range report.Matches {
			ids[i] = m.ExpectationID
		}
		if err := s.repo.MarkMatched(ctx, ids); err != nil {
			return nil, fmt.Errorf("close expectations: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("reconciliation run",
			slog.Int("settled", len(settled)),
			slog.Int("matched", len(report.Matches)),
			slog.Int("unmatched_payments", len(report.UnmatchedPayments)),
			slog.Int("unmatched_expectations", len(report.UnmatchedExpectations)))
	}
	return &report, nil
}

// Matches lists reconciliation results since a point in time.
func (s *Service) Matches(ctx context.Context, since time.Time, limit int) ([]Match, error) {
	if since.IsZero() {
		since = s.now().Add(-30 * 24 * time.Hour)
	}
	return s.repo.MatchesSince(ctx, since, limit)
}
