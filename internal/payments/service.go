package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/shared"
)

const idempotencyModule = "payments"

// IdempotencyKeys is the subset of shared.IdempotencyStore the service needs.
type IdempotencyKeys interface {
	CheckAndInsert(ctx context.Context, key, module, refID string) error
	Resolve(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key string) error
}

// CreateInput carries the fields accepted when initiating a payment.
type CreateInput struct {
	PayeeID  uuid.UUID
	Amount   int64
	Currency string
	Purpose  string
}

// Service wraps payment business rules.
type Service struct {
	repo Repository
	keys IdempotencyKeys
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, keys IdempotencyKeys) *Service {
	return &Service{repo: repo, keys: keys, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Create initiates a payment. The idempotency key makes retries safe: a
// replayed key returns the payment created by the first attempt.
func (s *Service) Create(ctx context.Context, payerID uuid.UUID, idempotencyKey string, input CreateInput) (*Payment, bool, error) {
	if idempotencyKey == "" {
		return nil, false, fmt.Errorf("%w: Idempotency-Key header required", shared.ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, false, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	switch input.Purpose {
	case PurposeListing, PurposeLoanEMI, PurposeSubscription:
	default:
		return nil, false, fmt.Errorf("%w: unknown purpose %q", shared.ErrValidation, input.Purpose)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}
	payment := &Payment{
		ID:        uuid.New(),
		Reference: NewReference(s.now()),
		PayerID:   payerID,
		PayeeID:   input.PayeeID,
		Amount:    input.Amount,
		Currency:  currency,
		Purpose:   input.Purpose,
		Status:    StatusInitiated,
	}

	err := s.keys.CheckAndInsert(ctx, idempotencyKey, idempotencyModule, payment.ID.String())
	if err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return s.replay(ctx, idempotencyKey)
		}
		return nil, false, err
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		// Roll the key back so the client can retry cleanly.
		_ = s.keys.Delete(ctx, idempotencyKey)
		return nil, false, err
	}
	return payment, false, nil
}

// ApplyEvent transitions a payment on a gateway callback. Terminal payments
// reject further events.
func (s *Service) ApplyEvent(ctx context.Context, reference, event string) (*Payment, error) {
	payment, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Terminal() {
		return nil, fmt.Errorf("%w: payment %s already %s", shared.ErrValidation, reference, payment.Status)
	}

	var status string
	switch event {
	case "captured", "settled":
		status = StatusSucceeded
	case "failed", "expired":
		status = StatusFailed
	default:
		return nil, fmt.Errorf("%w: unknown event %q", shared.ErrValidation, event)
	}

	now := s.now().UTC()
	var settledAt *time.Time
	if status == StatusSucceeded {
		settledAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, payment.ID, status, settledAt); err != nil {
		return nil, err
	}
	payment.Status = status
	payment.SettledAt = settledAt
	return payment, nil
}

// Get fetches a payment visible to the caller.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller *shared.Identity) (*Payment, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mayView(payment, caller) {
		return nil, shared.ErrForbidden
	}
	return payment, nil
}

// List returns payments where the caller is payer or payee; admins see all.
func (s *Service) List(ctx context.Context, filters ListFilters, caller *shared.Identity) ([]Payment, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if caller != nil && caller.Role != "admin" {
		id, err := uuid.Parse(caller.UserID)
		if err != nil {
			return nil, 0, shared.ErrUnauthorized
		}
		filters.Participant = &id
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) replay(ctx context.Context, key string) (*Payment, bool, error) {
	refID, err := s.keys.Resolve(ctx, key, idempotencyModule)
	if err != nil {
		return nil, false, err
	}
	id, err := uuid.Parse(refID)
	if err != nil {
		return nil, false, fmt.Errorf("payments: corrupt idempotency ref %q", refID)
	}
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return payment, true, nil
}

func mayView(p *Payment, caller *shared.Identity) bool {
	if caller == nil {
		return false
	}
	if caller.Role == "admin" {
		return true
	}
	return p.PayerID.String() == caller.UserID || p.PayeeID.String() == caller.UserID
}
