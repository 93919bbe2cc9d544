package sellers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/shared"
)

// CacheInvalidator bumps derived caches (matches, recommendations) whenever
// the listing catalogue changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CreateInput carries the fields accepted when creating a listing.
type CreateInput struct {
	Name          string
	Sector        string
	Region        string
	Description   string
	AnnualRevenue int64
	AskingPrice   int64
	Currency      string
}

// Service wraps listing business rules.
type Service struct {
	repo         Repository
	audit        *shared.AuditLogger
	invalidators []CacheInvalidator
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger, invalidators ...CacheInvalidator) *Service {
	return &Service{repo: repo, audit: audit, invalidators: invalidators}
}

// List returns listings matching the filters plus the unpaginated total.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Listing, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	return s.repo.List(ctx, filters)
}

// Get fetches a single listing.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new draft listing owned by the caller.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*Listing, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	listing := &Listing{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(input.Name),
		Sector:        normalize(input.Sector),
		Region:        normalize(input.Region),
		Description:   strings.TrimSpace(input.Description),
		AnnualRevenue: input.AnnualRevenue,
		AskingPrice:   input.AskingPrice,
		Currency:      currencyOrDefault(input.Currency),
		Status:        StatusDraft,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "listing.created", listing.ID, map[string]any{"owner": ownerID.String()})
	s.invalidate(ctx)
	return listing, nil
}

// Update replaces mutable listing fields. Only the owner or an admin may call
// it; the handler enforces that, the service re-checks ownership.
func (s *Service) Update(ctx context.Context, id uuid.UUID, caller *shared.Identity, input CreateInput) (*Listing, error) {
	listing, err := s.authorizedListing(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	listing.Name = strings.TrimSpace(input.Name)
	listing.Sector = normalize(input.Sector)
	listing.Region = normalize(input.Region)
	listing.Description = strings.TrimSpace(input.Description)
	listing.AnnualRevenue = input.AnnualRevenue
	listing.AskingPrice = input.AskingPrice
	listing.Currency = currencyOrDefault(input.Currency)
	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "listing.updated", listing.ID, nil)
	s.invalidate(ctx)
	return listing, nil
}

// Transition moves a listing through its lifecycle.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, caller *shared.Identity, target string) (*Listing, error) {
	listing, err := s.authorizedListing(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(listing.Status, target) {
		return nil, fmt.Errorf("%w: cannot move listing from %s to %s", shared.ErrValidation, listing.Status, target)
	}
	// Re-listing a suspended business is an admin-only action.
	if listing.Status == StatusSuspended && caller != nil && caller.Role != "admin" {
		return nil, shared.ErrForbidden
	}
	from := listing.Status
	listing.Status = target
	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "listing.transitioned", listing.ID, map[string]any{"from": from, "to": target})
	s.invalidate(ctx)
	return listing, nil
}

// RecentlyListed exposes fresh listings for recommendation fallbacks.
func (s *Service) RecentlyListed(ctx context.Context, window time.Duration, limit int) ([]Listing, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListedSince(ctx, time.Now().Add(-window), limit)
}

func (s *Service) authorizedListing(ctx context.Context, id uuid.UUID, caller *shared.Identity) (*Listing, error) {
	listing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, shared.ErrUnauthorized
	}
	if caller.Role != "admin" && listing.OwnerID.String() != caller.UserID {
		return nil, shared.ErrForbidden
	}
	return listing, nil
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
		Entity:   "listing",
		EntityID: id.String(),
		Meta:     meta,
	})
}

func (s *Service) invalidate(ctx context.Context) {
	for _, inv := range s.invalidators {
		if inv != nil {
			_ = inv.Invalidate(ctx)
		}
	}
}

func validateInput(input CreateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if normalize(input.Sector) == "" {
		return fmt.Errorf("%w: sector required", shared.ErrValidation)
	}
	if input.AskingPrice < 0 || input.AnnualRevenue < 0 {
		return fmt.Errorf("%w: amounts must not be negative", shared.ErrValidation)
	}
	return nil
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "INR"
	}
	return c
}
