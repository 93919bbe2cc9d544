package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/msmebazaar/platform/internal/shared"
)

// Notifier enqueues asynchronous follow-ups to auth events. Implementations
// must tolerate being nil-checked away in tests.
type Notifier interface {
	EnqueueWelcomeEmail(ctx context.Context, email, name string) error
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *TokenIssuer
	notifier Notifier
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, notifier Notifier) *Service {
	return &Service{repo: repo, tokens: tokens, notifier: notifier}
}

// Register creates a user account and issues its first access token.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !ValidRole(input.Role) {
		return nil, "", fmt.Errorf("%w: unknown role %q", shared.ErrValidation, input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("auth: hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, "", fmt.Errorf("%w: email already registered", shared.ErrDuplicate)
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}

	if s.notifier != nil {
		// Registration already committed; the welcome mail is best effort.
		_ = s.notifier.EnqueueWelcomeEmail(ctx, user.Email, user.FirstName)
	}
	return user, token, nil
}

// Login validates credentials and issues a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Profile resolves the user behind a verified token subject.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.FindByID(ctx, id)
}
