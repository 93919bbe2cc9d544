package auth

import (
	"time"

	"github.com/google/uuid"
)

// Platform roles. A user carries exactly one role.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAgent  = "agent"
	RoleNBFC   = "nbfc"
	RoleAdmin  = "admin"
)

// ValidRole reports whether the given role is one the platform knows about.
func ValidRole(role string) bool {
	switch role {
	case RoleBuyer, RoleSeller, RoleAgent, RoleNBFC, RoleAdmin:
		return true
	}
	return false
}

// User represents an authenticated user account. PasswordHash is never
// serialized into API responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
