package auth

import (
	"net/http"
	"strings"

	"github.com/msmebazaar/platform/internal/platform/httpx"
	"github.com/msmebazaar/platform/internal/shared"
)

// Middleware verifies bearer tokens and loads the caller identity into the
// request context. Other modules mount it in front of their routes.
type Middleware struct {
	Tokens *TokenIssuer
}

// RequireAuth rejects requests without a valid bearer token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.claimsFromRequest(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		identity := &shared.Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

// RequireRole ensures the authenticated caller has one of the given roles.
// It must be mounted behind RequireAuth.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if _, ok := allowed[identity.Role]; !ok && identity.Role != RoleAdmin {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) claimsFromRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, shared.ErrUnauthorized
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return nil, shared.ErrUnauthorized
	}
	return m.Tokens.Verify(strings.TrimSpace(raw))
}
