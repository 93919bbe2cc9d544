package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/shared"
	_ "github.com/msmebazaar/platform/testing"
)

type memoryRepo struct {
	byEmail map[string]*auth.User
	byID    map[uuid.UUID]*auth.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]*auth.User), byID: make(map[uuid.UUID]*auth.User)}
}

func (r *memoryRepo) Create(ctx context.Context, user *auth.User) error {
	if _, ok := r.byEmail[user.Email]; ok {
		return shared.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	clone := *user
	r.byEmail[user.Email] = &clone
	r.byID[user.ID] = &clone
	return nil
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) delete(id uuid.UUID) {
	if user, ok := r.byID[id]; ok {
		delete(r.byEmail, user.Email)
		delete(r.byID, id)
	}
}

func newTestRouter(t *testing.T) (chi.Router, *memoryRepo, *auth.TokenIssuer) {
	t.Helper()
	repo := newMemoryRepo()
	tokens, err := auth.NewTokenIssuer("test-secret", "msmebazaar", time.Hour)
	require.NoError(t, err)
	service := auth.NewService(repo, tokens, nil)
	handler := auth.NewHandler(nil, service, auth.Middleware{Tokens: tokens})
	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	return r, repo, tokens
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestRegisterLoginMeRoundtrip(t *testing.T) {
	router, _, _ := newTestRouter(t)

	res := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "pw123",
		"role":     "buyer",
	}, "")
	require.Equal(t, http.StatusOK, res.Code)

	var registered struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.Token)
	require.Equal(t, "a@b.com", registered.User["email"])
	require.NotContains(t, res.Body.String(), "password")
	require.NotContains(t, res.Body.String(), "hash")

	me := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, registered.Token)
	require.Equal(t, http.StatusOK, me.Code)
	var profile struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &profile))
	require.Equal(t, "a@b.com", profile.User["email"])
	require.Equal(t, "buyer", profile.User["role"])

	dup := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "pw123",
		"role":     "buyer",
	}, "")
	require.Equal(t, http.StatusBadRequest, dup.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _, _ := newTestRouter(t)

	res := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "user@test.local",
		"password": "correctpass",
		"role":     "seller",
	}, "")
	require.Equal(t, http.StatusOK, res.Code)

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@test.local",
		"password": "wrongpass",
	}, "")
	require.Equal(t, http.StatusUnauthorized, login.Code)

	unknown := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nobody@test.local",
		"password": "whatever",
	}, "")
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
}

func TestMeRejectsBadTokens(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	missing := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, missing.Code)

	malformed := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, "not.a.jwt")
	require.Equal(t, http.StatusUnauthorized, malformed.Code)

	// A structurally valid token signed with another secret must be rejected.
	other, err := auth.NewTokenIssuer("other-secret", "msmebazaar", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(&auth.User{ID: uuid.New(), Email: "x@y.com", Role: "buyer"})
	require.NoError(t, err)
	res := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, forged)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// Stale subject: token verifies but the user row is gone.
	register := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "gone@test.local",
		"password": "pw12345",
		"role":     "buyer",
	}, "")
	require.Equal(t, http.StatusOK, register.Code)
	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(register.Body.Bytes(), &registered))
	repo.delete(uuid.MustParse(registered.User.ID))

	stale := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, registered.Token)
	require.Equal(t, http.StatusNotFound, stale.Code)
}

func TestRegisterValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	res := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "pw123",
		"role":     "buyer",
	}, "")
	require.Equal(t, http.StatusBadRequest, res.Code)

	badRole := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "role@test.local",
		"password": "pw123",
		"role":     "superuser",
	}, "")
	require.Equal(t, http.StatusBadRequest, badRole.Code)

	raw := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, raw)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
