package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/auth"
)

func TestTokenIssuerRequiresSecret(t *testing.T) {
	_, err := auth.NewTokenIssuer("", "msmebazaar", time.Hour)
	require.Error(t, err)
}

func TestTokenRoundtripClaims(t *testing.T) {
	tokens, err := auth.NewTokenIssuer("secret", "msmebazaar", 24*time.Hour)
	require.NoError(t, err)

	user := &auth.User{ID: uuid.New(), Email: "claims@test.local", Role: auth.RoleNBFC}
	signed, err := tokens.Issue(user)
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, auth.RoleNBFC, claims.Role)
	require.Equal(t, user.ID.String(), claims.Subject)
}

func TestExpiredTokenRejected(t *testing.T) {
	tokens, err := auth.NewTokenIssuer("secret", "msmebazaar", time.Minute)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	tokens.WithNow(func() time.Time { return past })
	signed, err := tokens.Issue(&auth.User{ID: uuid.New(), Email: "old@test.local", Role: auth.RoleBuyer})
	require.NoError(t, err)

	tokens.WithNow(time.Now)
	_, err = tokens.Verify(signed)
	require.Error(t, err)
}

func TestWrongIssuerRejected(t *testing.T) {
	minted, err := auth.NewTokenIssuer("secret", "someone-else", time.Hour)
	require.NoError(t, err)
	signed, err := minted.Issue(&auth.User{ID: uuid.New(), Email: "iss@test.local", Role: auth.RoleBuyer})
	require.NoError(t, err)

	tokens, err := auth.NewTokenIssuer("secret", "msmebazaar", time.Hour)
	require.NoError(t, err)
	_, err = tokens.Verify(signed)
	require.Error(t, err)
}
