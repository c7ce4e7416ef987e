package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unused-by-inspect"))
	require.NoError(t, err)
	return token
}

func TestInspect(t *testing.T) {
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	token := sign(t, Claims{
		IdentityID:     42,
		SessionPurpose: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   "user-42",
		},
	})

	claims, err := Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.IdentityID)
	assert.Equal(t, "user-42", claims.Subject)
	assert.True(t, claims.IsAccessToken())

	assert.False(t, claims.ExpiresWithin(exp.Add(-time.Hour), time.Minute))
	assert.True(t, claims.ExpiresWithin(exp.Add(-30*time.Second), time.Minute))
	assert.True(t, claims.ExpiresWithin(exp.Add(time.Second), 0))
}

func TestInspect_without_expiry(t *testing.T) {
	claims, err := Inspect(sign(t, Claims{SessionPurpose: "password_reset"}))
	require.NoError(t, err)
	assert.False(t, claims.ExpiresWithin(time.Now(), time.Hour))
	assert.False(t, claims.IsAccessToken())
}

func TestInspect_rejects_garbage(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	assert.Error(t, err)
}
