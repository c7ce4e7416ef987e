// internal/pkg/jwt/claims.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the auth service's access-token claims the relay
// reads. The signature is checked by the push server, not here.
type Claims struct {
	IdentityID     int64  `json:"identity_id"`
	Device         string `json:"device,omitempty"`
	SessionPurpose string `json:"session_purpose,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes a token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// ExpiresWithin reports whether the token expires before now+skew. Tokens
// without an exp claim never expire.
func (c *Claims) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt.Time)
}

// IsAccessToken reports whether the token may open a push connection.
func (c *Claims) IsAccessToken() bool {
	return c.SessionPurpose == "" || c.SessionPurpose == "access"
}
