// internal/pkg/session/provider.go
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"notification-relay/internal/pkg/jwt"
)

var (
	ErrNoToken      = errors.New("no session token available")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrNoToken)
)

// Provider resolves the access token of the current session.
type Provider interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticProvider always returns the same token.
type StaticProvider string

func (p StaticProvider) GetToken(context.Context) (string, error) {
	token := strings.TrimSpace(string(p))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// FileProvider reads the token from a file on every call, so rotated tokens
// are picked up on the next connect.
type FileProvider struct {
	Path string
}

func (p FileProvider) GetToken(context.Context) (string, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s missing", ErrNoToken, p.Path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// ChainProvider returns the first token any provider yields.
type ChainProvider []Provider

func (c ChainProvider) GetToken(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c {
		token, err := p.GetToken(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return "", ErrNoToken
	}
	return "", fmt.Errorf("%w: %w", ErrNoToken, errors.Join(errs...))
}

// ExpiryGuard rejects JWTs that expire within Skew so the channel does not
// dial with a token the server would refuse. Opaque tokens pass through.
type ExpiryGuard struct {
	Next Provider
	Skew time.Duration
	Now  func() time.Time
}

func (g ExpiryGuard) GetToken(ctx context.Context) (string, error) {
	token, err := g.Next.GetToken(ctx)
	if err != nil {
		return "", err
	}

	claims, err := jwt.Inspect(token)
	if err != nil {
		return token, nil
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if claims.ExpiresWithin(now(), g.Skew) {
		return "", ErrTokenExpired
	}
	if !claims.IsAccessToken() {
		return "", fmt.Errorf("%w: %s token", ErrNoToken, claims.SessionPurpose)
	}
	return token, nil
}
