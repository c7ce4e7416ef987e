// internal/pkg/session/redis_store.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Getter is the part of a redis client the token store needs.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisProvider reads the token the auth layer stores under key.
type RedisProvider struct {
	client Getter
	key    string
}

func NewRedisProvider(client Getter, key string) *RedisProvider {
	return &RedisProvider{client: client, key: key}
}

func (p *RedisProvider) GetToken(ctx context.Context) (string, error) {
	token, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: key %s not set", ErrNoToken, p.key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token from redis: %w", err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
