// Package cache holds the redis backed token lookup cache.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "accounts:token:"
	revokedMarker  = "revoked"
)

// TokenCache maps token keys to user ids in redis.
type TokenCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewTokenCache(client redis.UniversalClient, ttl time.Duration) *TokenCache {
	return &TokenCache{client: client, ttl: ttl}
}

func (c *TokenCache) Get(ctx context.Context, key string) (uint, bool, error) {
	val, err := c.client.Get(ctx, tokenKeyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get token from cache: %w", err)
	}

	if val == revokedMarker {
		return 0, true, nil
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cached user id %q: %w", val, err)
	}
	return uint(id), true, nil
}

// Set caches key for userID unless key already has an entry, so a lookup
// that raced a reset cannot overwrite the revocation marker.
func (c *TokenCache) Set(ctx context.Context, key string, userID uint) error {
	if err := c.client.SetNX(ctx, tokenKeyPrefix+key, strconv.FormatUint(uint64(userID), 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// Revoke replaces any entry for key with a marker that Get reports as a zero
// user id. The marker outlives every entry written before it.
func (c *TokenCache) Revoke(ctx context.Context, key string) error {
	if err := c.client.Set(ctx, tokenKeyPrefix+key, revokedMarker, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
