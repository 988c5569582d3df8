package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/okorelov/profile-auth/internal/repository"
)

const defaultTokenVersionPrefix = "auth:token_version"

// TokenVersionCache caches account token versions for low-latency access
// token verification.
type TokenVersionCache struct {
	client *red.Client
	prefix string
}

// NewTokenVersionCache constructs the token version cache helper.
func NewTokenVersionCache(client *red.Client, keyPrefix string) *TokenVersionCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultTokenVersionPrefix
	}

	return &TokenVersionCache{client: client, prefix: prefix}
}

// GetTokenVersion fetches the cached token version.
func (c *TokenVersionCache) GetTokenVersion(ctx context.Context, accountID string) (int64, error) {
	key, err := c.key(accountID)
	if err != nil {
		return 0, err
	}

	result, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("redis get token version: %w", err)
	}

	version, parseErr := strconv.ParseInt(result, 10, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("parse cached token version: %w", parseErr)
	}

	return version, nil
}

// SetTokenVersion stores the token version with TTL.
func (c *TokenVersionCache) SetTokenVersion(ctx context.Context, accountID string, version int64, ttl time.Duration) error {
	key, err := c.key(accountID)
	if err != nil {
		return err
	}
	if version < 0 {
		return fmt.Errorf("version must not be negative")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := c.client.Set(ctx, key, strconv.FormatInt(version, 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis set token version: %w", err)
	}

	return nil
}

// DeleteTokenVersion removes the cached entry.
func (c *TokenVersionCache) DeleteTokenVersion(ctx context.Context, accountID string) error {
	key, err := c.key(accountID)
	if err != nil {
		return err
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete token version: %w", err)
	}

	return nil
}

func (c *TokenVersionCache) key(accountID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}
	return fmt.Sprintf("%s:%s", c.prefix, accountID), nil
}
