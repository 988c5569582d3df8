package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/okorelov/profile-auth/internal/repository"
)

const defaultGracePrefix = "auth:refresh_grace"

// RefreshGraceStore keeps the hash of the refresh token that was just
// rotated out. Redis TTL enforces the window, so expiry works identically
// across instances.
type RefreshGraceStore struct {
	client *red.Client
	prefix string
}

// NewRefreshGraceStore constructs the grace store helper.
func NewRefreshGraceStore(client *red.Client, keyPrefix string) *RefreshGraceStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultGracePrefix
	}

	return &RefreshGraceStore{client: client, prefix: prefix}
}

// Get returns the superseded token hash, or repository.ErrNotFound once the
// window has elapsed.
func (s *RefreshGraceStore) Get(ctx context.Context, accountID string) (string, error) {
	key, err := s.key(accountID)
	if err != nil {
		return "", err
	}

	result, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get grace slot: %w", err)
	}

	return result, nil
}

// Set stores the superseded token hash with the grace TTL, replacing any
// previous slot for the account.
func (s *RefreshGraceStore) Set(ctx context.Context, accountID string, tokenHash string, ttl time.Duration) error {
	key, err := s.key(accountID)
	if err != nil {
		return err
	}
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := s.client.Set(ctx, key, tokenHash, ttl).Err(); err != nil {
		return fmt.Errorf("redis set grace slot: %w", err)
	}

	return nil
}

// Delete clears the grace slot.
func (s *RefreshGraceStore) Delete(ctx context.Context, accountID string) error {
	key, err := s.key(accountID)
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete grace slot: %w", err)
	}

	return nil
}

func (s *RefreshGraceStore) key(accountID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}
	return fmt.Sprintf("%s:%s", s.prefix, accountID), nil
}
