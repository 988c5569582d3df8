package port

import (
	"context"
	"time"
)

// TokenVersionCache exposes cache helpers for account token version lookups.
// Access token verification reads the current version on every request; the
// cache keeps that off the primary store. Entries carry a TTL so a stale
// version self-heals even if an invalidation is missed.
type TokenVersionCache interface {
	GetTokenVersion(ctx context.Context, accountID string) (int64, error)
	SetTokenVersion(ctx context.Context, accountID string, version int64, ttl time.Duration) error
	DeleteTokenVersion(ctx context.Context, accountID string) error
}
