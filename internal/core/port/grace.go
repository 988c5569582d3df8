package port

import (
	"context"
	"time"
)

// RefreshGraceStore retains the hash of the refresh token that was just
// rotated out, for a short window, keyed by account id. A client that lost a
// rotation race may present the superseded token once within the window and
// still succeed.
//
// Entries expire on read: Get returns repository.ErrNotFound once the TTL has
// elapsed, whether or not the backing store evicted the entry already. The
// in-process implementation is only valid for a single instance; a
// multi-instance deployment uses the Redis-backed one.
type RefreshGraceStore interface {
	Get(ctx context.Context, accountID string) (string, error)
	Set(ctx context.Context, accountID string, tokenHash string, ttl time.Duration) error
	Delete(ctx context.Context, accountID string) error
}
