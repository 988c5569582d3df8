package memory

import (
	"context"
	"sync"
	"time"

	"github.com/okorelov/profile-auth/internal/repository"
)

type graceEntry struct {
	tokenHash string
	expiresAt time.Time
}

// RefreshGraceStore is an in-process grace slot map for single-instance
// deployments and tests. Entries expire lazily on read.
type RefreshGraceStore struct {
	mu      sync.Mutex
	entries map[string]graceEntry
	now     func() time.Time
}

// NewRefreshGraceStore constructs an empty in-memory grace store.
func NewRefreshGraceStore() *RefreshGraceStore {
	return &RefreshGraceStore{
		entries: make(map[string]graceEntry),
		now:     time.Now,
	}
}

// WithClock overrides the clock used for expiry checks (tests).
func (s *RefreshGraceStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Get returns the superseded token hash, or repository.ErrNotFound once the
// window has elapsed.
func (s *RefreshGraceStore) Get(_ context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[accountID]
	if !ok {
		return "", repository.ErrNotFound
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.entries, accountID)
		return "", repository.ErrNotFound
	}

	return entry.tokenHash, nil
}

// Set stores the superseded token hash, replacing any previous slot.
func (s *RefreshGraceStore) Set(_ context.Context, accountID string, tokenHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[accountID] = graceEntry{
		tokenHash: tokenHash,
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

// Delete clears the grace slot.
func (s *RefreshGraceStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, accountID)

	return nil
}
