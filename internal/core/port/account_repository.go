package port

import (
	"context"

	"github.com/okorelov/profile-auth/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
//
// Update applies optimistic concurrency keyed on UpdatedAt: the write only
// succeeds when the stored row still carries the UpdatedAt the caller loaded,
// so concurrent transitions against the same account cannot silently clobber
// each other. A lost race surfaces as repository.ErrConflict.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, account domain.Account) (*domain.Account, error)
}
