package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/core/port"
	"github.com/okorelov/profile-auth/internal/repository"
)

const maxDisplayNameLength = 100

// ProfileService reads and updates non-credential account data.
type ProfileService struct {
	accounts port.AccountRepository
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(accounts port.AccountRepository) (*ProfileService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	return &ProfileService{accounts: accounts}, nil
}

// Get returns the account for the given id.
func (s *ProfileService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	accountID, err := requireID(accountID, "account id")
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	return account, nil
}

// UpdateDisplayName changes the profile display name.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, accountID, displayName string) (*domain.Account, error) {
	accountID, err := requireID(accountID, "account id")
	if err != nil {
		return nil, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrValidationFailed)
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name must be at most %d characters", ErrValidationFailed, maxDisplayNameLength)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	updated := account.WithDisplayName(displayName)
	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("persist profile update: %w", err)
	}

	return stored, nil
}
