package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/core/port"
	"github.com/okorelov/profile-auth/internal/infra/security"
	"github.com/okorelov/profile-auth/internal/repository"
)

const registrationMethodPassword = "password"

// RegistrationService creates password-based accounts.
type RegistrationService struct {
	accounts  port.AccountRepository
	events    port.EventPublisher
	validator *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	accounts port.AccountRepository,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	log *zap.Logger,
) (*RegistrationService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &RegistrationService{
		accounts:  accounts,
		events:    events,
		validator: validator,
		logger:    log,
		now:       time.Now,
	}, nil
}

// WithClock overrides the clock used by the service (tests).
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register creates an account with an email/password credential. Uniqueness
// is enforced twice: a friendly precheck here, and the database constraint
// for the race the precheck cannot see.
func (s *RegistrationService) Register(ctx context.Context, email, password, displayName string) (*domain.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err.Error())
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	account = account.WithPassword(hash)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.publishRegistered(ctx, account, now)

	return &account, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account domain.Account, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.AccountRegisteredEvent{
		EventID:            uuid.NewString(),
		AccountID:          account.ID,
		Email:              account.Email,
		RegisteredAt:       at,
		RegistrationMethod: registrationMethodPassword,
	}

	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}
