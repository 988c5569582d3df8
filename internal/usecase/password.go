package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/core/port"
	"github.com/okorelov/profile-auth/internal/infra/logger"
	"github.com/okorelov/profile-auth/internal/infra/security"
	"github.com/okorelov/profile-auth/internal/repository"
)

const defaultResetTokenTTL = time.Hour

// PasswordService handles credential changes: authenticated password change
// and the forgot/reset flow. Every acceptance path bumps the token version so
// outstanding tokens die with the old password.
type PasswordService struct {
	accounts  port.AccountRepository
	versions  port.TokenVersionCache
	events    port.EventPublisher
	mailer    port.Mailer
	validator *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
	resetTTL  time.Duration
}

// NewPasswordService constructs a PasswordService instance. The mailer,
// version cache, and event publisher are optional; a nil mailer makes
// ForgotPassword a silent no-op delivery.
func NewPasswordService(
	accounts port.AccountRepository,
	versions port.TokenVersionCache,
	events port.EventPublisher,
	mailer port.Mailer,
	validator *security.PasswordValidator,
	log *zap.Logger,
) (*PasswordService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PasswordService{
		accounts:  accounts,
		versions:  versions,
		events:    events,
		mailer:    mailer,
		validator: validator,
		logger:    log,
		now:       time.Now,
		resetTTL:  defaultResetTokenTTL,
	}, nil
}

// WithClock overrides the clock used by the service (tests).
func (s *PasswordService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithResetTokenTTL overrides the reset token lifetime.
func (s *PasswordService) WithResetTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		s.resetTTL = ttl
	}
}

// ChangePassword replaces the password of an authenticated account after
// re-verifying the current one, then revokes every outstanding token.
func (s *PasswordService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	accountID, err := requireID(accountID, "account id")
	if err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if !account.HasPassword() {
		return ErrNoPassword
	}
	if !security.VerifyPassword(currentPassword, *account.PasswordHash) {
		return ErrWrongPassword
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, err.Error())
	}

	newHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	updated := account.WithPassword(newHash).WithRevokedTokens()
	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		return fmt.Errorf("persist password change: %w", err)
	}

	s.invalidateVersion(ctx, stored.ID)
	s.publishPasswordChanged(ctx, *stored, stored.ID, reasonPasswordChange)
	s.publishTokensRevoked(ctx, *stored, reasonPasswordChange)

	return nil
}

// ForgotPassword starts the reset flow for the given email. It always returns
// nil: whether the account exists, has no password, or the delivery failed is
// not observable to the caller. Internal failures are logged and swallowed.
func (s *PasswordService) ForgotPassword(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		// A malformed address cannot belong to any account; same answer.
		return nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("forgot password lookup failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		}
		return nil
	}

	if !account.HasPassword() {
		// External-identity-only account; there is no password to reset.
		return nil
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		s.logger.Error("reset token generation failed", zap.String("account_id", account.ID), zap.Error(err))
		return nil
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.resetTTL)

	updated := account.WithResetToken(security.HashToken(rawToken), expiresAt)
	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		s.logger.Error("persist reset token failed", zap.String("account_id", account.ID), zap.Error(err))
		return nil
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, stored.Email, stored.ID, rawToken, expiresAt); err != nil {
			s.logger.Error("reset email delivery failed",
				zap.String("account_id", stored.ID),
				zap.String("email", logger.MaskEmail(stored.Email)),
				zap.Error(err))
			return nil
		}
	}

	s.publishResetRequested(ctx, *stored, now, expiresAt)

	return nil
}

// ResetPassword completes the reset flow. The token is single use: acceptance
// clears it before anything else can observe it, and revokes every
// outstanding token by bumping the token version.
func (s *PasswordService) ResetPassword(ctx context.Context, accountID, rawToken, newPassword string) error {
	accountID, err := requireID(accountID, "account id")
	if err != nil {
		return err
	}
	if rawToken == "" {
		return ErrInvalidResetToken
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Indistinguishable from a bad token; no account probing here.
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if account.ResetTokenHash == nil || account.ResetTokenExpiresAt == nil {
		return ErrInvalidResetToken
	}
	if !hashEqual(security.HashToken(rawToken), *account.ResetTokenHash) {
		return ErrInvalidResetToken
	}

	now := s.now().UTC()
	if !account.ResetTokenExpiresAt.After(now) {
		return ErrResetTokenExpired
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, err.Error())
	}

	newHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	updated := account.WithPassword(newHash).WithoutResetToken().WithRevokedTokens()
	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		return fmt.Errorf("persist password reset: %w", err)
	}

	s.invalidateVersion(ctx, stored.ID)
	s.publishPasswordChanged(ctx, *stored, stored.ID, reasonPasswordReset)
	s.publishTokensRevoked(ctx, *stored, reasonPasswordReset)

	return nil
}

func (s *PasswordService) invalidateVersion(ctx context.Context, accountID string) {
	if s.versions == nil {
		return
	}
	if err := s.versions.DeleteTokenVersion(ctx, accountID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("token version cache invalidation failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (s *PasswordService) publishPasswordChanged(ctx context.Context, account domain.Account, changedBy, reason string) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		ChangedAt: s.now().UTC(),
		ChangedBy: changedBy,
		Reason:    reason,
	}

	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *PasswordService) publishTokensRevoked(ctx context.Context, account domain.Account, reason string) {
	if s.events == nil {
		return
	}

	event := domain.TokensRevokedEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		TokenVersion: account.TokenVersion,
		RevokedAt:    s.now().UTC(),
		Reason:       reason,
	}

	if err := s.events.PublishTokensRevoked(ctx, event); err != nil {
		s.logger.Warn("publish tokens revoked failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *PasswordService) publishResetRequested(ctx context.Context, account domain.Account, requestedAt, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		AccountID:         account.ID,
		RequestedAt:       requestedAt,
		MaskedDestination: logger.MaskEmail(account.Email),
		ExpiresAt:         expiresAt,
	}

	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish reset requested failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}
