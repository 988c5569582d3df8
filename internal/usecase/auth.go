package usecase

import (
	"context"
	"crypto/subtle"
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

const (
	defaultGraceWindow = 10 * time.Second

	reasonLogoutAll      = "logout_all"
	reasonPasswordChange = "password_change"
	reasonPasswordReset  = "password_reset"
)

// AuthService coordinates the session lifecycle: login, refresh rotation,
// logout, revocation, and external-identity login.
type AuthService struct {
	accounts    port.AccountRepository
	grace       port.RefreshGraceStore
	versions    port.TokenVersionCache
	events      port.EventPublisher
	issuer      *security.TokenIssuer
	policy      domain.LockoutPolicy
	logger      *zap.Logger
	now         func() time.Time
	graceWindow time.Duration
	versionTTL  time.Duration
}

// NewAuthService constructs an AuthService instance. The grace store is
// required; the version cache and event publisher are optional and degrade
// to repository lookups and no-ops respectively.
func NewAuthService(
	accounts port.AccountRepository,
	grace port.RefreshGraceStore,
	versions port.TokenVersionCache,
	events port.EventPublisher,
	issuer *security.TokenIssuer,
	policy domain.LockoutPolicy,
	logger *zap.Logger,
) (*AuthService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if grace == nil {
		return nil, fmt.Errorf("refresh grace store is required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if policy.Threshold <= 0 {
		policy = domain.DefaultLockoutPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		accounts:    accounts,
		grace:       grace,
		versions:    versions,
		events:      events,
		issuer:      issuer,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
		graceWindow: defaultGraceWindow,
		versionTTL:  2 * time.Minute,
	}, nil
}

// WithClock overrides the clock used by the service (tests).
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithGraceWindow overrides the refresh rotation grace window.
func (s *AuthService) WithGraceWindow(window time.Duration) {
	if window > 0 {
		s.graceWindow = window
	}
}

// WithVersionCacheTTL overrides the token version cache TTL.
func (s *AuthService) WithVersionCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.versionTTL = ttl
	}
}

// AccessTokenTTL exposes the configured access token lifetime.
func (s *AuthService) AccessTokenTTL() time.Duration {
	return s.issuer.AccessTokenTTL()
}

// TokenPair carries a freshly minted access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by Login and ExternalLogin. RememberMe is a
// pass-through signal for the caller's cookie policy; it is never stored.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	RememberMe   bool
	Account      domain.Account
}

// ExternalProfile is the pre-verified identity handed over by the external
// provider integration. The provider handshake itself happens upstream.
type ExternalProfile struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// Login authenticates an email/password pair. The lock check runs strictly
// before any credential inspection so a locked account answers identically
// whether or not the password is correct.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidationFailed)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	now := s.now().UTC()
	if account.IsLocked(now) {
		return nil, &LockedError{RetryAfter: account.LockedUntil.Sub(now)}
	}

	if !account.HasPassword() {
		// External-identity-only account; the password path is closed.
		return nil, ErrInvalidCredentials
	}

	if !security.VerifyPassword(password, *account.PasswordHash) {
		return nil, s.recordFailedAttempt(ctx, *account, now)
	}

	updated := account.WithSuccessfulLogin(now)

	pair, updated, err := s.issueTokens(updated)
	if err != nil {
		return nil, err
	}

	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("persist login: %w", err)
	}

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		RememberMe:   rememberMe,
		Account:      *stored,
	}, nil
}

// ExternalLogin signs in (or signs up) with a verified external identity
// profile. The lockout policy defends the password path only, so this always
// clears the failure counter.
func (s *AuthService) ExternalLogin(ctx context.Context, profile ExternalProfile) (*LoginResult, error) {
	externalID, err := requireID(profile.ExternalID, "external identity id")
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	account, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if account.ExternalIdentityID == nil {
			linked := account.WithExternalIdentity(externalID)
			account = &linked
		}
	case errors.Is(err, repository.ErrNotFound):
		created := domain.Account{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: strings.TrimSpace(profile.DisplayName),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		created = created.WithExternalIdentity(externalID)
		if err := s.accounts.Create(ctx, created); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		account = &created
	default:
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	updated := account.WithSuccessfulLogin(now)

	pair, updated, err := s.issueTokens(updated)
	if err != nil {
		return nil, err
	}

	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("persist login: %w", err)
	}

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      *stored,
	}, nil
}

// Refresh rotates the presented refresh token and issues a new token pair.
//
// The immediately-prior token is honored once within the grace window so a
// client that retried before seeing the previous rotation's response is not
// signed out; see the grace store contract.
func (s *AuthService) Refresh(ctx context.Context, presentedToken string) (*TokenPair, error) {
	presentedToken = strings.TrimSpace(presentedToken)
	if presentedToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrValidationFailed)
	}

	claims, err := s.issuer.VerifyRefresh(presentedToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	now := s.now().UTC()
	if account.RefreshTokenHash == nil || account.RefreshTokenExpiresAt == nil {
		return nil, ErrInvalidRefreshToken
	}
	if !account.RefreshTokenExpiresAt.After(now) {
		return nil, ErrInvalidRefreshToken
	}
	if claims.TokenVersion != account.TokenVersion {
		return nil, ErrTokenVersionMismatch
	}

	presentedHash := security.HashToken(presentedToken)
	if !hashEqual(presentedHash, *account.RefreshTokenHash) {
		graceHash, graceErr := s.grace.Get(ctx, account.ID)
		if graceErr != nil {
			if errors.Is(graceErr, repository.ErrNotFound) {
				return nil, ErrInvalidRefreshToken
			}
			return nil, fmt.Errorf("read grace slot: %w", graceErr)
		}
		if !hashEqual(presentedHash, graceHash) {
			return nil, ErrInvalidRefreshToken
		}
	}

	previousHash := *account.RefreshTokenHash

	pair, updated, err := s.issueTokens(*account)
	if err != nil {
		return nil, err
	}

	// The superseded token stays valid for one more grace window, then the
	// loser of a rotation race is out of luck.
	if err := s.grace.Set(ctx, account.ID, previousHash, s.graceWindow); err != nil {
		return nil, fmt.Errorf("write grace slot: %w", err)
	}

	if _, err := s.accounts.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("persist rotation: %w", err)
	}

	return &pair, nil
}

// Logout clears the refresh token for a single device session. Outstanding
// access tokens stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
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

	updated := account.WithoutRefreshToken()
	if _, err := s.accounts.Update(ctx, updated); err != nil {
		return fmt.Errorf("persist logout: %w", err)
	}

	if err := s.grace.Delete(ctx, account.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("clear grace slot failed", zap.String("account_id", account.ID), zap.Error(err))
	}

	return nil
}

// LogoutAll revokes every outstanding token for the account by bumping the
// token version. Access tokens self-invalidate on their next verification.
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) error {
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

	updated := account.WithRevokedTokens()
	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}

	s.invalidateVersion(ctx, stored.ID)
	if err := s.grace.Delete(ctx, stored.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("clear grace slot failed", zap.String("account_id", stored.ID), zap.Error(err))
	}

	s.publishTokensRevoked(ctx, *stored, reasonLogoutAll)

	return nil
}

// ParseAccessToken verifies an access token's signature, expiry, and token
// version against the account's current version. A stale version means the
// token was revoked.
func (s *AuthService) ParseAccessToken(ctx context.Context, token string) (*security.SessionClaims, error) {
	claims, err := s.issuer.VerifyAccess(token)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	current, err := s.currentTokenVersion(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	if claims.TokenVersion != current {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

// recordFailedAttempt persists the incremented failure counter and maps the
// outcome to the caller-facing failure: locked when the increment crossed the
// threshold, remaining-attempts otherwise.
func (s *AuthService) recordFailedAttempt(ctx context.Context, account domain.Account, now time.Time) error {
	updated := account.WithFailedAttempt(s.policy, now)

	stored, err := s.accounts.Update(ctx, updated)
	if err != nil {
		return fmt.Errorf("persist failed attempt: %w", err)
	}

	if stored.IsLocked(now) {
		s.publishAccountLocked(ctx, *stored, now)
		return &LockedError{RetryAfter: stored.LockedUntil.Sub(now)}
	}

	return &CredentialsError{RemainingAttempts: s.policy.RemainingAttempts(stored.FailedAttempts)}
}

// issueTokens mints a fresh pair at the account's current token version and
// returns the account with the new refresh hash applied.
func (s *AuthService) issueTokens(account domain.Account) (TokenPair, domain.Account, error) {
	accessToken, err := s.issuer.SignAccess(account.ID, account.TokenVersion)
	if err != nil {
		return TokenPair{}, account, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, expiresAt, err := s.issuer.SignRefresh(account.ID, account.TokenVersion)
	if err != nil {
		return TokenPair{}, account, fmt.Errorf("sign refresh token: %w", err)
	}

	account = account.WithRefreshToken(security.HashToken(refreshToken), expiresAt)

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, account, nil
}

func (s *AuthService) currentTokenVersion(ctx context.Context, accountID string) (int64, error) {
	if s.versions != nil {
		version, err := s.versions.GetTokenVersion(ctx, accountID)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("token version cache read failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrInvalidAccessToken
		}
		return 0, fmt.Errorf("lookup account: %w", err)
	}

	if s.versions != nil {
		if err := s.versions.SetTokenVersion(ctx, accountID, account.TokenVersion, s.versionTTL); err != nil {
			s.logger.Warn("token version cache write failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	return account.TokenVersion, nil
}

func (s *AuthService) invalidateVersion(ctx context.Context, accountID string) {
	if s.versions == nil {
		return
	}
	if err := s.versions.DeleteTokenVersion(ctx, accountID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("token version cache invalidation failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (s *AuthService) publishTokensRevoked(ctx context.Context, account domain.Account, reason string) {
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

func (s *AuthService) publishAccountLocked(ctx context.Context, account domain.Account, now time.Time) {
	if s.events == nil || account.LockedUntil == nil {
		return
	}

	event := domain.AccountLockedEvent{
		EventID:        uuid.NewString(),
		AccountID:      account.ID,
		LockedAt:       now,
		LockedUntil:    *account.LockedUntil,
		FailedAttempts: account.FailedAttempts,
	}

	if err := s.events.PublishAccountLocked(ctx, event); err != nil {
		s.logger.Warn("publish account locked failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func hashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
