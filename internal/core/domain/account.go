package domain

import "time"

// Account mirrors the persisted representation in the accounts table. It is
// the aggregate root for everything the authentication flows touch: the
// credential hash, the lockout counters, the refresh and reset token state,
// and the token version used for bulk revocation.
//
// Accounts are never mutated in place. Every state change goes through one of
// the With* transition methods below, each of which returns a modified copy so
// a transition is persisted all-or-nothing.
type Account struct {
	ID                    string
	Email                 string
	DisplayName           string
	PasswordHash          *string
	ExternalIdentityID    *string
	LastAuthenticatedAt   *time.Time
	RefreshTokenHash      *string
	RefreshTokenExpiresAt *time.Time
	ResetTokenHash        *string
	ResetTokenExpiresAt   *time.Time
	FailedAttempts        int
	LockedUntil           *time.Time
	TokenVersion          int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasPassword reports whether a local credential is set. Accounts created
// through an external identity provider have no password hash and cannot use
// the password login path.
func (a Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// IsLocked reports whether the account rejects authentication attempts at
// the supplied instant. The lock is evaluated lazily: an elapsed LockedUntil
// is simply ignored, never actively cleared.
func (a Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// WithFailedAttempt increments the consecutive-failure counter and, when the
// increment crosses the policy threshold, sets LockedUntil according to the
// escalation table.
func (a Account) WithFailedAttempt(policy LockoutPolicy, now time.Time) Account {
	a.FailedAttempts++
	if policy.ShouldLock(a.FailedAttempts) {
		until := now.Add(policy.LockDuration(a.FailedAttempts))
		a.LockedUntil = &until
	}
	return a
}

// WithSuccessfulLogin resets the failure counter, clears any lock, and
// records the authentication time. It applies to both password and
// external-identity logins.
func (a Account) WithSuccessfulLogin(now time.Time) Account {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	at := now
	a.LastAuthenticatedAt = &at
	return a
}

// WithRefreshToken stores the hash of the current refresh token together
// with its expiry.
func (a Account) WithRefreshToken(tokenHash string, expiresAt time.Time) Account {
	hash := tokenHash
	exp := expiresAt
	a.RefreshTokenHash = &hash
	a.RefreshTokenExpiresAt = &exp
	return a
}

// WithoutRefreshToken clears the persisted refresh token state.
func (a Account) WithoutRefreshToken() Account {
	a.RefreshTokenHash = nil
	a.RefreshTokenExpiresAt = nil
	return a
}

// WithRevokedTokens clears the refresh token and bumps the token version,
// invalidating every outstanding access and refresh token in one step.
func (a Account) WithRevokedTokens() Account {
	a = a.WithoutRefreshToken()
	a.TokenVersion++
	return a
}

// WithPassword replaces the credential hash. Bumping the token version is a
// separate decision left to the caller.
func (a Account) WithPassword(passwordHash string) Account {
	hash := passwordHash
	a.PasswordHash = &hash
	return a
}

// WithResetToken stores the hash of an outstanding password-reset token and
// its expiry, replacing any previous one.
func (a Account) WithResetToken(tokenHash string, expiresAt time.Time) Account {
	hash := tokenHash
	exp := expiresAt
	a.ResetTokenHash = &hash
	a.ResetTokenExpiresAt = &exp
	return a
}

// WithoutResetToken clears the reset token state. Reset tokens are
// single-use, so a successful consumption always goes through here.
func (a Account) WithoutResetToken() Account {
	a.ResetTokenHash = nil
	a.ResetTokenExpiresAt = nil
	return a
}

// WithExternalIdentity links the external identity provider id.
func (a Account) WithExternalIdentity(externalID string) Account {
	id := externalID
	a.ExternalIdentityID = &id
	return a
}

// WithDisplayName updates the profile display name.
func (a Account) WithDisplayName(name string) Account {
	a.DisplayName = name
	return a
}
