package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates the email/password combination is wrong
	// or the account has no local password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is temporarily locked after
	// repeated failures.
	ErrAccountLocked = errors.New("account locked")
	// ErrNoPassword indicates the account is external-identity-only.
	ErrNoPassword = errors.New("account has no password set")
	// ErrWrongPassword indicates the current password check failed during a
	// password change.
	ErrWrongPassword = errors.New("current password is incorrect")
	// ErrInvalidRefreshToken indicates the refresh token does not verify,
	// does not match what is on file, or nothing is on file.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrTokenVersionMismatch indicates the refresh token's version trails
	// the account's current token version.
	ErrTokenVersionMismatch = errors.New("token version mismatch")
	// ErrInvalidResetToken indicates the reset token is unknown or consumed.
	ErrInvalidResetToken = errors.New("invalid reset token")
	// ErrResetTokenExpired indicates the reset token is past its expiry.
	ErrResetTokenExpired = errors.New("reset token expired")
	// ErrAccountNotFound indicates the operation referenced a missing account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrValidationFailed indicates malformed input, rejected before any
	// persistence access.
	ErrValidationFailed = errors.New("validation failed")
	// ErrEmailTaken indicates the registration email is already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidAccessToken indicates the access token is malformed, expired,
	// or revoked via a token version bump.
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// CredentialsError is an ErrInvalidCredentials carrying the number of
// attempts left before the account locks.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (%d attempts remaining)", e.RemainingAttempts)
}

// Is makes errors.Is(err, ErrInvalidCredentials) match.
func (e *CredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// LockedError is an ErrAccountLocked carrying how long the caller must wait.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter)
}

// Is makes errors.Is(err, ErrAccountLocked) match.
func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// RetryAfterSeconds returns the wait rounded up to whole seconds, never
// negative.
func (e *LockedError) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	return secs
}
