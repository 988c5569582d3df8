package domain

import (
	"testing"
	"time"
)

func TestAccount_FailedAttemptLocksAtThreshold(t *testing.T) {
	policy := DefaultLockoutPolicy()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	account := Account{ID: "acc-1", FailedAttempts: 3}

	account = account.WithFailedAttempt(policy, now)
	if account.FailedAttempts != 4 {
		t.Fatalf("expected 4 failures, got %d", account.FailedAttempts)
	}
	if account.LockedUntil != nil {
		t.Fatalf("expected no lock below threshold")
	}

	account = account.WithFailedAttempt(policy, now)
	if account.LockedUntil == nil {
		t.Fatalf("expected lock at threshold")
	}
	if want := now.Add(1 * time.Minute); !account.LockedUntil.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, account.LockedUntil)
	}
	if !account.IsLocked(now) {
		t.Fatalf("expected account to be locked")
	}
	if account.IsLocked(now.Add(2 * time.Minute)) {
		t.Fatalf("expected lock to lapse after duration")
	}
}

func TestAccount_SuccessfulLoginResetsState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)

	account := Account{ID: "acc-1", FailedAttempts: 7, LockedUntil: &until}
	updated := account.WithSuccessfulLogin(now)

	if updated.FailedAttempts != 0 {
		t.Fatalf("expected failure counter reset, got %d", updated.FailedAttempts)
	}
	if updated.LockedUntil != nil {
		t.Fatalf("expected lock cleared")
	}
	if updated.LastAuthenticatedAt == nil || !updated.LastAuthenticatedAt.Equal(now) {
		t.Fatalf("expected last authenticated at %v", now)
	}

	// Value receivers: the original must be untouched.
	if account.FailedAttempts != 7 {
		t.Fatalf("expected original account unchanged")
	}
}

func TestAccount_WithRevokedTokens(t *testing.T) {
	hash := "refresh-hash"
	exp := time.Now().Add(time.Hour)

	account := Account{ID: "acc-1", RefreshTokenHash: &hash, RefreshTokenExpiresAt: &exp, TokenVersion: 2}
	updated := account.WithRevokedTokens()

	if updated.TokenVersion != 3 {
		t.Fatalf("expected token version 3, got %d", updated.TokenVersion)
	}
	if updated.RefreshTokenHash != nil || updated.RefreshTokenExpiresAt != nil {
		t.Fatalf("expected refresh token state cleared")
	}
}

func TestAccount_HasPassword(t *testing.T) {
	if (Account{}).HasPassword() {
		t.Fatalf("expected no password on empty account")
	}

	empty := ""
	if (Account{PasswordHash: &empty}).HasPassword() {
		t.Fatalf("expected empty hash to count as no password")
	}

	hash := "argon2id$..."
	if !(Account{PasswordHash: &hash}).HasPassword() {
		t.Fatalf("expected password to be detected")
	}
}

func TestAccount_ResetTokenLifecycle(t *testing.T) {
	exp := time.Now().Add(time.Hour)

	account := Account{ID: "acc-1"}
	account = account.WithResetToken("token-hash", exp)

	if account.ResetTokenHash == nil || *account.ResetTokenHash != "token-hash" {
		t.Fatalf("expected reset token hash stored")
	}
	if account.ResetTokenExpiresAt == nil || !account.ResetTokenExpiresAt.Equal(exp) {
		t.Fatalf("expected reset token expiry stored")
	}

	account = account.WithoutResetToken()
	if account.ResetTokenHash != nil || account.ResetTokenExpiresAt != nil {
		t.Fatalf("expected reset token state cleared")
	}
}
