package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okorelov/profile-auth/internal/infra/security"
)

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")

	result, err := f.service.Login(ctx, "Alice@Example.COM", "S3cure-pass!word", true)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}
	if !result.RememberMe {
		t.Fatal("expected rememberMe to pass through")
	}

	stored, err := f.accounts.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if stored.RefreshTokenHash == nil {
		t.Fatal("expected refresh token hash to be persisted")
	}
	if *stored.RefreshTokenHash != security.HashToken(result.RefreshToken) {
		t.Fatal("persisted hash does not match the issued refresh token")
	}
	if stored.LastAuthenticatedAt == nil {
		t.Fatal("expected last authenticated timestamp")
	}
}

func TestLoginWrongPasswordCountsDown(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")

	_, err := f.service.Login(ctx, "alice@example.com", "not-the-password", false)

	var credErr *CredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialsError, got %v", err)
	}
	if credErr.RemainingAttempts != 4 {
		t.Fatalf("RemainingAttempts = %d, want 4", credErr.RemainingAttempts)
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("expected error to match ErrInvalidCredentials")
	}

	stored, _ := f.accounts.GetByEmail(ctx, "alice@example.com")
	if stored.FailedAttempts != 1 {
		t.Fatalf("FailedAttempts = %d, want 1", stored.FailedAttempts)
	}
}

func TestLoginLocksAtThreshold(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")

	var err error
	for i := 0; i < 5; i++ {
		_, err = f.service.Login(ctx, "alice@example.com", "not-the-password", false)
	}

	var lockedErr *LockedError
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected LockedError on the fifth failure, got %v", err)
	}
	if lockedErr.RetryAfter != time.Minute {
		t.Fatalf("RetryAfter = %s, want 1m", lockedErr.RetryAfter)
	}
	if len(f.events.locked) != 1 {
		t.Fatalf("expected one lock event, got %d", len(f.events.locked))
	}

	// While locked, even the correct password is refused with the same answer.
	_, err = f.service.Login(ctx, "alice@example.com", "S3cure-pass!word", false)
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected LockedError while locked, got %v", err)
	}

	// The failure counter must not grow during the lock.
	stored, _ := f.accounts.GetByEmail(ctx, "alice@example.com")
	if stored.FailedAttempts != 5 {
		t.Fatalf("FailedAttempts = %d, want 5", stored.FailedAttempts)
	}
}

func TestLoginAfterLockLapses(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")

	for i := 0; i < 5; i++ {
		f.service.Login(ctx, "alice@example.com", "not-the-password", false)
	}

	f.clock.Advance(time.Minute + time.Second)

	result, err := f.service.Login(ctx, "alice@example.com", "S3cure-pass!word", false)
	if err != nil {
		t.Fatalf("Login after lock lapse returned error: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected a new access token")
	}

	stored, _ := f.accounts.GetByEmail(ctx, "alice@example.com")
	if stored.FailedAttempts != 0 {
		t.Fatalf("FailedAttempts = %d, want 0 after successful login", stored.FailedAttempts)
	}
	if stored.LockedUntil != nil {
		t.Fatal("expected lock to be cleared")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), "nobody@example.com", "whatever", false)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	var credErr *CredentialsError
	if errors.As(err, &credErr) {
		t.Fatal("unknown email must not leak a remaining-attempts counter")
	}
}

func TestLoginExternalOnlyAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.service.ExternalLogin(ctx, ExternalProfile{
		ExternalID:  "ext-123",
		Email:       "bob@example.com",
		DisplayName: "Bob",
	})
	if err != nil {
		t.Fatalf("ExternalLogin returned error: %v", err)
	}

	_, err = f.service.Login(ctx, "bob@example.com", "any-password", false)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for password-less account, got %v", err)
	}

	// Password attempts against a password-less account never count toward a
	// lock.
	stored, _ := f.accounts.GetByID(ctx, result.Account.ID)
	if stored.FailedAttempts != 0 {
		t.Fatalf("FailedAttempts = %d, want 0", stored.FailedAttempts)
	}
}

func TestExternalLoginCreatesAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.service.ExternalLogin(ctx, ExternalProfile{
		ExternalID:  "ext-123",
		Email:       "Carol@Example.com",
		DisplayName: "Carol",
	})
	if err != nil {
		t.Fatalf("ExternalLogin returned error: %v", err)
	}

	account := result.Account
	if account.Email != "carol@example.com" {
		t.Fatalf("Email = %q, want normalized lowercase", account.Email)
	}
	if account.HasPassword() {
		t.Fatal("externally created account must not carry a password")
	}
	if account.ExternalIdentityID == nil || *account.ExternalIdentityID != "ext-123" {
		t.Fatal("expected external identity to be linked")
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
}

func TestExternalLoginLinksExistingAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	seeded := f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")

	result, err := f.service.ExternalLogin(ctx, ExternalProfile{
		ExternalID: "ext-456",
		Email:      "alice@example.com",
	})
	if err != nil {
		t.Fatalf("ExternalLogin returned error: %v", err)
	}
	if result.Account.ID != seeded.ID {
		t.Fatal("expected the existing account to be reused")
	}
	if result.Account.ExternalIdentityID == nil || *result.Account.ExternalIdentityID != "ext-456" {
		t.Fatal("expected external identity to be linked to the existing account")
	}
	if !result.Account.HasPassword() {
		t.Fatal("linking must not drop the existing password")
	}
}

func TestExternalLoginRequiresExternalID(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.ExternalLogin(context.Background(), ExternalProfile{Email: "alice@example.com"})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestLoginRejectsEmptyPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), "alice@example.com", "", false)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}
