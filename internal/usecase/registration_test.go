package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/okorelov/profile-auth/internal/infra/security"
)

func newRegistrationFixture(t *testing.T) (*RegistrationService, *authFixture) {
	t.Helper()

	auth := newAuthFixture(t)

	service, err := NewRegistrationService(auth.accounts, auth.events, security.DefaultPasswordValidator(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewRegistrationService returned error: %v", err)
	}
	service.WithClock(auth.clock.Now)

	return service, auth
}

func TestRegister(t *testing.T) {
	registration, auth := newRegistrationFixture(t)
	ctx := context.Background()

	account, err := registration.Register(ctx, "Dave@Example.COM", "S3cure-pass!word", "Dave")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if account.Email != "dave@example.com" {
		t.Fatalf("Email = %q, want normalized lowercase", account.Email)
	}
	if !account.HasPassword() {
		t.Fatal("expected a stored password hash")
	}
	if account.PasswordHash != nil && *account.PasswordHash == "S3cure-pass!word" {
		t.Fatal("the raw password must never be stored")
	}

	if len(auth.events.registered) != 1 {
		t.Fatalf("expected one registration event, got %d", len(auth.events.registered))
	}

	// The new credentials sign in.
	if _, err := auth.service.Login(ctx, "dave@example.com", "S3cure-pass!word", false); err != nil {
		t.Fatalf("Login after registration returned error: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	registration, _ := newRegistrationFixture(t)
	ctx := context.Background()

	if _, err := registration.Register(ctx, "dave@example.com", "S3cure-pass!word", "Dave"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := registration.Register(ctx, "dave@example.com", "An0ther-l0ng_secret#91", "Dave Again")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	registration, _ := newRegistrationFixture(t)

	_, err := registration.Register(context.Background(), "dave@example.com", "12345678", "Dave")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestRegisterRejectsMalformedEmail(t *testing.T) {
	registration, _ := newRegistrationFixture(t)

	_, err := registration.Register(context.Background(), "not-an-email", "S3cure-pass!word", "Dave")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestProfileUpdateDisplayName(t *testing.T) {
	auth := newAuthFixture(t)
	ctx := context.Background()

	profiles, err := NewProfileService(auth.accounts)
	if err != nil {
		t.Fatalf("NewProfileService returned error: %v", err)
	}

	account := auth.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")

	updated, err := profiles.UpdateDisplayName(ctx, account.ID, "  Alice Liddell  ")
	if err != nil {
		t.Fatalf("UpdateDisplayName returned error: %v", err)
	}
	if updated.DisplayName != "Alice Liddell" {
		t.Fatalf("DisplayName = %q, want trimmed value", updated.DisplayName)
	}

	fetched, err := profiles.Get(ctx, account.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if fetched.DisplayName != "Alice Liddell" {
		t.Fatalf("persisted DisplayName = %q", fetched.DisplayName)
	}

	if _, err := profiles.UpdateDisplayName(ctx, account.ID, "   "); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for blank name, got %v", err)
	}
}
