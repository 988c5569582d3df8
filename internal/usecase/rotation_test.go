package usecase

import (
	"context"
	"errors"
	"testing"
	"time"
)

func loginFor(t *testing.T, f *authFixture, email, password string) *LoginResult {
	t.Helper()

	result, err := f.service.Login(context.Background(), email, password, false)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	return result
}

func TestRefreshRotatesPair(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")
	login := loginFor(t, f, "alice@example.com", "S3cure-pass!word")

	f.clock.Advance(time.Second)

	pair, err := f.service.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}
	if pair.AccessToken == "" {
		t.Fatal("expected a fresh access token")
	}

	// The rotated-in token is the one on file now.
	f.clock.Advance(time.Second)
	if _, err := f.service.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh with rotated token returned error: %v", err)
	}
}

func TestRefreshGraceWindowHonorsPriorTokenOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")
	login := loginFor(t, f, "alice@example.com", "S3cure-pass!word")

	f.clock.Advance(time.Second)
	if _, err := f.service.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}

	// Within the grace window the superseded token still rotates, covering a
	// client retry that raced the first response.
	f.clock.Advance(2 * time.Second)
	retry, err := f.service.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh within grace window returned error: %v", err)
	}
	if retry.RefreshToken == login.RefreshToken {
		t.Fatal("grace rotation must mint a new token")
	}

	// A third presentation matches neither the persisted hash nor the grace
	// slot, which now holds the first rotation's product.
	f.clock.Advance(time.Second)
	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on reuse, got %v", err)
	}
}

func TestRefreshGraceWindowExpires(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")
	login := loginFor(t, f, "alice@example.com", "S3cure-pass!word")

	f.clock.Advance(time.Second)
	if _, err := f.service.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}

	f.clock.Advance(11 * time.Second)
	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after grace window, got %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.service.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshRejectsStaleTokenVersion(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")
	login := loginFor(t, f, "alice@example.com", "S3cure-pass!word")

	if err := f.service.LogoutAll(ctx, account.ID); err != nil {
		t.Fatalf("LogoutAll returned error: %v", err)
	}

	// LogoutAll clears the stored hash, so re-establish a session at the new
	// version. The old token's embedded version now trails the account's.
	second := loginFor(t, f, "alice@example.com", "S3cure-pass!word")
	_ = second

	f.clock.Advance(time.Second)
	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrTokenVersionMismatch) {
		t.Fatalf("expected ErrTokenVersionMismatch, got %v", err)
	}
}

func TestLogoutAllRevokesAccessTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")
	login := loginFor(t, f, "alice@example.com", "S3cure-pass!word")

	if _, err := f.service.ParseAccessToken(ctx, login.AccessToken); err != nil {
		t.Fatalf("ParseAccessToken before revocation returned error: %v", err)
	}

	if err := f.service.LogoutAll(ctx, account.ID); err != nil {
		t.Fatalf("LogoutAll returned error: %v", err)
	}

	if _, err := f.service.ParseAccessToken(ctx, login.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken after LogoutAll, got %v", err)
	}
	if len(f.events.revoked) != 1 {
		t.Fatalf("expected one revocation event, got %d", len(f.events.revoked))
	}
	if f.events.revoked[0].Reason != "logout_all" {
		t.Fatalf("revocation reason = %q, want logout_all", f.events.revoked[0].Reason)
	}
}

func TestLogoutClearsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")
	login := loginFor(t, f, "alice@example.com", "S3cure-pass!word")

	if err := f.service.Logout(ctx, account.ID); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	f.clock.Advance(time.Second)
	if _, err := f.service.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}

	// Single-device logout leaves access tokens alone until they expire.
	if _, err := f.service.ParseAccessToken(ctx, login.AccessToken); err != nil {
		t.Fatalf("ParseAccessToken after single-device logout returned error: %v", err)
	}
}

func TestParseAccessTokenFallsBackToRepository(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.seedPasswordAccount(t, "alice@example.com", "S3cure-pass!word")
	login := loginFor(t, f, "alice@example.com", "S3cure-pass!word")

	// An empty cache forces a repository read and a cache fill.
	claims, err := f.service.ParseAccessToken(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if claims.AccountID != login.Account.ID {
		t.Fatalf("AccountID = %q, want %q", claims.AccountID, login.Account.ID)
	}
	if _, err := f.versions.GetTokenVersion(ctx, login.Account.ID); err != nil {
		t.Fatalf("expected cache to be hydrated, got %v", err)
	}
}
