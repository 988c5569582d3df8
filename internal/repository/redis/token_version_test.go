package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okorelov/profile-auth/internal/repository"
)

func TestTokenVersionCache_SetAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	cache := NewTokenVersionCache(client, "tv")

	ctx := context.Background()
	ttl := 2 * time.Minute

	if err := cache.SetTokenVersion(ctx, "acc-1", 7, ttl); err != nil {
		t.Fatalf("SetTokenVersion returned error: %v", err)
	}

	version, err := cache.GetTokenVersion(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetTokenVersion returned error: %v", err)
	}
	if version != 7 {
		t.Fatalf("expected version 7, got %d", version)
	}

	remaining := server.TTL("tv:acc-1")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestTokenVersionCache_Miss(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewTokenVersionCache(client, "tv")

	if _, err := cache.GetTokenVersion(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenVersionCache_ExpiresWithTTL(t *testing.T) {
	client, server := newTestRedis(t)
	cache := NewTokenVersionCache(client, "tv")

	ctx := context.Background()

	if err := cache.SetTokenVersion(ctx, "acc-1", 3, time.Minute); err != nil {
		t.Fatalf("SetTokenVersion returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := cache.GetTokenVersion(ctx, "acc-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestTokenVersionCache_Delete(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewTokenVersionCache(client, "tv")

	ctx := context.Background()

	if err := cache.SetTokenVersion(ctx, "acc-1", 1, time.Minute); err != nil {
		t.Fatalf("SetTokenVersion returned error: %v", err)
	}
	if err := cache.DeleteTokenVersion(ctx, "acc-1"); err != nil {
		t.Fatalf("DeleteTokenVersion returned error: %v", err)
	}

	if _, err := cache.GetTokenVersion(ctx, "acc-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTokenVersionCache_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewTokenVersionCache(client, "tv")

	ctx := context.Background()

	if err := cache.SetTokenVersion(ctx, "", 1, time.Minute); err == nil {
		t.Fatalf("expected error for empty account id")
	}
	if err := cache.SetTokenVersion(ctx, "acc-1", -1, time.Minute); err == nil {
		t.Fatalf("expected error for negative version")
	}
	if err := cache.SetTokenVersion(ctx, "acc-1", 1, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
	if _, err := cache.GetTokenVersion(ctx, ""); err == nil {
		t.Fatalf("expected error for empty account id in GetTokenVersion")
	}
}
