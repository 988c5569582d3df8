package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/okorelov/profile-auth/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRefreshGraceStore_SetAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewRefreshGraceStore(client, "grace")

	ctx := context.Background()
	ttl := 10 * time.Second

	if err := store.Set(ctx, "acc-1", "hash-abc", ttl); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	hash, err := store.Get(ctx, "acc-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if hash != "hash-abc" {
		t.Fatalf("expected hash-abc, got %s", hash)
	}

	remaining := server.TTL("grace:acc-1")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestRefreshGraceStore_ExpiresWithTTL(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewRefreshGraceStore(client, "grace")

	ctx := context.Background()

	if err := store.Set(ctx, "acc-1", "hash-abc", 10*time.Second); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	server.FastForward(11 * time.Second)

	if _, err := store.Get(ctx, "acc-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestRefreshGraceStore_SetReplacesSlot(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRefreshGraceStore(client, "grace")

	ctx := context.Background()

	if err := store.Set(ctx, "acc-1", "hash-old", 10*time.Second); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Set(ctx, "acc-1", "hash-new", 10*time.Second); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	hash, err := store.Get(ctx, "acc-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if hash != "hash-new" {
		t.Fatalf("expected hash-new, got %s", hash)
	}
}

func TestRefreshGraceStore_Delete(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRefreshGraceStore(client, "grace")

	ctx := context.Background()

	if err := store.Set(ctx, "acc-1", "hash-abc", 10*time.Second); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Delete(ctx, "acc-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := store.Get(ctx, "acc-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRefreshGraceStore_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRefreshGraceStore(client, "grace")

	ctx := context.Background()

	if err := store.Set(ctx, "", "hash", time.Second); err == nil {
		t.Fatalf("expected error for empty account id")
	}
	if err := store.Set(ctx, "acc-1", "", time.Second); err == nil {
		t.Fatalf("expected error for empty token hash")
	}
	if err := store.Set(ctx, "acc-1", "hash", 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
	if _, err := store.Get(ctx, ""); err == nil {
		t.Fatalf("expected error for empty account id in Get")
	}
}
