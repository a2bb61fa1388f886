package telegrambot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, 1, StateAwaitingID); err != nil {
		t.Fatal(err)
	}
	if state, _ := store.Get(ctx, 1); state != StateAwaitingID {
		t.Fatalf("expected awaiting_id, got %q", state)
	}

	now = now.Add(2 * time.Minute)
	if state, _ := store.Get(ctx, 1); state != StateNone {
		t.Fatalf("expected expired state, got %q", state)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	_ = store.Set(ctx, 5, StateAwaitingID)
	_ = store.Clear(ctx, 5)
	if state, _ := store.Get(ctx, 5); state != StateNone {
		t.Fatalf("expected cleared, got %q", state)
	}
}

func TestRedisStoreRoundTripAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, 15*time.Minute)
	ctx := context.Background()

	if state, err := store.Get(ctx, 42); err != nil || state != StateNone {
		t.Fatalf("expected empty state, got %q, %v", state, err)
	}
	if err := store.Set(ctx, 42, StateAwaitingID); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(redisKey(42)); ttl != 15*time.Minute {
		t.Fatalf("expected ttl 15m, got %v", ttl)
	}
	if state, _ := store.Get(ctx, 42); state != StateAwaitingID {
		t.Fatalf("expected awaiting_id, got %q", state)
	}

	mr.FastForward(16 * time.Minute)
	if state, _ := store.Get(ctx, 42); state != StateNone {
		t.Fatalf("expected expiry, got %q", state)
	}

	_ = store.Set(ctx, 42, StateAwaitingID)
	if err := store.Clear(ctx, 42); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists(redisKey(42)) {
		t.Fatal("expected key deleted")
	}
}
