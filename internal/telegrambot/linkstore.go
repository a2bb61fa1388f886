package telegrambot

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LinkState is the pending conversation state of a chat.
type LinkState string

const (
	// StateNone means no linking flow is in progress.
	StateNone LinkState = ""
	// StateAwaitingID means the next free-text message is a linking code.
	StateAwaitingID LinkState = "awaiting_id"
)

// LinkStore keeps pending linking state per chat.
type LinkStore interface {
	Get(ctx context.Context, chatID int64) (LinkState, error)
	Set(ctx context.Context, chatID int64, state LinkState) error
	Clear(ctx context.Context, chatID int64) error
}

type memoryEntry struct {
	state   LinkState
	expires time.Time
}

// MemoryStore is a process-local LinkStore. Restarting the process drops
// every pending flow.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl keeps entries until cleared.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[int64]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (LinkState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[chatID]
	if !ok {
		return StateNone, nil
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		delete(s.entries, chatID)
		return StateNone, nil
	}
	return entry.state, nil
}

func (s *MemoryStore) Set(_ context.Context, chatID int64, state LinkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{state: state}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.entries[chatID] = entry
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
	return nil
}

const redisKeyPrefix = "telegram:link:"

// RedisStore shares pending linking state between API instances.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(chatID int64) string {
	return redisKeyPrefix + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (LinkState, error) {
	val, err := s.client.Get(ctx, redisKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return StateNone, nil
	}
	if err != nil {
		return StateNone, err
	}
	return LinkState(val), nil
}

func (s *RedisStore) Set(ctx context.Context, chatID int64, state LinkState) error {
	return s.client.Set(ctx, redisKey(chatID), string(state), s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, redisKey(chatID)).Err()
}
