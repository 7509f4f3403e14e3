package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryEntry struct {
	username string
	expires  time.Time
}

// MemoryTokenStore keeps tokens in process; expired entries are dropped on
// lookup.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryEntry
	now    func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryTokenStore) Put(_ context.Context, token, username string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryEntry{username: username, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Lookup(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[token]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.tokens, token)
		return "", false, nil
	}
	return e.username, true, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}

const redisTokenPrefix = "admin:token:"

// RedisTokenStore shares tokens across instances; expiry is the key TTL.
type RedisTokenStore struct{ rdb *redis.Client }

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore { return &RedisTokenStore{rdb: rdb} }

func (s *RedisTokenStore) Put(ctx context.Context, token, username string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, redisTokenPrefix+token, username, ttl).Err(); err != nil {
		return fmt.Errorf("store admin token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, redisTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, redisTokenPrefix+token).Err()
}
