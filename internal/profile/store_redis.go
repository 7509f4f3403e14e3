package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-coach/internal/domain"
)

const (
	redisKeyPrefix = "profile:"
	redisIndexKey  = "profile:index"
)

// RedisStore keeps each profile as a JSON string and the ids in a set.
// Updates run under WATCH on the profile key.
type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) key(id string) string { return redisKeyPrefix + strings.TrimSpace(id) }

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.RatingProfile, error) {
	return s.load(ctx, s.rdb, id)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c redisGetter, id string) (*domain.RatingProfile, error) {
	raw, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get profile: %w", err)
	}
	var p domain.RatingProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &p, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*domain.RatingProfile, error) {
	key := s.key(id)
	var saved *domain.RatingProfile
	txf := func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return errNilProfile
		}
		next = next.Clone()
		next.ID = id
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			pipe.SAdd(ctx, redisIndexKey, id)
			return nil
		})
		if err == nil {
			saved = next
		}
		return err
	}
	for i := 0; i < updateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return saved, nil
	}
	return nil, ErrConflict
}

func (s *RedisStore) List(ctx context.Context) ([]*domain.RatingProfile, error) {
	ids, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list profiles: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.RatingProfile{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget profiles: %w", err)
	}
	out := make([]*domain.RatingProfile, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.RatingProfile
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", ids[i], err)
		}
		out = append(out, &p)
	}
	sortByID(out)
	return out, nil
}

func (s *RedisStore) Close() error { return nil }
