package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON string per key at nodedist:<chain>:<kind>:<name>. Entries
// do not expire.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) key(key Key) string {
	return fmt.Sprintf("nodedist:%s:%s:%s", key.Chain, key.Kind, key.Name)
}

func (s *RedisStore) Get(ctx context.Context, key Key, out any) error {
	bz, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(bz, out)
}

func (s *RedisStore) Put(ctx context.Context, key Key, v any) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), bz, 0).Err()
}
