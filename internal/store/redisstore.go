package store

import (
	"context"
	"errors"

	"github.com/heysubinoy/kvweb/pkg/kv"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a kv.Store backed by a remote Redis server.
// The underlying client keeps its own connection pool and connects lazily,
// so a store can be created while Redis is still unreachable.
type RedisStore struct {
	client *redis.Client
}

var _ kv.Store = (*RedisStore)(nil)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(opts RedisOptions) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
}

// Ping checks that the server answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Delete reports whether DEL removed anything.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys runs KEYS *. Fine for the small datasets this front-end targets;
// there is no pagination.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, "*").Result()
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
