package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps every record as a field of one redis hash.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects to the redis server at url
// (redis://host:port/db).
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	key := "skillet:skills"
	if prefix != "" {
		key = prefix + ":skills"
	}
	return &RedisStore{rdb: rdb, key: key}, nil
}

func (s *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	return s.rdb.HSet(ctx, s.key, name, data).Err()
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := s.rdb.HDel(ctx, s.key, name).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	all, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for name, data := range all {
		out = append(out, Record{Name: name, Data: []byte(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
