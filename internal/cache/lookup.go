package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lookup kinds.
const (
	KindUserEmail    = "user_email"
	KindCategoryName = "category_name"
)

// Lookup caches id to display-value mappings used when rendering tasks.
type Lookup interface {
	// GetMany returns the cached values for ids. Missing ids are absent from the map.
	GetMany(ctx context.Context, kind string, ids []string) (map[string]string, error)
	SetMany(ctx context.Context, kind string, values map[string]string) error
	Close() error
}

type redisLookup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLookup connects to redis and returns a Lookup whose entries expire after ttl.
func NewRedisLookup(redisURL string, ttl time.Duration) (Lookup, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewLookupWithClient(client, ttl), nil
}

// NewLookupWithClient wraps an existing client.
func NewLookupWithClient(client *redis.Client, ttl time.Duration) Lookup {
	return &redisLookup{client: client, ttl: ttl}
}

// Key returns the redis key for a lookup entry.
func Key(kind, id string) string {
	return "taskboard:" + kind + ":" + id
}

func (r *redisLookup) GetMany(ctx context.Context, kind string, ids []string) (map[string]string, error) {
	found := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(kind, id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			found[ids[i]] = s
		}
	}
	return found, nil
}

func (r *redisLookup) SetMany(ctx context.Context, kind string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, v := range values {
			pipe.Set(ctx, Key(kind, id), v, r.ttl)
		}
		return nil
	})
	return err
}

func (r *redisLookup) Close() error {
	return r.client.Close()
}
