package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared cache used when the service runs as several replicas.
type Redis struct {
	client    redis.UniversalClient
	opTimeout time.Duration
}

// NewRedis connects using a redis:// or rediss:// URL.
func NewRedis(url string, opTimeout time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.DialTimeout = opTimeout
	opts.ReadTimeout = opTimeout
	opts.WriteTimeout = opTimeout
	return NewRedisFromClient(redis.NewClient(opts), opTimeout), nil
}

// NewRedisFromClient wraps an existing client, e.g. one pointed at miniredis.
func NewRedisFromClient(client redis.UniversalClient, opTimeout time.Duration) *Redis {
	return &Redis{client: client, opTimeout: opTimeout}
}

// Client exposes the underlying client so other components can share the pool.
func (r *Redis) Client() redis.UniversalClient { return r.client }

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", unavailable("get", err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

func (r *Redis) Take(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, unavailable("del", err)
	}
	return n == 1, nil
}

func (r *Redis) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, unavailable("setnx", err)
	}
	return ok, nil
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable("incr", err)
	}
	return n, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %w", ErrUnavailable, op, err)
}
