// Package cache provides the ephemeral key/value store that holds sessions,
// session versions and captchas.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get for an absent or expired key.
	ErrMiss = errors.New("cache: miss")

	// ErrUnavailable wraps transport failures and timeouts. Callers must
	// treat it as a hard failure, never as a miss.
	ErrUnavailable = errors.New("cache: unavailable")

	// ErrNotInteger is returned by Incr when the stored value is not an integer.
	ErrNotInteger = errors.New("cache: value is not an integer")
)

// Cache is a string key/value store with per-key expiry. A ttl of zero means
// the key never expires.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes keys. Absent keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Take deletes key and reports whether this call removed it. Of several
	// concurrent callers at most one sees true.
	Take(ctx context.Context, key string) (bool, error)

	// SetNX sets key only if it does not exist and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments an integer key, creating it at 0 first.
	Incr(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// DefaultOpTimeout bounds every cache call when no timeout is configured.
const DefaultOpTimeout = 2 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultOpTimeout
	}
	return context.WithTimeout(ctx, d)
}
