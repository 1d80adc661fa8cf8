package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list holding pending export task ids.
const DefaultRedisKey = "queue:export-tasks"

// Redis is a list-backed queue shared by all replicas. Producers LPUSH and
// consumers BRPOP, so the oldest id is served first.
type Redis struct {
	client redis.UniversalClient
	key    string

	// pollInterval bounds each BRPOP so that Dequeue notices cancellation.
	pollInterval time.Duration
}

func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, pollInterval: time.Second}
}

func (q *Redis) Enqueue(ctx context.Context, id int64) error {
	if err := q.client.LPush(ctx, q.key, id).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %d: %w", id, err)
	}
	return nil
}

func (q *Redis) Dequeue(ctx context.Context) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		res, err := q.client.BRPop(ctx, q.pollInterval, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if errors.Is(err, redis.ErrClosed) {
			return 0, ErrClosed
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return 0, err
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return 0, fmt.Errorf("failed to dequeue: %w", err)
		}

		// res is [key, value]
		id, err := strconv.ParseInt(res[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed task id %q: %w", res[1], err)
		}
		return id, nil
	}
}

// Close is a no-op; the client belongs to the cache.
func (q *Redis) Close() error { return nil }
