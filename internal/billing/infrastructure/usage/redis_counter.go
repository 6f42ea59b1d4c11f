package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
)

// RedisCounter keeps usage counts in Redis. Keys expire when their period ends.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Increment adds one and returns the new count.
func (c *RedisCounter) Increment(ctx context.Context, userID, period string) (int64, error) {
	expireAt, err := domain.PeriodEnd(period)
	if err != nil {
		return 0, err
	}

	k := key(userID, period)
	var incr *redis.IntCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireAt(ctx, k, expireAt)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return incr.Val(), nil
}

// Get returns the current count.
func (c *RedisCounter) Get(ctx context.Context, userID, period string) (int64, error) {
	n, err := c.client.Get(ctx, key(userID, period)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage: %w", err)
	}
	return n, nil
}

var _ domain.UsageCounter = (*RedisCounter)(nil)
