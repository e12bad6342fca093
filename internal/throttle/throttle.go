// Package throttle limits how often a one-time code can be requested for the
// same phone number.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reserves a slot for key. When the slot is taken it returns false
// and the remaining wait. Release hands a reserved slot back.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	Release(ctx context.Context, key string) error
}

// Noop allows every request.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, time.Duration, error) {
	return true, 0, nil
}

func (Noop) Release(context.Context, string) error { return nil }

// RedisLimiter allows one request per key per window using SET NX with expiry.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisLimiter creates a limiter over client.
func NewRedisLimiter(client *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "otp:resend:", window: window}
}

// NewRedisClient opens a client and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key
	ok, err := l.client.SetNX(ctx, k, 1, l.window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to reserve resend slot: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}
	if ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

func (l *RedisLimiter) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release resend slot: %w", err)
	}
	return nil
}
