package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter allows at most max hits per key in a fixed window. When the
// budget is spent Hit returns false and the time until the window resets.
type Counter interface {
	Hit(ctx context.Context, key string) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// RedisCounter is a fixed-window counter shared by every instance.
type RedisCounter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

// NewRedisCounter creates a counter whose keys live under prefix.
func NewRedisCounter(client *redis.Client, prefix string, max int, window time.Duration) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix, max: int64(max), window: window}
}

func (c *RedisCounter) Hit(ctx context.Context, key string) (bool, time.Duration, error) {
	k := c.prefix + key
	n, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	if n == 1 {
		if err := c.client.Expire(ctx, k, c.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set counter window: %w", err)
		}
	}
	if n <= c.max {
		return true, 0, nil
	}

	ttl, err := c.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check counter TTL: %w", err)
	}
	if ttl < 0 {
		// INCR landed without an expiry; start the window now.
		if err := c.client.Expire(ctx, k, c.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set counter window: %w", err)
		}
		ttl = c.window
	}
	return false, ttl, nil
}

func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset counter: %w", err)
	}
	return nil
}

const memorySweepSize = 10000

type memoryWindow struct {
	count   int
	resetAt time.Time
}

// MemoryCounter is a fixed-window counter local to one process, used when no
// Redis is configured.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryCounter creates a MemoryCounter. A nil now uses time.Now.
func NewMemoryCounter(max int, window time.Duration, now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{windows: map[string]*memoryWindow{}, max: max, window: window, now: now}
}

func (c *MemoryCounter) Hit(_ context.Context, key string) (bool, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.windows) >= memorySweepSize {
		for k, w := range c.windows {
			if !now.Before(w.resetAt) {
				delete(c.windows, k)
			}
		}
	}

	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(c.window)}
		c.windows[key] = w
	}
	w.count++
	if w.count <= c.max {
		return true, 0, nil
	}
	return false, w.resetAt.Sub(now), nil
}

func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.windows, key)
	return nil
}
