package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter enforces counting caps (e.g. SMS daily/hourly limits). Check
// never consumes the budget; Incr records a completed send. Split this way
// so a blocked send leaves the counters untouched.
type RateLimiter interface {
	Check(ctx context.Context, key string, limit int) (bool, error)
	Incr(ctx context.Context, key string, ttl time.Duration) error
}

// CounterLimiter keeps counters in process memory. Sufficient for a
// single-dispatcher deployment; use RedisLimiter when more than one process
// sends.
type CounterLimiter struct {
	mu     sync.Mutex
	counts map[string]*counterEntry
}

type counterEntry struct {
	n       int
	expires time.Time
}

func NewCounterLimiter() *CounterLimiter {
	return &CounterLimiter{counts: make(map[string]*counterEntry)}
}

func (c *CounterLimiter) Check(_ context.Context, key string, limit int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	entry, ok := c.counts[key]
	if !ok {
		return true, nil
	}
	return entry.n < limit, nil
}

func (c *CounterLimiter) Incr(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.counts[key]
	if !ok {
		c.counts[key] = &counterEntry{n: 1, expires: time.Now().Add(ttl)}
		return nil
	}
	entry.n++
	return nil
}

func (c *CounterLimiter) purge() {
	now := time.Now()
	for key, entry := range c.counts {
		if now.After(entry.expires) {
			delete(c.counts, key)
		}
	}
}

// RedisLimiter shares counters across dispatcher processes so the caps stay
// global.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (r *RedisLimiter) Check(ctx context.Context, key string, limit int) (bool, error) {
	n, err := r.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("rate limit check %q: %w", key, err)
	}
	return n < limit, nil
}

func (r *RedisLimiter) Incr(ctx context.Context, key string, ttl time.Duration) error {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rate limit incr %q: %w", key, err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("rate limit expire %q: %w", key, err)
		}
	}
	return nil
}
