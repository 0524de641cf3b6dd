package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDailyCeiling is the server-side limit on free-tier transform
// requests per user per day. Client preferences can lower it, never raise
// it. Users in an active paid period are admitted without a daily budget.
const DefaultDailyCeiling = 30

// Counter is the atomic increment-and-expire primitive the limiter needs
// from the shared store. The increment and the TTL arm must be applied
// atomically with respect to concurrent callers.
type Counter interface {
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Result is the outcome of a single admission check.
type Result struct {
	Allowed      bool
	CurrentCount int
	Limit        int
}

// Limiter enforces a per-user daily request budget. Days are partitioned on
// UTC calendar dates; counters expire at the next UTC midnight so stale keys
// never survive into the following day.
type Limiter struct {
	counter Counter
	ceiling int
	now     func() time.Time
}

func NewLimiter(counter Counter, ceiling int) *Limiter {
	if ceiling <= 0 {
		ceiling = DefaultDailyCeiling
	}
	return &Limiter{counter: counter, ceiling: ceiling, now: time.Now}
}

// CheckAndIncrement atomically counts this request against the user's daily
// budget. requested is an advisory client preference; the server ceiling
// always wins. On store failure the limiter fails closed: the error must be
// treated as a rejection, never as an allowance.
func (l *Limiter) CheckAndIncrement(ctx context.Context, userID string, requested int) (Result, error) {
	limit := l.ceiling
	if requested > 0 && requested < limit {
		limit = requested
	}

	now := l.now().UTC()
	key := fmt.Sprintf("ratelimit:%s:%s", userID, now.Format("2006-01-02"))
	midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	ttl := midnight.Sub(now)

	count, err := l.counter.IncrementWithTTL(ctx, key, ttl)
	if err != nil {
		return Result{Allowed: false, Limit: limit}, fmt.Errorf("rate limit store: %w", err)
	}

	return Result{
		Allowed:      count <= int64(limit),
		CurrentCount: int(count),
		Limit:        limit,
	}, nil
}

// incrExpireScript increments the counter and arms its expiry on first
// touch. Running as a single script keeps check-and-increment atomic across
// concurrent requests and replicas.
var incrExpireScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisCounter implements Counter on the shared Redis store.
type RedisCounter struct {
	client redis.Scripter
}

func NewRedisCounter(client redis.Scripter) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return incrExpireScript.Run(ctx, c.client, []string{key}, seconds).Int64()
}
