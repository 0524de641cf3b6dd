package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (c *memCounter) IncrementWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	if c.counts[key] == 1 {
		c.ttls[key] = ttl
	}
	return c.counts[key], nil
}

func TestCheckAndIncrement_AllowsUpToLimit(t *testing.T) {
	counter := newMemCounter()
	limiter := NewLimiter(counter, 3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := limiter.CheckAndIncrement(ctx, "user-1", 0)
		if err != nil {
			t.Fatalf("unexpected error on request %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed (count=%d limit=%d)", i, res.CurrentCount, res.Limit)
		}
		if res.CurrentCount != i {
			t.Fatalf("expected count %d, got %d", i, res.CurrentCount)
		}
	}

	res, err := limiter.CheckAndIncrement(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatalf("request over the limit should be rejected")
	}
}

func TestCheckAndIncrement_ClientPreferenceNeverRaisesCeiling(t *testing.T) {
	limiter := NewLimiter(newMemCounter(), 2)

	res, _ := limiter.CheckAndIncrement(context.Background(), "user-1", 500)
	if res.Limit != 2 {
		t.Fatalf("server ceiling must win, got limit %d", res.Limit)
	}

	res, _ = limiter.CheckAndIncrement(context.Background(), "user-2", 1)
	if res.Limit != 1 {
		t.Fatalf("lower client preference should apply, got limit %d", res.Limit)
	}
}

func TestCheckAndIncrement_PerUserAndPerDayKeys(t *testing.T) {
	counter := newMemCounter()
	limiter := NewLimiter(counter, 1)
	ctx := context.Background()

	day := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return day }

	if res, _ := limiter.CheckAndIncrement(ctx, "alice", 0); !res.Allowed {
		t.Fatalf("first request for alice should pass")
	}
	if res, _ := limiter.CheckAndIncrement(ctx, "bob", 0); !res.Allowed {
		t.Fatalf("bob must not share alice's counter")
	}
	if res, _ := limiter.CheckAndIncrement(ctx, "alice", 0); res.Allowed {
		t.Fatalf("alice's second request should be rejected")
	}

	// Next UTC day gets a fresh counter.
	limiter.now = func() time.Time { return day.Add(24 * time.Hour) }
	if res, _ := limiter.CheckAndIncrement(ctx, "alice", 0); !res.Allowed {
		t.Fatalf("new day should reset the budget")
	}
}

func TestCheckAndIncrement_TTLExpiresAtUTCMidnight(t *testing.T) {
	counter := newMemCounter()
	limiter := NewLimiter(counter, 5)

	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if _, err := limiter.CheckAndIncrement(context.Background(), "alice", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := "ratelimit:alice:2025-03-10"
	if got := counter.ttls[key]; got != time.Hour {
		t.Fatalf("expected TTL of 1h until midnight, got %v", got)
	}
}

func TestCheckAndIncrement_FailsClosedOnStoreError(t *testing.T) {
	counter := newMemCounter()
	counter.err = errors.New("connection refused")
	limiter := NewLimiter(counter, 5)

	res, err := limiter.CheckAndIncrement(context.Background(), "alice", 0)
	if err == nil {
		t.Fatalf("expected error from failing store")
	}
	if res.Allowed {
		t.Fatalf("store failure must never grant access")
	}
}

func TestCheckAndIncrement_Concurrent(t *testing.T) {
	counter := newMemCounter()
	limiter := NewLimiter(counter, 10)

	const workers = 50
	var wg sync.WaitGroup
	allowed := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.CheckAndIncrement(context.Background(), "alice", 0)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			allowed <- res.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	admitted := 0
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	if admitted != 10 {
		t.Fatalf("expected exactly 10 admitted requests, got %d", admitted)
	}
}
