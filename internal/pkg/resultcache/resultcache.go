package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxEntries bounds the number of memoized results.
const DefaultMaxEntries = 1000

// Result is the memoized outcome of a transform: either a hosted URL or an
// inline data URL.
type Result struct {
	ImageURL string `json:"imageUrl"`
}

// Key derives the content address for a transform request: a SHA-256 digest
// over the raw image bytes followed by the style and quality identifiers, in
// that fixed order. Identical inputs from different users collide on purpose.
func Key(image []byte, style, quality string) string {
	h := sha256.New()
	h.Write(image)
	h.Write([]byte(style))
	h.Write([]byte(quality))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is a bounded content-addressed memo of transform results. When the
// store is at capacity, Put evicts the earliest-inserted entry (strict FIFO,
// insertion order only). The cache is a cost optimization: callers must treat
// every error as a miss and continue.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Put(ctx context.Context, key string, result Result) error
}

// Memory is an in-process Cache for single-replica deployments and tests.
type Memory struct {
	mu      sync.Mutex
	max     int
	entries map[string]Result
	order   []string
}

func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		max:     maxEntries,
		entries: make(map[string]Result, maxEntries),
	}
}

func (m *Memory) Get(_ context.Context, key string) (*Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *Memory) Put(_ context.Context, key string, result Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		// Content-addressed: same key always maps to the same result.
		return nil
	}
	if len(m.order) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = result
	m.order = append(m.order, key)
	return nil
}

// Len reports the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

const (
	redisEntryPrefix = "resultcache:entry:"
	redisOrderKey    = "resultcache:order"
)

// Redis is a Cache on the shared store, so replicas deduplicate across each
// other. Insertion order is tracked in a list; eviction racing with insertion
// may evict a little more than strictly necessary under high concurrency,
// which is acceptable.
type Redis struct {
	client redis.Cmdable
	max    int64
}

func NewRedis(client redis.Cmdable, maxEntries int) *Redis {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Redis{client: client, max: int64(maxEntries)}
}

func (r *Redis) Get(ctx context.Context, key string) (*Result, bool, error) {
	raw, err := r.client.Get(ctx, redisEntryPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, result Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}

	set, err := r.client.SetNX(ctx, redisEntryPrefix+key, raw, 0).Result()
	if err != nil {
		return err
	}
	if !set {
		// Already cached; re-insertion is unnecessary.
		return nil
	}

	size, err := r.client.RPush(ctx, redisOrderKey, key).Result()
	if err != nil {
		return err
	}
	for size > r.max {
		oldest, err := r.client.LPop(ctx, redisOrderKey).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return err
		}
		if err := r.client.Del(ctx, redisEntryPrefix+oldest).Err(); err != nil {
			return err
		}
		size--
	}
	return nil
}
