// Package cache provides the TTL-bounded memoization used in front of the
// search pipeline. Each instance is independent; callers construct one per
// concern and hand it to the component that needs it.
package cache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mookka/searchservice/internal/metrics"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 400
)

// Backend is an optional shared second tier (Redis in production). It keeps
// whole entries so a reader sees the original write time, not its own.
type Backend[V any] interface {
	Get(ctx context.Context, key string) (Entry[V], bool, error)
	Set(ctx context.Context, entry Entry[V], ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Entry is one memoized payload.
type Entry[V any] struct {
	Key       string    `json:"key"`
	Payload   V         `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

type Config[V any] struct {
	Name       string
	TTL        time.Duration
	MaxEntries int
	// Clone copies payloads on the way in and out so callers never share
	// memory with the cache. Nil means values are stored as-is.
	Clone   func(V) V
	Backend Backend[V]
	Logger  *slog.Logger
	Now     func() time.Time
}

type TTLCache[V any] struct {
	name       string
	ttl        time.Duration
	maxEntries int
	clone      func(V) V
	backend    Backend[V]
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry[V]
}

func New[V any](cfg Config[V]) *TTLCache[V] {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	clone := cfg.Clone
	if clone == nil {
		clone = func(value V) V { return value }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TTLCache[V]{
		name:       name,
		ttl:        ttl,
		maxEntries: maxEntries,
		clone:      clone,
		backend:    cfg.Backend,
		logger:     logger,
		now:        now,
		entries:    make(map[string]*Entry[V]),
	}
}

func (c *TTLCache[V]) Name() string { return c.name }

func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }

// Get returns a fresh payload for key. Expired entries are swept before the
// lookup. A memory miss falls through to the backend; a backend entry older
// than the TTL is a miss, a fresh one is copied into memory with its original
// creation time.
func (c *TTLCache[V]) Get(ctx context.Context, key string) (V, bool) {
	now := c.now()

	c.mu.Lock()
	c.sweepLocked(now)
	entry, ok := c.entries[key]
	if ok {
		payload := c.clone(entry.Payload)
		c.mu.Unlock()
		metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
		return payload, true
	}
	c.mu.Unlock()

	if c.backend != nil {
		entry, found, err := c.backend.Get(ctx, key)
		if err != nil {
			c.logger.Debug("cache backend read failed",
				slog.String("cache", c.name),
				slog.String("error", err.Error()),
			)
		}
		if err == nil && found && !c.expired(entry.CreatedAt, now) {
			metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
			c.storeMemory(key, entry.Payload, entry.CreatedAt, now)
			return c.clone(entry.Payload), true
		}
	}

	metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
	var zero V
	return zero, false
}

// Set stores value under key. Only successful fetches should be stored.
func (c *TTLCache[V]) Set(ctx context.Context, key string, value V) {
	now := c.now()
	if c.backend != nil {
		entry := Entry[V]{Key: key, Payload: value, CreatedAt: now}
		if err := c.backend.Set(ctx, entry, c.ttl); err != nil {
			c.logger.Debug("cache backend write failed",
				slog.String("cache", c.name),
				slog.String("error", err.Error()),
			)
		}
	}
	c.storeMemory(key, value, now, now)
}

func (c *TTLCache[V]) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.backend != nil {
		_ = c.backend.Delete(ctx, key)
	}
}

// Sweep removes every entry older than the TTL and reports how many went.
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Run sweeps on every tick until ctx is done.
func (c *TTLCache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.logger.Debug("cache sweep",
					slog.String("cache", c.name),
					slog.Int("removed", removed),
				)
			}
		}
	}
}

func (c *TTLCache[V]) storeMemory(key string, value V, createdAt, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry[V]{
		Key:       key,
		Payload:   c.clone(value),
		CreatedAt: createdAt,
	}
	c.sweepLocked(now)
	c.trimLocked()
}

func (c *TTLCache[V]) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry.CreatedAt, now) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictionsTotal.WithLabelValues(c.name, "expired").Add(float64(removed))
	}
	return removed
}

func (c *TTLCache[V]) expired(createdAt, now time.Time) bool {
	return now.Sub(createdAt) > c.ttl
}

func (c *TTLCache[V]) trimLocked() {
	if len(c.entries) <= c.maxEntries {
		return
	}
	items := make([]*Entry[V], 0, len(c.entries))
	for _, entry := range c.entries {
		items = append(items, entry)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	overflow := len(items) - c.maxEntries
	for i := 0; i < overflow; i++ {
		delete(c.entries, items[i].Key)
	}
	metrics.CacheEvictionsTotal.WithLabelValues(c.name, "capacity").Add(float64(overflow))
}
