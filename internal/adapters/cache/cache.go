// Package cache memoizes read results keyed by operation and normalized
// arguments.
//
// Entries expire after a fixed TTL; there is no invalidation hook on
// upstream writes. The staleness window that opens when a submission
// changes under a cached result is accepted eventual consistency, not a
// correctness defect: every cached value is a pure function of its
// arguments, so running without the cache reproduces identical output.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Defaults for a newly constructed cache.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 4096
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL-bounded memoization store. Stored values are treated as
// immutable snapshots; callers must not mutate them after Set.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of live entries. When full, expired
// and oldest-expiring entries are evicted on Set.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache with the given options.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives a deterministic cache key from an operation name, an id
// list and scalar qualifiers. The id list is sorted so argument order
// never splits the key space.
func Key(op string, ids []string, qualifiers ...string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	parts := make([]string, 0, 2+len(qualifiers))
	parts = append(parts, op, strings.Join(sorted, ","))
	parts = append(parts, qualifiers...)
	return strings.Join(parts, "|")
}

// Get returns the cached value for key when present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, still := c.entries[key]; still && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the configured TTL. Concurrent callers
// racing to populate the same key both write the same deterministic
// value, so last-write-wins is harmless.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops expired entries, then the oldest-expiring entry if
// the cache is still full. Caller holds the write lock.
func (c *Cache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	var (
		oldestKey string
		oldestAt  time.Time
		first     = true
	)
	for k, e := range c.entries {
		if first || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.expiresAt, false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
