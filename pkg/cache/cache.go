// Package cache memoizes expensive computations behind a TTL map keyed by a
// SHA-256 of the JSON encoded arguments.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"costlens/pkg/config"
	"costlens/pkg/logger"
	"costlens/pkg/metrics"
)

// entry is one cached value
type entry struct {
	value    interface{}
	cachedAt time.Time
	lastUsed time.Time
	useCount int64
}

// Cache is safe for concurrent use. Concurrent misses on the same key may
// compute the value more than once.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int
	enabled    bool

	hits   int64
	misses int64
	now    func() time.Time
}

// New creates a cache from cfg. A nil cfg uses the config defaults.
func New(cfg *config.CacheConfig) *Cache {
	if cfg == nil {
		cfg = config.NewCacheConfig()
	}
	ttl := cfg.TTLDuration()
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		entries:    make(map[string]*entry),
		ttl:        ttl,
		maxEntries: cfg.MaxEntries,
		enabled:    cfg.Enabled,
		now:        time.Now,
	}
}

// Disabled returns a cache that never stores anything
func Disabled() *Cache {
	return &Cache{entries: make(map[string]*entry), ttl: time.Hour, now: time.Now}
}

// Enabled reports whether values are stored
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// Key hashes namespace and args into a cache key
func Key(namespace string, args ...interface{}) (string, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode cache key for %s: %w", namespace, err)
	}
	return fmt.Sprintf("%s_%x", namespace, sha256.Sum256(payload)), nil
}

// Get returns a live value for key
func (c *Cache) Get(key string) (interface{}, bool) {
	if !c.Enabled() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.cachedAt) > c.ttl {
		c.misses++
		return nil, false
	}
	e.lastUsed = c.now()
	e.useCount++
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full
func (c *Cache) Set(key string, value interface{}) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictExpiredLocked()
		if len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = &entry{value: value, cachedAt: now, lastUsed: now}
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// EvictExpired drops every expired entry and returns how many were removed
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.evictExpiredLocked()
	metrics.CacheEntries.Set(float64(len(c.entries)))
	if removed > 0 {
		logger.Debug("Evicted expired cache entries", zap.Int("removed", removed), zap.Int("cache_size", len(c.entries)))
	}
	return removed
}

// Clear drops all entries and returns the previous size
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := len(c.entries)
	c.entries = make(map[string]*entry)
	metrics.CacheEntries.Set(0)
	logger.Info("Cache cleared", zap.Int("old_size", old))
	return old
}

// Stats is a snapshot of cache counters
type Stats struct {
	Enabled     bool    `json:"enabled"`
	CacheSize   int     `json:"cache_size"`
	CacheHits   int64   `json:"cache_hits"`
	CacheMisses int64   `json:"cache_misses"`
	HitRate     string  `json:"hit_rate"`
	TTLSeconds  float64 `json:"ttl_seconds"`
}

// Stats returns the current counters
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hitRate := float64(0)
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Enabled:     c.enabled,
		CacheSize:   len(c.entries),
		CacheHits:   c.hits,
		CacheMisses: c.misses,
		HitRate:     fmt.Sprintf("%.2f%%", hitRate),
		TTLSeconds:  c.ttl.Seconds(),
	}
}

// evictExpiredLocked must be called with mu held
func (c *Cache) evictExpiredLocked() int {
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.cachedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.lastUsed.Before(oldest) {
			oldestKey, oldest = key, e.lastUsed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Do returns the cached result for (namespace, args) or computes and stores
// it. Errors are never cached. Arguments that cannot be encoded bypass the
// cache.
func Do[T any](c *Cache, namespace string, args []interface{}, fn func() (T, error)) (T, error) {
	if !c.Enabled() {
		return fn()
	}
	key, err := Key(namespace, args...)
	if err != nil {
		logger.Warn("Cache key encoding failed, computing directly", zap.String("namespace", namespace), logger.ErrorField(err))
		return fn()
	}
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			metrics.CacheHits.WithLabelValues(namespace).Inc()
			return typed, nil
		}
	}
	metrics.CacheMisses.WithLabelValues(namespace).Inc()

	value, err := fn()
	if err != nil {
		return value, err
	}
	c.Set(key, value)
	return value, nil
}
