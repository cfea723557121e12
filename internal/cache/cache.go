// Package cache stores per-file findings keyed by file content, path and
// engine version, so unchanged files are not re-checked.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/routable/routable-lint/internal/routable"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheKey identifies the findings for one version of one file. The path is
// part of the key because the model field rules skip test directories.
type CacheKey struct {
	FileHash      string `json:"file_hash"`
	FilePath      string `json:"file_path"`
	Engine        string `json:"engine"`
	EngineVersion string `json:"engine_version"`
}

// NewKey builds the key for path with content src under the current engine.
func NewKey(path string, src []byte) CacheKey {
	sum := sha256.Sum256(src)
	return CacheKey{
		FileHash:      hex.EncodeToString(sum[:]),
		FilePath:      path,
		Engine:        routable.Origin,
		EngineVersion: routable.Version,
	}
}

// Hash computes deterministic cache key
func (k CacheKey) Hash() string {
	b, err := json.Marshal(k)
	if err != nil {
		// CacheKey only holds strings
		panic("failed to marshal CacheKey: " + err.Error())
	}
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Current reports whether the key was produced by this engine version.
func (k CacheKey) Current() bool {
	return k.Engine == routable.Origin && k.EngineVersion == routable.Version
}

// CacheEntry is a cached check result. SourceError holds the tokenize or
// parse error text for files that could not be analyzed, and SourceLine and
// SourceColumn where it stopped when known.
type CacheEntry struct {
	Key          CacheKey           `json:"key"`
	Findings     []routable.Finding `json:"findings"`
	SourceError  string             `json:"source_error,omitempty"`
	SourceLine   int                `json:"source_line,omitempty"`
	SourceColumn int                `json:"source_column,omitempty"`
	Timestamp    int64              `json:"timestamp"`
}

// CacheManager stores and retrieves check results
type CacheManager interface {
	Get(ctx context.Context, key CacheKey) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	Delete(ctx context.Context, key CacheKey) error
}

var _ CacheManager = (*MemoryCache)(nil)

type memoryItem struct {
	entry     *CacheEntry
	createdAt time.Time
	expiresAt time.Time
	hitCount  int64
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// MemoryCache is a thread-safe in-process CacheManager with TTL and a size
// bound. Long-running commands put it in front of the disk cache.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	maxSize int
	ttl     time.Duration

	hits      int64
	misses    int64
	evictions int64
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithMaxSize sets the maximum number of entries
func WithMaxSize(n int) Option {
	return func(c *MemoryCache) {
		c.maxSize = n
	}
}

// WithTTL sets the time-to-live for entries; zero disables expiry
func WithTTL(d time.Duration) Option {
	return func(c *MemoryCache) {
		c.ttl = d
	}
}

// NewMemoryCache creates a memory cache with the given options
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: 1000,
		ttl:     1 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := key.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[hash]
	if !ok {
		c.misses++
		return nil, ErrCacheMiss
	}
	if item.expired(time.Now()) {
		delete(c.items, hash)
		c.misses++
		return nil, ErrCacheMiss
	}

	item.hitCount++
	c.hits++
	return item.entry, nil
}

func (c *MemoryCache) Put(ctx context.Context, entry *CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	hash := entry.Key.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[hash]; !exists && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}
	c.items[hash] = &memoryItem{entry: entry, createdAt: now, expiresAt: expiresAt}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key CacheKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key.Hash())
	return nil
}

// Clear removes all entries from the cache
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*memoryItem)
}

// Size returns the current number of entries
func (c *MemoryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		HitRate:   hitRate,
		Size:      len(c.items),
		MaxSize:   c.maxSize,
		Evictions: c.evictions,
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Evictions int64   `json:"evictions"`
}

// evictOldest removes the oldest entry by creation time.
// Must be called with lock held
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.createdAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.evictions++
	}
}

// Cleanup removes all expired entries and returns how many were dropped
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
			count++
		}
	}
	return count
}
