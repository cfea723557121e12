package cache

import (
	"context"
	"errors"
	"log/slog"
)

// MultiTierConfig configures the multi-tier cache behavior
type MultiTierConfig struct {
	// WriteToFar controls whether entries are also written to the far tier
	WriteToFar bool

	// ReadFromFar controls whether to read from the far tier on a near miss
	ReadFromFar bool

	// WarmNearOnFarHit controls whether a far hit is copied into the near tier
	WarmNearOnFarHit bool
}

// DefaultMultiTierConfig returns the default multi-tier cache configuration
func DefaultMultiTierConfig() MultiTierConfig {
	return MultiTierConfig{
		WriteToFar:       true,
		ReadFromFar:      true,
		WarmNearOnFarHit: true,
	}
}

// MultiTierCache layers a fast near tier over a slower far tier: memory over
// disk in watch mode, disk over a shared remote cache in CI.
type MultiTierCache struct {
	near   CacheManager
	far    CacheManager // may be nil
	config MultiTierConfig
	logger *slog.Logger
}

// NewMultiTierCache creates a new multi-tier cache.
// If far is nil, the cache operates in near-only mode.
func NewMultiTierCache(near, far CacheManager, config MultiTierConfig) *MultiTierCache {
	return &MultiTierCache{
		near:   near,
		far:    far,
		config: config,
		logger: slog.Default().With("component", "cache"),
	}
}

// Get checks the near tier, then the far tier when enabled.
func (c *MultiTierCache) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	entry, err := c.near.Get(ctx, key)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("near cache lookup failed", "file", key.FilePath, "error", err)
	}

	if !c.config.ReadFromFar || c.far == nil {
		return nil, ErrCacheMiss
	}

	entry, err = c.far.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("far cache lookup failed", "file", key.FilePath, "error", err)
		}
		return nil, ErrCacheMiss
	}

	if c.config.WarmNearOnFarHit {
		if putErr := c.near.Put(ctx, entry); putErr != nil {
			c.logger.Warn("failed to warm near cache", "error", putErr)
		}
	}

	return entry, nil
}

// Put stores an entry in the near tier and optionally the far tier. A far
// failure is logged, not returned.
func (c *MultiTierCache) Put(ctx context.Context, entry *CacheEntry) error {
	if err := c.near.Put(ctx, entry); err != nil {
		return err
	}

	if c.config.WriteToFar && c.far != nil {
		if err := c.far.Put(ctx, entry); err != nil {
			c.logger.Warn("failed to write far cache", "error", err)
		}
	}

	return nil
}

// Delete removes an entry from both tiers
func (c *MultiTierCache) Delete(ctx context.Context, key CacheKey) error {
	if err := c.near.Delete(ctx, key); err != nil {
		return err
	}

	if c.far != nil {
		if err := c.far.Delete(ctx, key); err != nil {
			c.logger.Warn("failed to delete from far cache", "error", err)
		}
	}

	return nil
}

// HasFar returns true if a far tier is configured
func (c *MultiTierCache) HasFar() bool {
	return c.far != nil
}

// Near returns the near tier
func (c *MultiTierCache) Near() CacheManager {
	return c.near
}

// Far returns the far tier (may be nil)
func (c *MultiTierCache) Far() CacheManager {
	return c.far
}
