package marketdata

import (
	"context"
	"sync"
	"time"

	"smc-advisor/internal/market"
)

// CandleCache stores candle series by key
type CandleCache interface {
	Get(ctx context.Context, key string) ([]market.Candle, bool)
	Set(ctx context.Context, key string, candles []market.Candle, ttl time.Duration)
}

// cacheEntry represents a cached candle dataset
type cacheEntry struct {
	candles   []market.Candle
	expiresAt time.Time
}

// MemoryCandleCache is a process-local CandleCache with per-entry expiry
type MemoryCandleCache struct {
	data map[string]*cacheEntry
	mu   sync.RWMutex
	now  func() time.Time
}

// NewMemoryCandleCache creates a new in-memory candle cache
func NewMemoryCandleCache() *MemoryCandleCache {
	return &MemoryCandleCache{
		data: make(map[string]*cacheEntry),
		now:  time.Now,
	}
}

// Get retrieves cached candles if not expired
func (c *MemoryCandleCache) Get(_ context.Context, key string) ([]market.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[key]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.candles, true
}

// Set stores candles in cache with expiration
func (c *MemoryCandleCache) Set(_ context.Context, key string, candles []market.Candle, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		candles:   candles,
		expiresAt: c.now().Add(ttl),
	}
}

// Purge removes expired entries and returns how many were dropped
func (c *MemoryCandleCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.data {
		if now.After(entry.expiresAt) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not
func (c *MemoryCandleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
