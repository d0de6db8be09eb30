package webcache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/models"
)

// Store is the backing storage for cached results
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, payload string, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Cleanup(ctx context.Context) error
}

// Cache keys per-URL pipeline results by url plus expiry bucket, so every
// entry lapses when its date bucket rolls over.
type Cache struct {
	cfg    config.CacheConfig
	store  Store
	logger *log.Logger
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

func New(cfg config.CacheConfig, store Store) *Cache {
	return &Cache{
		cfg:    cfg,
		store:  store,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
		now:    time.Now,
	}
}

// Key derives the cache key for a URL in the current expiry bucket
func (c *Cache) Key(url string) string {
	bucket := c.now().UTC().Unix() / (86400 * int64(c.cfg.ExpireDays))
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d", url, bucket)))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) TTL() time.Duration {
	return time.Duration(c.cfg.ExpireDays) * 24 * time.Hour
}

// Get returns the cached payload for a URL, counting the hit or miss
func (c *Cache) Get(ctx context.Context, url string) (string, bool) {
	payload, err := c.store.Get(ctx, c.Key(url))
	if err != nil {
		if err != models.ErrNotCached {
			c.logger.Printf("get failed for %s: %v", url, err)
		}
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return payload, true
}

// Set stores the payload for a URL, running cleanup first so the store
// stays within its entry budget.
func (c *Cache) Set(ctx context.Context, url, payload string) error {
	if err := c.store.Cleanup(ctx); err != nil {
		c.logger.Printf("cleanup failed: %v", err)
	}
	return c.store.Set(ctx, c.Key(url), payload, c.TTL())
}

// IsCached reports whether a URL has a live entry without touching stats
func (c *Cache) IsCached(ctx context.Context, url string) bool {
	ok, err := c.store.Has(ctx, c.Key(url))
	if err != nil {
		return false
	}
	return ok
}

// Clear drops every entry
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Stats returns hit/miss counters and current size
func (c *Cache) Stats(ctx context.Context) models.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	size, err := c.store.Len(ctx)
	if err != nil {
		size = -1
	}
	return models.CacheStats{
		Hits:    hits,
		Misses:  misses,
		Total:   total,
		HitRate: rate,
		Size:    size,
	}
}

// ResetStats zeroes the hit/miss counters
func (c *Cache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// Cleanup evicts expired and excess entries
func (c *Cache) Cleanup(ctx context.Context) error {
	return c.store.Cleanup(ctx)
}
