// Package caching provides the read-through cache for resolved queries:
// an in-process LRU with expiry, optionally backed by a shared Redis tier.
package caching

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/domain"
)

const (
	defaultMaxItems = 1000
	defaultTTL      = time.Hour
)

// Stats reports cache effectiveness.
type Stats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	MemoryHits int64   `json:"memory_hits"`
	RedisHits  int64   `json:"redis_hits"`
	Entries    int     `json:"entries"`
	HitRatio   float64 `json:"hit_ratio"`
	Redis      string  `json:"redis,omitempty"`
}

// ResolutionCache caches resolutions keyed by normalized query text. A key
// is stored at most once per tier; later adds for the same key are ignored.
type ResolutionCache struct {
	memory *expirable.LRU[string, *domain.ResolutionResult]
	redis  *RedisTier
	logger *logrus.Logger

	hits       atomic.Int64
	misses     atomic.Int64
	memoryHits atomic.Int64
	redisHits  atomic.Int64
}

// New creates a cache from cfg. When a Redis URL is configured but the
// server is unreachable the cache runs memory-only and logs a warning.
func New(cfg domain.CacheConfig, logger *logrus.Logger) *ResolutionCache {
	if logger == nil {
		logger = logrus.New()
	}
	c := newMemoryCache(cfg, logger)

	if cfg.RedisURL != "" {
		tier, err := NewRedisTier(cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis cache tier unavailable, using in-memory cache only")
		} else {
			c.redis = tier
		}
	}
	return c
}

// NewWithRedis creates a cache whose second tier is tier.
func NewWithRedis(cfg domain.CacheConfig, tier *RedisTier, logger *logrus.Logger) *ResolutionCache {
	if logger == nil {
		logger = logrus.New()
	}
	c := newMemoryCache(cfg, logger)
	c.redis = tier
	return c
}

func newMemoryCache(cfg domain.CacheConfig, logger *logrus.Logger) *ResolutionCache {
	size := cfg.MaxItems
	if size <= 0 {
		size = defaultMaxItems
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ResolutionCache{
		memory: expirable.NewLRU[string, *domain.ResolutionResult](size, nil, ttl),
		logger: logger,
	}
}

// Get implements domain.ResultCache.
func (c *ResolutionCache) Get(ctx context.Context, key string) (*domain.ResolutionResult, bool) {
	if result, ok := c.memory.Get(key); ok {
		c.hits.Add(1)
		c.memoryHits.Add(1)
		return result, true
	}

	if c.redis != nil {
		if result, ok := c.redis.Get(ctx, key); ok {
			c.hits.Add(1)
			c.redisHits.Add(1)
			c.addMemory(key, result)
			return result, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Add implements domain.ResultCache.
func (c *ResolutionCache) Add(ctx context.Context, key string, result *domain.ResolutionResult) {
	c.addMemory(key, result)

	if c.redis != nil {
		if err := c.redis.SetNX(ctx, key, result); err != nil {
			c.logger.WithError(err).WithField("key", key).Debug("Failed to write resolution to Redis")
		}
	}
}

func (c *ResolutionCache) addMemory(key string, result *domain.ResolutionResult) {
	if !c.memory.Contains(key) {
		c.memory.Add(key, result)
	}
}

// Stats returns a snapshot of cache counters.
func (c *ResolutionCache) Stats() Stats {
	s := Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		MemoryHits: c.memoryHits.Load(),
		RedisHits:  c.redisHits.Load(),
		Entries:    c.memory.Len(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	if c.redis != nil {
		s.Redis = c.redis.State()
	}
	return s
}

// Len returns the number of in-memory entries.
func (c *ResolutionCache) Len() int {
	return c.memory.Len()
}

// Purge empties the in-memory tier.
func (c *ResolutionCache) Purge() {
	c.memory.Purge()
}

// IsHealthy reports whether the configured tiers are reachable.
func (c *ResolutionCache) IsHealthy(ctx context.Context) bool {
	if c.redis == nil {
		return true
	}
	return c.redis.Ping(ctx) == nil
}

// Close releases the Redis tier, if any.
func (c *ResolutionCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
