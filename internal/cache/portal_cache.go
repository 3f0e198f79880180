package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tesseract-hub/agency-service/internal/models"
)

const (
	// L1 cache (in-memory) TTL. Kept short: portal reads tolerate a
	// minute of staleness, admin mutations must not linger longer.
	L1CacheTTL = 1 * time.Minute

	// L2 cache (Redis) TTL
	L2CacheTTL = 5 * time.Minute

	// Redis key prefix for portal project views
	PortalKeyPrefix = "portal:project:"
)

type l1Entry struct {
	view      *models.PortalProject
	expiresAt time.Time
}

// PortalCache provides two-tier caching for portal project views: an
// in-process map in front of an optional shared Redis layer.
type PortalCache struct {
	l1 sync.Map

	redisClient  *redis.Client
	redisEnabled bool
}

// NewPortalCache creates a new portal cache. A nil redis client disables
// the L2 tier.
func NewPortalCache(redisClient *redis.Client) *PortalCache {
	cache := &PortalCache{
		redisClient:  redisClient,
		redisEnabled: redisClient != nil,
	}
	go cache.cleanupL1()
	return cache
}

// Get retrieves a cached view (L1 first, then Redis).
func (c *PortalCache) Get(ctx context.Context, slug string) (*models.PortalProject, bool) {
	if entry, ok := c.l1.Load(slug); ok {
		e := entry.(l1Entry)
		if time.Now().Before(e.expiresAt) {
			return e.view, true
		}
		c.l1.Delete(slug)
	}

	if c.redisEnabled {
		data, err := c.redisClient.Get(ctx, PortalKeyPrefix+slug).Bytes()
		if err == nil {
			var view models.PortalProject
			if json.Unmarshal(data, &view) == nil {
				c.setL1(slug, &view)
				return &view, true
			}
		}
	}
	return nil, false
}

// Set stores a view in both tiers.
func (c *PortalCache) Set(ctx context.Context, slug string, view *models.PortalProject) {
	c.setL1(slug, view)

	if c.redisEnabled {
		if data, err := json.Marshal(view); err == nil {
			c.redisClient.Set(ctx, PortalKeyPrefix+slug, data, L2CacheTTL)
		}
	}
}

// Invalidate drops a slug from both tiers.
func (c *PortalCache) Invalidate(ctx context.Context, slug string) {
	c.l1.Delete(slug)
	if c.redisEnabled {
		c.redisClient.Del(ctx, PortalKeyPrefix+slug)
	}
}

func (c *PortalCache) setL1(slug string, view *models.PortalProject) {
	c.l1.Store(slug, l1Entry{view: view, expiresAt: time.Now().Add(L1CacheTTL)})
}

func (c *PortalCache) cleanupL1() {
	ticker := time.NewTicker(L1CacheTTL)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.l1.Range(func(key, value interface{}) bool {
			if now.After(value.(l1Entry).expiresAt) {
				c.l1.Delete(key)
			}
			return true
		})
	}
}
