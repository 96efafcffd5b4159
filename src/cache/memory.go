package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryResultCache is the in-process fallback used when Redis is disabled.
// Hits do not extend an entry's lifetime.
type MemoryResultCache struct {
	items     *ttlcache.Cache[string, []byte]
	closeOnce sync.Once
}

func NewMemoryResultCache() *MemoryResultCache {
	items := ttlcache.New[string, []byte](
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go items.Start()
	return &MemoryResultCache{items: items}
}

// -----------------------------------------------------------------------------

func (c *MemoryResultCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Set stores a copy of value. A non-positive ttl never expires.
func (c *MemoryResultCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Len is the number of live entries.
func (c *MemoryResultCache) Len() int {
	return c.items.Len()
}

// Close stops the expiry loop and drops every entry.
func (c *MemoryResultCache) Close() error {
	c.closeOnce.Do(func() {
		c.items.Stop()
		c.items.DeleteAll()
	})
	return nil
}
