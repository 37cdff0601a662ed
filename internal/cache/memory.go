package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache used as the fast layer for provider
// responses
type Memory struct {
	cache *gocache.Cache
}

// NewMemory creates a memory cache with the given default TTL
func NewMemory(defaultTTL time.Duration, cleanupInterval time.Duration) *Memory {
	return &Memory{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *Memory) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

func (c *Memory) Set(key string, value []byte, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}

func (c *Memory) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *Memory) Clear() error {
	c.cache.Flush()
	return nil
}
