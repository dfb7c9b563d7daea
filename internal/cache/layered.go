package cache

import "time"

// LayeredCache reads memory first and falls back to disk
type LayeredCache struct {
	memory    Cache
	disk      Cache
	memoryTTL time.Duration
}

// NewLayeredCache combines a fast and a persistent cache. Disk hits are
// promoted to memory for memoryTTL.
func NewLayeredCache(memory, disk Cache, memoryTTL time.Duration) *LayeredCache {
	return &LayeredCache{memory: memory, disk: disk, memoryTTL: memoryTTL}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.memory.Get(key); ok {
		return val, true
	}
	if val, ok := c.disk.Get(key); ok {
		_ = c.memory.Set(key, val, c.memoryTTL)
		return val, true
	}
	return nil, false
}

// Set writes memory with its own TTL and disk with ttl
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	memTTL := c.memoryTTL
	if ttl > 0 && ttl < memTTL {
		memTTL = ttl
	}
	if err := c.memory.Set(key, value, memTTL); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
