package cache

import "time"

// expiryGetter is implemented by layers that know when an entry expires
type expiryGetter interface {
	GetWithExpiry(key string) ([]byte, time.Time, bool)
}

// LayeredCache keeps recent responses in memory over a persistent disk
// layer shared across processes
type LayeredCache struct {
	memory    Cache
	disk      Cache
	memoryTTL time.Duration
	now       func() time.Time
}

// NewLayeredCache creates a memory layer over a disk cache in diskDir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory:    NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:      NewDiskCache(diskDir, diskTTL),
		memoryTTL: memoryTTL,
		now:       time.Now,
	}
}

// Get checks memory, then disk. A disk hit is promoted to memory for at
// most the memory TTL and never past the disk entry's own expiry.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	val, expires, found := c.getDisk(key)
	if !found {
		return nil, false
	}

	if ttl, ok := c.promotionTTL(expires); ok {
		_ = c.memory.Set(key, val, ttl)
	}
	return val, true
}

func (c *LayeredCache) getDisk(key string) ([]byte, time.Time, bool) {
	if eg, ok := c.disk.(expiryGetter); ok {
		return eg.GetWithExpiry(key)
	}
	val, found := c.disk.Get(key)
	return val, time.Time{}, found
}

// promotionTTL returns the memory lifetime for a promoted entry. A zero
// result uses the memory default.
func (c *LayeredCache) promotionTTL(expires time.Time) (time.Duration, bool) {
	if expires.IsZero() {
		return 0, true
	}
	remaining := expires.Sub(c.now())
	if remaining <= 0 {
		return 0, false
	}
	if c.memoryTTL > 0 && remaining > c.memoryTTL {
		return c.memoryTTL, true
	}
	return remaining, true
}

// Set stores a value in both layers. A disk failure is reported, but the
// memory layer keeps the value.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	memTTL := ttl
	if c.memoryTTL > 0 && (memTTL == 0 || memTTL > c.memoryTTL) {
		memTTL = c.memoryTTL
	}
	if err := c.memory.Set(key, value, memTTL); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
