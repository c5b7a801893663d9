// Package cache stores generated responses under epoch-aware keys. The
// byte-level Cache implementations (memory, disk, layered) know nothing
// about responses; ResponseCache adds the key scheme and encoding.
package cache

import (
	"path/filepath"
	"time"

	"github.com/ppiankov/quaestio/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// NewFromConfig builds the configured byte cache: memory only when no
// directory is set, memory over disk otherwise. Disabled caching returns nil.
func NewFromConfig(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, filepath.Join(cfg.Dir, "responses"), cfg.DiskTTL)
}
