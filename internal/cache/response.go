package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
	"go.uber.org/zap"
)

// ResponseCache stores generated responses in a byte cache
type ResponseCache struct {
	store  Cache
	schema string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewResponseCache wraps store. Schema is folded into every key; ttl is
// the default lifetime of stored responses.
func NewResponseCache(store Cache, schema string, ttl time.Duration, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{
		store:  store,
		schema: schema,
		ttl:    ttl,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Key computes the cache key under this cache's schema version
func (c *ResponseCache) Key(sig model.QuerySignature, docHashes []string, epochs model.Epochs) model.CacheKey {
	return computeKey(c.schema, sig, docHashes, epochs)
}

// Lookup returns the cached response for key. Undecodable or expired
// entries are misses.
func (c *ResponseCache) Lookup(ctx context.Context, key model.CacheKey) (*model.Response, bool) {
	if c == nil || c.store == nil || ctx.Err() != nil {
		return nil, false
	}

	data, found := c.store.Get(string(key))
	if !found {
		return nil, false
	}

	var entry model.CachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("cache_key", string(key)), zap.Error(err))
		_ = c.store.Delete(string(key))
		return nil, false
	}
	if entry.Key != key || c.expired(entry) {
		return nil, false
	}

	resp := entry.Response
	resp.Source = model.FromCache
	resp.CacheKey = key
	return &resp, true
}

// Store writes resp under key. A zero ttl uses the cache default. Storing
// under a key that already holds a live entry is a no-op, and nothing is
// written once ctx is done.
func (c *ResponseCache) Store(ctx context.Context, key model.CacheKey, resp model.Response, ttl time.Duration) error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, found := c.Lookup(ctx, key); found {
		return nil
	}

	if ttl == 0 {
		ttl = c.ttl
	}
	resp.CacheKey = key

	data, err := json.Marshal(model.CachedResponse{
		Key:       key,
		Response:  resp,
		TTL:       ttl,
		CreatedAt: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal cached response: %w", err)
	}

	if err := c.store.Set(string(key), data, ttl); err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}

	c.logger.Debug("response cached", zap.String("cache_key", string(key)), zap.Duration("ttl", ttl))
	return nil
}

func (c *ResponseCache) expired(entry model.CachedResponse) bool {
	if entry.TTL <= 0 {
		return false
	}
	return c.now().After(entry.CreatedAt.Add(entry.TTL))
}
