package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/metrics"

	"github.com/goccy/go-json"
)

// Key prefixes of the entries written by the aggregation service
const (
	PrefixDeviceList   = "onus:list:"
	PrefixDeviceGeo    = "onus:geo:"
	PrefixRawDetails   = "raw:details:"
	PrefixRawStatuses  = "raw:status:"
	PrefixRawLocations = "raw:gps:"
	KeyOLTs            = "olts:list"
	PrefixDeviceStatus = "onu:status:"
	PrefixDeviceDetail = "onu:detail:"
)

// Cache stores JSON encoded results in a Store. Storage faults never reach
// the caller: a failed read is a miss and a failed write is dropped.
type Cache struct {
	store  Store
	logger domain.Logger
}

// New creates a result cache on top of store
func New(store Store, logger domain.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger.WithField("component", "cache"),
	}
}

// Get decodes the entry under key into dst and reports whether it was found
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		metrics.CacheMisses.WithLabelValues(prefixOf(key)).Inc()
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheErrors.WithLabelValues("decode").Inc()
		metrics.CacheMisses.WithLabelValues(prefixOf(key)).Inc()
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		return false
	}

	metrics.CacheHits.WithLabelValues(prefixOf(key)).Inc()
	return true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("encode").Inc()
		c.logger.WithError(err).WithField("key", key).Warn("Cache value not encodable")
		return
	}

	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// Invalidate removes one entry
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// FlushAll removes every entry
func (c *Cache) FlushAll(ctx context.Context) error {
	if err := c.store.Flush(ctx); err != nil {
		metrics.CacheErrors.WithLabelValues("flush").Inc()
		return err
	}
	c.logger.Info("Cache flushed")
	return nil
}

// Close releases the underlying store
func (c *Cache) Close() error {
	return c.store.Close()
}

// prefixOf keeps metric label cardinality bounded to the key family
func prefixOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[0] + ":" + parts[1]
}
