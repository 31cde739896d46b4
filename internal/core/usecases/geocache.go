package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/osoko/wayfind/internal/core/domain"
	"github.com/osoko/wayfind/internal/core/ports"
	"github.com/osoko/wayfind/internal/pkg/metrics"
)

// GeoCache memoizes expensive geo lookups behind a byte cache. Coordinate
// keys are quantized to a fixed precision so near-identical repeated
// lookups (map re-centering) hit the same entry; text keys are lowercased
// and whitespace-collapsed. Entries never expire: discovery results for a
// fixed place are treated as stable for the life of the process.
type GeoCache struct {
	cache     ports.CacheService
	precision int
}

// NewGeoCache creates a cache wrapper. cache may be nil, which disables
// memoization entirely (every lookup misses).
func NewGeoCache(cache ports.CacheService, precision int) *GeoCache {
	if precision <= 0 {
		precision = 4
	}
	return &GeoCache{cache: cache, precision: precision}
}

// CoordKey builds a cache key from a quantized coordinate.
func (g *GeoCache) CoordKey(prefix string, c domain.Coordinate) string {
	return fmt.Sprintf("%s:%.*f:%.*f", prefix, g.precision, c.Lat, g.precision, c.Lng)
}

// QueryKey builds a cache key from a normalized text query.
func (g *GeoCache) QueryKey(prefix, query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return prefix + ":" + normalized
}

// Get unmarshals a cached value into out. Returns false on miss or on a
// value that no longer unmarshals.
func (g *GeoCache) Get(ctx context.Context, op, key string, out any) bool {
	if g.cache == nil {
		return false
	}
	data, err := g.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

// Put stores a value without expiry. Failures are silent; the cache is an
// optimization, not a source of truth.
func (g *GeoCache) Put(ctx context.Context, key string, v any) {
	if g.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = g.cache.Set(ctx, key, data, 0)
	}
}
