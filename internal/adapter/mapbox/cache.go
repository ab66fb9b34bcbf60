package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/observability"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ResultCache stores geocoding results by key. Implementations treat backend
// failures as misses.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.GeocodingResult, bool)
	Set(ctx context.Context, key string, result domain.GeocodingResult)
}

// CachedGeocoder wraps a Geocoder with a result cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   ResultCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, cache ResultCache, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	return c.lookup(ctx, "forward", forwardKey(address), func() (domain.GeocodingResult, error) {
		return c.inner.ForwardGeocode(ctx, address)
	})
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.GeocodingResult, error) {
	return c.lookup(ctx, "reverse", reverseKey(coord), func() (domain.GeocodingResult, error) {
		return c.inner.ReverseGeocode(ctx, coord)
	})
}

func (c *CachedGeocoder) lookup(ctx context.Context, method, key string, fetch func() (domain.GeocodingResult, error)) (domain.GeocodingResult, error) {
	if result, ok := c.cache.Get(ctx, key); ok {
		c.metrics.GeocodeCache.WithLabelValues(method, "hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues(method, "miss").Inc()

	result, err := fetch()
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if !result.Empty() {
		c.cache.Set(ctx, key, result)
	}
	return result, nil
}

func forwardKey(address string) string {
	return "fwd:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}

func reverseKey(c domain.Coordinate) string {
	return fmt.Sprintf("rev:%.6f,%.6f", c.Latitude, c.Longitude)
}

// MemoryCache keeps results in process with a TTL.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates an in-process cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (domain.GeocodingResult, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return domain.GeocodingResult{}, false
	}
	result, ok := v.(domain.GeocodingResult)
	return result, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, result domain.GeocodingResult) {
	m.items.Set(key, result, gocache.DefaultExpiration)
}

// RedisCache shares results across instances through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed cache whose entries expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

const redisKeyPrefix = "geocode:"

// cachedResult is the JSON form stored in Redis.
type cachedResult struct {
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	Label      string  `json:"label"`
	PlaceName  string  `json:"place_name"`
	Confidence float64 `json:"confidence"`
}

func (r *RedisCache) Get(ctx context.Context, key string) (domain.GeocodingResult, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("geocode cache read failed", "key", key, "error", err)
		}
		return domain.GeocodingResult{}, false
	}

	var cr cachedResult
	if err := json.Unmarshal(data, &cr); err != nil {
		r.logger.Warn("geocode cache entry corrupt", "key", key, "error", err)
		return domain.GeocodingResult{}, false
	}
	return domain.GeocodingResult{
		Coordinate: domain.Coordinate{Latitude: cr.Latitude, Longitude: cr.Longitude},
		Label:      cr.Label,
		PlaceName:  cr.PlaceName,
		Confidence: cr.Confidence,
	}, true
}

func (r *RedisCache) Set(ctx context.Context, key string, result domain.GeocodingResult) {
	data, err := json.Marshal(cachedResult{
		Latitude:   result.Coordinate.Latitude,
		Longitude:  result.Coordinate.Longitude,
		Label:      result.Label,
		PlaceName:  result.PlaceName,
		Confidence: result.Confidence,
	})
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("geocode cache write failed", "key", key, "error", err)
	}
}
