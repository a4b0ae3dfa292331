package geo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Geocode outcomes reported to the metrics recorder.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCacheHit = "cache_hit"
)

// Geocoder turns coordinates into a location.
type Geocoder interface {
	Reverse(ctx context.Context, coords Coordinates) (Location, error)
}

// Cache stores resolved locations between requests.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// MetricsRecorder receives one observation per lookup.
type MetricsRecorder interface {
	ObserveGeocode(outcome string, duration time.Duration)
}

// Resolver combines EXIF extraction with cached reverse geocoding. Lookup
// failures are logged and absorbed; callers always get a Location back.
type Resolver struct {
	extractor ExifExtractor
	geocoder  Geocoder
	cache     Cache
	cacheTTL  time.Duration
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithCache enables the lookup cache.
func WithCache(cache Cache, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(metrics MetricsRecorder) ResolverOption {
	return func(r *Resolver) {
		r.metrics = metrics
	}
}

// WithLogger sets the logger used for absorbed failures.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver constructs a Resolver.
func NewResolver(extractor ExifExtractor, geocoder Geocoder, opts ...ResolverOption) *Resolver {
	r := &Resolver{extractor: extractor, geocoder: geocoder, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExtractCoordinates reads GPS coordinates from the image's EXIF block.
func (r *Resolver) ExtractCoordinates(image []byte) (Coordinates, bool) {
	return r.extractor.ExtractCoordinates(image)
}

// ReverseGeocode resolves coordinates. Any failure yields an empty Location.
func (r *Resolver) ReverseGeocode(ctx context.Context, coords Coordinates) Location {
	start := time.Now()
	key := cacheKey(coords)

	if r.cache != nil {
		var cached Location
		hit, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			r.logger.Debug("geocode cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			r.observe(OutcomeCacheHit, start)
			return cached
		}
	}

	if r.geocoder == nil {
		return Location{}
	}

	loc, err := r.geocoder.Reverse(ctx, coords)
	if err != nil {
		r.observe(OutcomeError, start)
		r.logger.Warn("reverse geocode failed",
			zap.Float64("lat", coords.Lat),
			zap.Float64("lon", coords.Lon),
			zap.Error(err),
		)
		return Location{}
	}
	r.observe(OutcomeOK, start)

	if r.cache != nil {
		_ = r.cache.Set(ctx, key, loc, r.cacheTTL)
	}
	return loc
}

func (r *Resolver) observe(outcome string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveGeocode(outcome, time.Since(start))
	}
}

func cacheKey(c Coordinates) string {
	return fmt.Sprintf("geo:reverse:%.5f:%.5f", c.Lat, c.Lon)
}
