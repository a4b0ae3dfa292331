package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// complaint pipeline.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	geocodeDuration  *prometheus.HistogramVec
	geocodeTotal     *prometheus.CounterVec
	complaintsTotal  *prometheus.CounterVec
	locationSources  *prometheus.CounterVec
	submissionDenied prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	geocodeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocode_duration_seconds",
		Help:    "Duration of reverse geocoding lookups",
		Buckets: []float64{0.005, 0.05, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	geocodeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_lookups_total",
		Help: "Reverse geocoding lookups by outcome",
	}, []string{"outcome"})

	complaintsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaints_classified_total",
		Help: "Submitted complaints by classifier, issue type and severity",
	}, []string{"source", "issue_type", "severity"})

	locationSources := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaints_location_source_total",
		Help: "Submitted complaints by location source",
	}, []string{"source"})

	submissionDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "complaint_submissions_rate_limited_total",
		Help: "Submissions rejected by the daily limit",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		geocodeDuration, geocodeTotal,
		complaintsTotal, locationSources, submissionDenied,
		goroutines,
	)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		geocodeDuration:  geocodeDuration,
		geocodeTotal:     geocodeTotal,
		complaintsTotal:  complaintsTotal,
		locationSources:  locationSources,
		submissionDenied: submissionDenied,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGeocode records one reverse geocoding lookup.
func (m *MetricsService) ObserveGeocode(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.geocodeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.geocodeTotal.WithLabelValues(outcome).Inc()
}

// RecordComplaint counts a finalized complaint.
func (m *MetricsService) RecordComplaint(source, issueType, severity, locationSource string) {
	if m == nil {
		return
	}
	m.complaintsTotal.WithLabelValues(source, issueType, severity).Inc()
	if locationSource == "" {
		locationSource = "none"
	}
	m.locationSources.WithLabelValues(locationSource).Inc()
}

// RecordSubmissionDenied counts a submission rejected by the daily limit.
func (m *MetricsService) RecordSubmissionDenied() {
	if m == nil {
		return
	}
	m.submissionDenied.Inc()
}
