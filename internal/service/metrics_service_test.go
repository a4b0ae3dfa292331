package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsServiceRecordsPipelineCounters(t *testing.T) {
	m := NewMetricsService()

	m.ObserveGeocode("ok", 20*time.Millisecond)
	m.ObserveGeocode("ok", 30*time.Millisecond)
	m.ObserveGeocode("error", time.Second)
	m.RecordComplaint("image", "Electrical", "Critical", "client")
	m.RecordComplaint("text", "Road", "Low", "")
	m.RecordSubmissionDenied()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.geocodeTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.geocodeTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.complaintsTotal.WithLabelValues("image", "Electrical", "Critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.locationSources.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionDenied))
}

func TestMetricsServiceCacheHitRatio(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.Equal(t, 0.75, testutil.ToFloat64(m.cacheHitRatio))
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/complaints", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	var nilMetrics *MetricsService
	rec = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	nilMetrics.ObserveGeocode("ok", time.Second)
}
