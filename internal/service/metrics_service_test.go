package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/occurrences", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/occurrences", http.StatusOK, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveExpansion(12, 5*time.Millisecond)
	m.ObserveExpansion(0, time.Millisecond)
	m.ObservePromotion(PromotionCreated)
	m.ObservePromotion(PromotionUpdated)
	m.ObservePromotion(PromotionConflict)
	m.ObservePurge(3)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(12), snap.VirtualGenerated)
	assert.Equal(t, uint64(3), snap.Promotions)
	assert.Equal(t, uint64(1), snap.UpsertConflicts)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceExposesPrometheusText(t *testing.T) {
	m := NewMetricsService()
	m.ObservePromotion(PromotionCancelled)
	m.ObservePurge(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `occurrence_promotions_total{outcome="cancelled"} 1`))
	assert.True(t, strings.Contains(body, "series_purged_total 2"))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.ObserveDBQuery("occurrences.list", time.Millisecond)
		m.ObserveExpansion(1, time.Millisecond)
		m.ObservePromotion(PromotionCreated)
		m.ObservePurge(1)
	})
	assert.Zero(t, m.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
