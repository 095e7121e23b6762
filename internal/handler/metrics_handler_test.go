package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recurring-todo-api/internal/service"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestMetricsHandlerReady(t *testing.T) {
	healthy := pingerFunc(func(context.Context) error { return nil })
	broken := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	router := testRouter()
	router.GET("/ready", NewMetricsHandler(nil, map[string]Pinger{"postgres": healthy}).Ready)
	resp := performRequest(router, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"postgres":"ok"`)

	router = testRouter()
	router.GET("/ready", NewMetricsHandler(nil, map[string]Pinger{"postgres": healthy, "redis": broken}).Ready)
	resp = performRequest(router, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), `"redis":"connection refused"`)
	assert.Contains(t, resp.Body.String(), `"status":"unavailable"`)
}

func TestMetricsHandlerSnapshotAndPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveExpansion(4, 0)
	h := NewMetricsHandler(metrics, nil)

	router := testRouter()
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Prometheus)
	router.GET("/metrics/snapshot", h.Snapshot)

	resp := performRequest(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = performRequest(router, http.MethodGet, "/metrics/snapshot", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"virtual_generated":4`)

	resp = performRequest(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "occurrences_virtual_generated_total 4")
}

func TestMetricsHandlerPrometheusUnavailableWithoutService(t *testing.T) {
	router := testRouter()
	router.GET("/metrics", NewMetricsHandler(nil, nil).Prometheus)

	resp := performRequest(router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
