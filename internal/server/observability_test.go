package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/internal/metrics"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestObservabilityEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	t.Cleanup(m.Close)
	m.RecordToolCall("search_content", "stdio", "success", 0)

	o := NewObservabilityServer(ObservabilityConfig{Gatherer: reg}, logger.Nop())
	h := o.Handler()

	code, body := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `contentmcp_tool_calls_total{outcome="success",tool="search_content",transport="stdio"} 1`)

	code, body = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "healthy")

	code, _ = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get(t, h, "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestObservabilityNotReady(t *testing.T) {
	o := NewObservabilityServer(ObservabilityConfig{
		Gatherer:    prometheus.NewRegistry(),
		EnablePprof: true,
		Ready: func(context.Context) error {
			return errors.New("repository unreachable")
		},
	}, logger.Nop())

	code, body := get(t, o.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "repository unreachable")

	code, _ = get(t, o.Handler(), "/debug/pprof/")
	assert.Equal(t, http.StatusOK, code)
}
