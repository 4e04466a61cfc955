package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveGeneration("quiz", "ok")
	m.ObserveGeneration("quiz", "ok")
	m.StreamFallback()
	m.ObserveAttempt("ok")
	m.ObserveStatsCache(true)
	m.ObserveRequest(http.MethodGet, "/healthz", 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations.WithLabelValues("quiz", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.streamFallbacks))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "studymate_generations_total")
	assert.Contains(t, rec.Body.String(), "studymate_stream_fallbacks_total 1")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGeneration("chat", "error")
		m.StreamFallback()
		m.ObserveAttempt("ok")
		m.ObserveIngestion("failed")
		m.ObserveStatsCache(false)
	})
}
