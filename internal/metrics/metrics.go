package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	generations     *prometheus.CounterVec
	streamFallbacks prometheus.Counter
	attempts        *prometheus.CounterVec
	ingestions      *prometheus.CounterVec
	statsCache      *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studymate_generations_total",
		Help: "Grounded generation calls by kind and outcome",
	}, []string{"kind", "outcome"})

	streamFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "studymate_stream_fallbacks_total",
		Help: "Chat streams that fell back to a non-streaming call",
	})

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studymate_quiz_attempts_total",
		Help: "Quiz attempt recordings by outcome",
	}, []string{"outcome"})

	ingestions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studymate_document_ingestions_total",
		Help: "Document ingestion jobs by outcome",
	}, []string{"outcome"})

	statsCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studymate_stats_cache_lookups_total",
		Help: "Dashboard stats cache lookups by result",
	}, []string{"result"})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestDuration,
		generations,
		streamFallbacks,
		attempts,
		ingestions,
		statsCache,
	)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		generations:     generations,
		streamFallbacks: streamFallbacks,
		attempts:        attempts,
		ingestions:      ingestions,
		statsCache:      statsCache,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) ObserveGeneration(kind, outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) StreamFallback() {
	if m == nil {
		return
	}
	m.streamFallbacks.Inc()
}

func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveIngestion(outcome string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStatsCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.statsCache.WithLabelValues(result).Inc()
}
