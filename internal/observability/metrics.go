package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	StrategyCandidates *prometheus.CounterVec
	VerificationsTotal *prometheus.CounterVec
	NavigationsTotal   *prometheus.CounterVec
	LoginWallsTotal    prometheus.Counter

	// Gemini API metrics
	GeminiRequestsTotal   *prometheus.CounterVec
	GeminiRequestDuration *prometheus.HistogramVec
	GeminiTokensUsed      *prometheus.CounterVec
	GeminiCacheHits       prometheus.Counter
	GeminiCacheMisses     prometheus.Counter

	// System metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "formnav"
	}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),

		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of form URL resolutions",
			},
			[]string{"status"}, // found, not_found, no_candidates
		),
		ResolutionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "End-to-end resolution duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
			},
		),
		StrategyCandidates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategy_candidates_total",
				Help:      "Candidates produced per strategy",
			},
			[]string{"strategy"},
		),
		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Candidate verification outcomes",
			},
			[]string{"outcome"}, // ok, failed
		),
		NavigationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "navigations_total",
				Help:      "Navigation outcomes per candidate",
			},
			[]string{"outcome"}, // found, not_found, login_required
		),
		LoginWallsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_walls_total",
				Help:      "Login walls encountered during navigation",
			},
		),

		GeminiRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gemini_requests_total",
				Help:      "Total number of Gemini API requests",
			},
			[]string{"model", "purpose", "status"},
		),
		GeminiRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gemini_request_duration_seconds",
				Help:      "Gemini API request duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model", "purpose"},
		),
		GeminiTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gemini_tokens_used_total",
				Help:      "Total number of tokens used",
			},
			[]string{"model", "type"}, // type: input, output
		),
		GeminiCacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gemini_cache_hits_total",
				Help:      "Total number of completion cache hits",
			},
		),
		GeminiCacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gemini_cache_misses_total",
				Help:      "Total number of completion cache misses",
			},
		),

		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_active",
				Help:      "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordResolution records the outcome of a full resolution
func (m *Metrics) RecordResolution(status string, duration time.Duration) {
	m.ResolutionsTotal.WithLabelValues(status).Inc()
	m.ResolutionDuration.Observe(duration.Seconds())
}

// RecordStrategyCandidates records how many candidates a strategy produced
func (m *Metrics) RecordStrategyCandidates(strategy string, count int) {
	m.StrategyCandidates.WithLabelValues(strategy).Add(float64(count))
}

// RecordVerification records a verification outcome
func (m *Metrics) RecordVerification(ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordNavigation records a navigation outcome
func (m *Metrics) RecordNavigation(found, needsLogin bool) {
	switch {
	case found:
		m.NavigationsTotal.WithLabelValues("found").Inc()
	case needsLogin:
		m.NavigationsTotal.WithLabelValues("login_required").Inc()
		m.LoginWallsTotal.Inc()
	default:
		m.NavigationsTotal.WithLabelValues("not_found").Inc()
	}
}

// RecordGeminiRequest records Gemini API metrics
func (m *Metrics) RecordGeminiRequest(model, purpose, status string, duration time.Duration, inputTokens, outputTokens int) {
	m.GeminiRequestsTotal.WithLabelValues(model, purpose, status).Inc()
	m.GeminiRequestDuration.WithLabelValues(model, purpose).Observe(duration.Seconds())
	m.GeminiTokensUsed.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.GeminiTokensUsed.WithLabelValues(model, "output").Add(float64(outputTokens))
}

// HTTPMiddleware returns middleware for recording HTTP metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
