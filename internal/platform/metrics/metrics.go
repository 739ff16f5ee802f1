package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters, gauges, and histograms for the harvester.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	playlistsServed     prometheus.Counter
	cyclesTotal         prometheus.Counter
	segmentsCommitted   prometheus.Counter
	evictionsTotal      prometheus.Counter
	fetchFailuresTotal  prometheus.Counter
	decryptFailures     prometheus.Counter
	cycleDurationSecond prometheus.Histogram
	windowSegments      *prometheus.GaugeVec
}

// New creates and registers Prometheus metrics for the harvester.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	playlistsServed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_playlists_served_total",
		Help: "Total number of playlist responses served to players",
	})
	cyclesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_cycles_total",
		Help: "Total number of completed harvest cycles",
	})
	segmentsCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_segments_committed_total",
		Help: "Total number of segments decrypted and committed to a playlist",
	})
	evictionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_evictions_total",
		Help: "Total number of segments evicted from playlist windows",
	})
	fetchFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_fetch_failures_total",
		Help: "Total number of failed segment fetches",
	})
	decryptFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_decrypt_failures_total",
		Help: "Total number of failed decryption invocations",
	})
	cycleDurationSecond := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hls_cycle_duration_seconds",
		Help:    "Processing time per harvest cycle, excluding pacing sleep",
		Buckets: prometheus.DefBuckets,
	})
	windowSegments := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hls_window_segments",
		Help: "Number of segment entries currently in the playlist window",
	}, []string{"track"})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		playlistsServed,
		cyclesTotal,
		segmentsCommitted,
		evictionsTotal,
		fetchFailuresTotal,
		decryptFailures,
		cycleDurationSecond,
		windowSegments,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		playlistsServed:     playlistsServed,
		cyclesTotal:         cyclesTotal,
		segmentsCommitted:   segmentsCommitted,
		evictionsTotal:      evictionsTotal,
		fetchFailuresTotal:  fetchFailuresTotal,
		decryptFailures:     decryptFailures,
		cycleDurationSecond: cycleDurationSecond,
		windowSegments:      windowSegments,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the HTTP error counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncPlaylistsServed increments the served playlist counter.
func (m *Metrics) IncPlaylistsServed() {
	m.playlistsServed.Inc()
}

// IncCycles increments the completed cycle counter.
func (m *Metrics) IncCycles() {
	m.cyclesTotal.Inc()
}

// IncSegmentsCommitted increments the committed segment counter.
func (m *Metrics) IncSegmentsCommitted() {
	m.segmentsCommitted.Inc()
}

// IncEvictions increments the playlist eviction counter.
func (m *Metrics) IncEvictions() {
	m.evictionsTotal.Inc()
}

// IncFetchFailures increments the fetch failure counter.
func (m *Metrics) IncFetchFailures() {
	m.fetchFailuresTotal.Inc()
}

// IncDecryptFailures increments the decryption failure counter.
func (m *Metrics) IncDecryptFailures() {
	m.decryptFailures.Inc()
}

// ObserveCycleDuration records one cycle's processing time in seconds.
func (m *Metrics) ObserveCycleDuration(seconds float64) {
	m.cycleDurationSecond.Observe(seconds)
}

// SetWindowSegments sets the playlist window size gauge for one track.
func (m *Metrics) SetWindowSegments(track string, n int) {
	m.windowSegments.WithLabelValues(track).Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestMiddleware returns chi-compatible middleware that records request
// count and error count (status >= 400) in the given Metrics.
func RequestMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrap, r)
			m.IncRequests()
			if wrap.status >= 400 {
				m.IncErrors()
			}
		})
	}
}
