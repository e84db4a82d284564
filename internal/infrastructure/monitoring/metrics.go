// Package monitoring provides prometheus instrumentation for the
// server: HTTP request metrics plus uart session and transfer counters.
package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionFailures *prometheus.CounterVec

	// Transfer metrics, labeled by line index
	BytesRead    *prometheus.CounterVec
	BytesWritten *prometheus.CounterVec

	// Geometry detection outcomes
	SizeDetects *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry  *prometheus.Registry
	done      chan struct{}
	closeOnce sync.Once
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uartd_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uartd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uartd_sessions_active",
			Help: "Currently active uart sessions",
		}),

		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "uartd_sessions_created_total",
			Help: "Total sessions created",
		}),

		SessionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uartd_session_failures_total",
			Help: "Refused session-creation attempts",
		}, []string{"reason"}),

		BytesRead: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uartd_bytes_read_total",
			Help: "Bytes drained from uart lines",
		}, []string{"line"}),

		BytesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uartd_bytes_written_total",
			Help: "Bytes transmitted to uart lines",
		}, []string{"line"}),

		SizeDetects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uartd_size_detects_total",
			Help: "Terminal geometry detection outcomes",
		}, []string{"result"}),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uartd_ws_connections",
			Help: "Open websocket stream connections",
		}),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uartd_uptime_seconds",
			Help: "Server uptime",
		}),

		startTime: time.Now(),
		registry:  registry,
		done:      make(chan struct{}),
	}

	go m.trackUptime()
	return m
}

// Handler returns the scrape endpoint for this metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one handled request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSessionCreated counts a successful session construction.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionClosed counts a teardown.
func (m *Metrics) RecordSessionClosed() {
	m.SessionsActive.Dec()
}

// RecordSessionFailure counts a refused creation attempt.
func (m *Metrics) RecordSessionFailure(reason string) {
	m.SessionFailures.WithLabelValues(reason).Inc()
}

// RecordRead counts bytes drained from a line.
func (m *Metrics) RecordRead(line string, n int) {
	m.BytesRead.WithLabelValues(line).Add(float64(n))
}

// RecordWrite counts bytes transmitted to a line.
func (m *Metrics) RecordWrite(line string, n int) {
	m.BytesWritten.WithLabelValues(line).Add(float64(n))
}

// RecordSizeDetect counts a geometry probe outcome.
func (m *Metrics) RecordSizeDetect(ok bool) {
	result := "failed"
	if ok {
		result = "detected"
	}
	m.SizeDetects.WithLabelValues(result).Inc()
}

// RecordWSConnect tracks an opened stream connection.
func (m *Metrics) RecordWSConnect() { m.WSConnections.Inc() }

// RecordWSDisconnect tracks a closed stream connection.
func (m *Metrics) RecordWSDisconnect() { m.WSConnections.Dec() }

// Close stops the uptime tracker. Safe to call more than once.
func (m *Metrics) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Metrics) trackUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.done:
			return
		}
	}
}
