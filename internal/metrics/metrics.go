package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build independent instances.
// A nil *Metrics is a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	proxyAttempts  *prometheus.CounterVec
	ingestNetwork  *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	ingestRecords  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		proxyAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "nftvault_proxy_attempts_total", Help: "Media proxy attempts by strategy and outcome"},
			[]string{"strategy", "outcome"},
		),
		ingestNetwork: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "nftvault_ingest_network_total", Help: "Per-network ingestion outcomes"},
			[]string{"network", "status"},
		),
		ingestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "nftvault_ingest_duration_seconds", Help: "Wallet ingestion run duration", Buckets: prometheus.DefBuckets},
		),
		ingestRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "nftvault_ingest_records_total", Help: "Raw records by normalization result"},
			[]string{"network", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "nftvault_http_requests_total", Help: "HTTP requests"},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "nftvault_http_request_duration_seconds", Help: "HTTP request latency", Buckets: prometheus.DefBuckets},
			[]string{"method", "route"},
		),
	}
	m.Registry.MustRegister(
		m.proxyAttempts,
		m.ingestNetwork,
		m.ingestDuration,
		m.ingestRecords,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveProxyAttempt(strategy, outcome string) {
	if m == nil {
		return
	}
	m.proxyAttempts.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) ObserveIngestNetwork(network, status string) {
	if m == nil {
		return
	}
	m.ingestNetwork.WithLabelValues(network, status).Inc()
}

func (m *Metrics) ObserveIngestDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ingestDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveIngestRecords(network, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestRecords.WithLabelValues(network, result).Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
