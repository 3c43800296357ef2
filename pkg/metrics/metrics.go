package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	URLsInQueue         prometheus.Gauge
	CrawlsTotal         *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	RobotsDecisions     *prometheus.CounterVec
	RecordsStored       prometheus.Counter
}

// New registers the crawler metrics with reg. Pass prometheus.DefaultRegisterer
// in production and prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		URLsInQueue: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "urls_in_queue",
				Help: "Current number of URLs pending in the frontier.",
			},
		),
		CrawlsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawls_total",
				Help: "Total number of crawl steps that processed a URL.",
			},
			[]string{"status", "error_type"}, // status: success, failure
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_duration_seconds",
				Help:    "Duration of politeness-checked fetches.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"domain"},
		),
		RobotsDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robots_decisions_total",
				Help: "robots.txt verdicts by cache state.",
			},
			[]string{"verdict", "cache"},
		),
		RecordsStored: f.NewCounter(
			prometheus.CounterOpts{
				Name: "records_stored_total",
				Help: "Extracted records handed to storage successfully.",
			},
		),
	}
}

func (m *Metrics) IncCrawl(status, errorType string) {
	if m == nil {
		return
	}
	m.CrawlsTotal.WithLabelValues(status, errorType).Inc()
}

func (m *Metrics) ObserveFetch(domain string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(domain).Observe(seconds)
}

func (m *Metrics) IncRobots(allowed, cached bool) {
	if m == nil {
		return
	}
	verdict, cache := "denied", "miss"
	if allowed {
		verdict = "allowed"
	}
	if cached {
		cache = "hit"
	}
	m.RobotsDecisions.WithLabelValues(verdict, cache).Inc()
}

func (m *Metrics) AddStored(n int) {
	if m == nil {
		return
	}
	m.RecordsStored.Add(float64(n))
}

func (m *Metrics) SetQueueLength(n int64) {
	if m == nil {
		return
	}
	m.URLsInQueue.Set(float64(n))
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}
