package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes used as the "outcome" label
const (
	OutcomeSuccess      = "success"
	OutcomeHTTPError    = "http_error"
	OutcomeFormatError  = "format_error"
	OutcomeNetworkError = "network_error"
	OutcomeOther        = "other"
)

// Collector holds the service's Prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	queriesTotal  *prometheus.CounterVec
	queryDuration prometheus.Histogram
	recordsTotal  *prometheus.CounterVec
	bucketSize    prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewCollector creates a collector backed by its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pull_request_api_queries_total",
				Help: "Total number of pull request API queries by outcome",
			},
			[]string{"outcome"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pull_request_api_query_duration_seconds",
				Help:    "Pull request API query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pull_request_records_total",
				Help: "Pull request records received, by accepted or dropped",
			},
			[]string{"result"},
		),
		bucketSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sprint_bucket_pull_requests",
				Help:    "Number of pull requests assigned to a sprint bucket",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		c.queriesTotal,
		c.queryDuration,
		c.recordsTotal,
		c.bucketSize,
		c.httpRequests,
		c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry, mostly for tests
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveQuery(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(outcome).Inc()
	c.queryDuration.Observe(d.Seconds())
}

func (c *Collector) AddRecords(accepted, dropped int) {
	if c == nil {
		return
	}
	c.recordsTotal.WithLabelValues("accepted").Add(float64(accepted))
	c.recordsTotal.WithLabelValues("dropped").Add(float64(dropped))
}

func (c *Collector) ObserveBucket(size int) {
	if c == nil {
		return
	}
	c.bucketSize.Observe(float64(size))
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
