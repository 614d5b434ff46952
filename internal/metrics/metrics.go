// Package metrics exposes assignment and HTTP instrumentation to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "householdpro"

// Collector is the set of metrics the server records.
type Collector interface {
	ObserveAssignment(strategy, code string, score float64, elapsed time.Duration)
	ObserveRetry(strategy string)
	ObserveBatch(assigned, failed int, elapsed time.Duration)
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

type Prometheus struct {
	registry *prometheus.Registry

	assignments     *prometheus.CounterVec
	assignmentScore *prometheus.HistogramVec
	assignmentTime  *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	batchBookings   *prometheus.CounterVec
	batchTime       prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus registers every metric on a private registry together with the
// Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		assignments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "results_total",
			Help:      "Assignment attempts by strategy and result code.",
		}, []string{"strategy", "code"}),
		assignmentScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "winner_score",
			Help:      "Total score of committed winners.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"strategy"}),
		assignmentTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "duration_seconds",
			Help:      "Wall time of one assignment attempt including the commit.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"strategy"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "capacity_retries_total",
			Help:      "Commits retried because the employee's workload changed.",
		}, []string{"strategy"}),
		batchBookings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "bookings_total",
			Help:      "Bookings handled by batch runs by outcome.",
		}, []string{"outcome"}),
		batchTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Wall time of batch runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *Prometheus) ObserveAssignment(strategy, code string, score float64, elapsed time.Duration) {
	p.assignments.WithLabelValues(strategy, code).Inc()
	p.assignmentTime.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if code == "ASSIGNED" {
		p.assignmentScore.WithLabelValues(strategy).Observe(score)
	}
}

func (p *Prometheus) ObserveRetry(strategy string) {
	p.retries.WithLabelValues(strategy).Inc()
}

func (p *Prometheus) ObserveBatch(assigned, failed int, elapsed time.Duration) {
	p.batchBookings.WithLabelValues("assigned").Add(float64(assigned))
	p.batchBookings.WithLabelValues("failed").Add(float64(failed))
	p.batchTime.Observe(elapsed.Seconds())
}

func (p *Prometheus) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry is exposed for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Nop discards everything.
type Nop struct{}

var _ Collector = Nop{}

func (Nop) ObserveAssignment(string, string, float64, time.Duration) {}
func (Nop) ObserveRetry(string) {}
func (Nop) ObserveBatch(int, int, time.Duration) {}
func (Nop) ObserveHTTP(string, string, int, time.Duration) {}
