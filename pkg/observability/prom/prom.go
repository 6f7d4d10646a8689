// Package prom implements the observability hooks on Prometheus collectors.
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pathminer/pkg/observability"
)

// Metrics holds the collectors and the registry they are registered with.
// It implements every hook interface of package observability.
type Metrics struct {
	registry *prometheus.Registry

	SolveTotal     *prometheus.CounterVec
	SolveDuration  *prometheus.HistogramVec
	SolveFitness   *prometheus.GaugeVec
	SolveCancelled *prometheus.CounterVec
	SolvePanics    *prometheus.CounterVec

	CacheOps   *prometheus.CounterVec
	CacheBytes prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a fresh registry with all collectors registered under
// namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Solves by strategy and outcome.",
		}, []string{"strategy", "status"}),
		SolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Solve wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy"}),
		SolveFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solve_best_fitness",
			Help:      "Fitness of the best result of the last solve.",
		}, []string{"strategy"}),
		SolveCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_cancelled_total",
			Help:      "Solves stopped on request.",
		}, []string{"strategy"}),
		SolvePanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solve_panics_total",
			Help:      "Solves that panicked and were recovered.",
		}, []string{"strategy"}),
		CacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes by key type and result.",
		}, []string{"key_type", "op"}),
		CacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.SolveTotal,
		m.SolveDuration,
		m.SolveFitness,
		m.SolveCancelled,
		m.SolvePanics,
		m.CacheOps,
		m.CacheBytes,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Register installs m as the solve, cache and HTTP hooks.
func (m *Metrics) Register() {
	observability.SetSolveHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnSolveStart(context.Context, string, int) {}

func (m *Metrics) OnSolveComplete(_ context.Context, strategy string, _, best int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SolveTotal.WithLabelValues(strategy, status).Inc()
	m.SolveDuration.WithLabelValues(strategy).Observe(d.Seconds())
	if err == nil {
		m.SolveFitness.WithLabelValues(strategy).Set(float64(best))
	}
}

func (m *Metrics) OnSolveCancelled(_ context.Context, strategy string) {
	m.SolveCancelled.WithLabelValues(strategy).Inc()
}

func (m *Metrics) OnSolvePanic(_ context.Context, strategy string, _ any) {
	m.SolvePanics.WithLabelValues(strategy).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheOps.WithLabelValues(keyType, "set").Inc()
	m.CacheBytes.Add(float64(size))
}

func (m *Metrics) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.SolveHooks = (*Metrics)(nil)
	_ observability.CacheHooks = (*Metrics)(nil)
	_ observability.HTTPHooks  = (*Metrics)(nil)
)
