// Package metrics exposes cache activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the cache's Prometheus collectors. It satisfies the cache
// package's Observer interface.
type Metrics struct {
	CacheHits     *prometheus.CounterVec   // labels: instrument
	Refreshes     *prometheus.CounterVec   // labels: instrument, kind
	FetchFailures *prometheus.CounterVec   // labels: source, kind
	FetchDuration *prometheus.HistogramVec // labels: source, kind
	CorruptFiles  *prometheus.CounterVec   // labels: instrument
	SeriesRows    *prometheus.GaugeVec     // labels: instrument

	registry *prometheus.Registry
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taiexcache_hits_total",
			Help: "Requests served from memory without upstream I/O",
		}, []string{"instrument"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taiexcache_refreshes_total",
			Help: "Successful bulk and snapshot refreshes",
		}, []string{"instrument", "kind"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taiexcache_fetch_failures_total",
			Help: "Upstream fetch failures, recovered by serving cached data",
		}, []string{"source", "kind"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taiexcache_fetch_duration_seconds",
			Help:    "Upstream fetch latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"source", "kind"}),
		CorruptFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taiexcache_corrupt_cache_total",
			Help: "Persisted cache entries that failed to decode",
		}, []string{"instrument"}),
		SeriesRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taiexcache_series_rows",
			Help: "Rows held in memory per instrument",
		}, []string{"instrument"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.CacheHits,
		m.Refreshes,
		m.FetchFailures,
		m.FetchDuration,
		m.CorruptFiles,
		m.SeriesRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit(instrument string) {
	m.CacheHits.WithLabelValues(instrument).Inc()
}

func (m *Metrics) Refreshed(instrument, kind string, rows int) {
	m.Refreshes.WithLabelValues(instrument, kind).Inc()
	m.SeriesRows.WithLabelValues(instrument).Set(float64(rows))
}

func (m *Metrics) FetchFailed(source, kind string) {
	m.FetchFailures.WithLabelValues(source, kind).Inc()
}

func (m *Metrics) FetchObserved(source, kind string, d time.Duration) {
	m.FetchDuration.WithLabelValues(source, kind).Observe(d.Seconds())
}

func (m *Metrics) CorruptCache(instrument string) {
	m.CorruptFiles.WithLabelValues(instrument).Inc()
}

func (m *Metrics) Cleared(instrument string) {
	m.SeriesRows.DeleteLabelValues(instrument)
}
