// Package metrics exposes Prometheus instrumentation for the research pipeline.
// Every method is safe to call on a nil *Metrics so components can run uninstrumented.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline collectors.
type Metrics struct {
	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
	stageFailures     *prometheus.CounterVec
	cacheLoadFailures prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deepresearch_runs_total",
				Help: "Research pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deepresearch_run_duration_seconds",
				Help:    "Wall time of a research pipeline run",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deepresearch_cache_lookups_total",
				Help: "Summary cache lookups by result",
			},
			[]string{"result"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deepresearch_stage_failures_total",
				Help: "Degraded pipeline stages by kind",
			},
			[]string{"kind"},
		),
		cacheLoadFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "deepresearch_cache_load_failures_total",
				Help: "Times the persisted cache could not be read and was started empty",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.runsTotal, m.runDuration, m.cacheLookups, m.stageFailures, m.cacheLoadFailures)
	}
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// CacheHit counts a lookup served from cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss counts a lookup that required extraction.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// StageFailure counts a degraded stage.
func (m *Metrics) StageFailure(kind string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(kind).Inc()
}

// CacheLoadFailure counts a corrupt or unreadable cache at startup.
func (m *Metrics) CacheLoadFailure() {
	if m == nil {
		return
	}
	m.cacheLoadFailures.Inc()
}
