package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Metrics over a private registry, so multiple
// service instances in one process do not collide on collector names.
type Prometheus struct {
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	directoryFailures  prometheus.Counter

	contextSwitches *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	delegationChecks *prometheus.CounterVec
	delegationUsage  prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheus creates a Prometheus metrics instance
func NewPrometheus(namespace string) *Prometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Prometheus{
		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inheritance_resolutions_total",
			Help:      "Permission inheritance resolutions by provider",
		}, []string{"provider"}),
		resolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inheritance_resolution_duration_seconds",
			Help:      "Duration of inheritance resolutions",
			Buckets:   prometheus.DefBuckets,
		}),
		directoryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_failures_total",
			Help:      "Directory API lookups degraded to an empty group list",
		}),
		contextSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_switches_total",
			Help:      "Context switches by type and outcome",
		}, []string{"type", "outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_cache_hits_total",
			Help:      "Permission cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_cache_misses_total",
			Help:      "Permission cache misses",
		}),
		delegationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegation_checks_total",
			Help:      "Delegation permission checks by outcome",
		}, []string{"outcome"}),
		delegationUsage: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegation_usage_total",
			Help:      "Recorded delegation usages",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.resolutionsTotal,
		m.resolutionDuration,
		m.directoryFailures,
		m.contextSwitches,
		m.cacheHits,
		m.cacheMisses,
		m.delegationChecks,
		m.delegationUsage,
	)

	return m
}

func (m *Prometheus) RecordResolution(provider string, duration time.Duration) {
	m.resolutionsTotal.WithLabelValues(provider).Inc()
	m.resolutionDuration.Observe(duration.Seconds())
}

func (m *Prometheus) RecordDirectoryFailure() {
	m.directoryFailures.Inc()
}

func (m *Prometheus) RecordContextSwitch(contextType string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.contextSwitches.WithLabelValues(contextType, outcome).Inc()
}

func (m *Prometheus) RecordCacheHit() {
	m.cacheHits.Inc()
}

func (m *Prometheus) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

func (m *Prometheus) RecordDelegationCheck(allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.delegationChecks.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) RecordDelegationUsage() {
	m.delegationUsage.Inc()
}

// HTTPHandler returns the scrape handler for this instance's registry
func (m *Prometheus) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ Metrics = (*Prometheus)(nil)
var _ Metrics = (*NoOp)(nil)
