package acl

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks Prometheus metrics for the authorization engine.
//
// All metrics use the "perch_acl_" prefix. Methods handle a nil receiver
// gracefully, so a nil *Metrics acts as a no-op with zero overhead when
// instrumentation is disabled.
type Metrics struct {
	// EvaluationDuration tracks time to run one privilege check,
	// including any recursive descendant walk.
	EvaluationDuration prometheus.Histogram

	// EvaluationTotal counts privilege checks by result.
	// Labels: result=[allowed, denied]
	EvaluationTotal *prometheus.CounterVec

	// MergeFailuresTotal counts rejected ACL writes by precondition.
	MergeFailuresTotal *prometheus.CounterVec

	// MatchCacheTotal counts principal-match lookups by cache outcome.
	// Labels: outcome=[hit, miss]
	MatchCacheTotal *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics creates and registers the engine metrics. If registerer is
// nil, prometheus.DefaultRegisterer is used. Idempotent: metrics are
// registered exactly once regardless of call count.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		m := &Metrics{
			EvaluationDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "perch_acl_evaluation_duration_seconds",
					Help:    "Time to evaluate a privilege check",
					Buckets: prometheus.DefBuckets,
				},
			),
			EvaluationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "perch_acl_evaluation_total",
					Help: "Total privilege checks by result",
				},
				[]string{"result"},
			),
			MergeFailuresTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "perch_acl_merge_failures_total",
					Help: "Total ACL merges rejected, by precondition",
				},
				[]string{"condition"},
			),
			MatchCacheTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "perch_acl_match_cache_total",
					Help: "Principal match lookups by cache outcome",
				},
				[]string{"outcome"},
			),
		}

		registerer.MustRegister(
			m.EvaluationDuration,
			m.EvaluationTotal,
			m.MergeFailuresTotal,
			m.MatchCacheTotal,
		)

		metricsInstance = m
	})

	return metricsInstance
}

// ObserveEvaluation records a privilege check with its duration.
func (m *Metrics) ObserveEvaluation(duration time.Duration, allowed bool) {
	if m == nil {
		return
	}
	m.EvaluationDuration.Observe(duration.Seconds())
	if allowed {
		m.EvaluationTotal.WithLabelValues("allowed").Inc()
	} else {
		m.EvaluationTotal.WithLabelValues("denied").Inc()
	}
}

// ObserveMergeFailure records a rejected ACL merge.
func (m *Metrics) ObserveMergeFailure(condition string) {
	if m == nil {
		return
	}
	m.MergeFailuresTotal.WithLabelValues(condition).Inc()
}

// ObserveMatchCache records a principal-match cache lookup.
func (m *Metrics) ObserveMatchCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.MatchCacheTotal.WithLabelValues("hit").Inc()
	} else {
		m.MatchCacheTotal.WithLabelValues("miss").Inc()
	}
}
