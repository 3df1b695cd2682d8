package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all engine metrics
type Metrics struct {
	// Submission pipeline metrics
	SubmissionsTotal *prometheus.CounterVec
	StageLatency     *prometheus.HistogramVec
	Suppressions     prometheus.Counter

	// Profile cache metrics
	ProfileCacheHits   prometheus.Counter
	ProfileCacheMisses prometheus.Counter
	ProfileBuildErrors *prometheus.CounterVec

	// Scheduler handoff metrics
	ScheduledHandoffs prometheus.Counter
	HandoffFailures   prometheus.Counter
}

// New creates and registers all engine metrics under the given
// namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of notification submissions by outcome",
		}, []string{"outcome"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"stage"}),
		Suppressions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressions_total",
			Help:      "Total number of notifications rejected as near-duplicates",
		}),
		ProfileCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_cache_hits_total",
			Help:      "Total number of profile cache hits",
		}),
		ProfileCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_cache_misses_total",
			Help:      "Total number of profile cache misses",
		}),
		ProfileBuildErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_source_errors_total",
			Help:      "Total number of degraded profile sub-reads by source",
		}, []string{"source"}),
		ScheduledHandoffs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_handoffs_total",
			Help:      "Total number of notifications handed to the delivery scheduler",
		}),
		HandoffFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_handoff_failures_total",
			Help:      "Total number of failed delivery scheduler handoffs",
		}),
	}
}
