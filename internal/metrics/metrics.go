package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Outcome label values.
const (
	OutcomeOK                = "ok"
	OutcomeGenerationFailed  = "generation_failed"
	OutcomePersistenceFailed = "persistence_failed"
	OutcomeNotFound          = "not_found"
	OutcomeRejected          = "rejected" // rate limited before any work
)

// Operation label values of research_transitions_total.
const (
	OperationResearch   = "research"
	OperationRefine     = "refine"
	OperationCreatePost = "create_post"
)

// Metrics holds the Prometheus collectors of the research service.
type Metrics struct {
	GenerationRequestsTotal *prometheus.CounterVec
	GenerationDuration      *prometheus.HistogramVec

	TransitionsTotal *prometheus.CounterVec

	RateLimitRejectionsTotal *prometheus.CounterVec
}

// New registers the collectors on the default registry once per process and
// returns the shared instance.
//
// Metrics:
//   - research_generation_requests_total{role,outcome}
//   - research_generation_duration_seconds{role}
//   - research_transitions_total{operation,outcome}
//   - research_ratelimit_rejections_total{scope}
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			GenerationRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "research_generation_requests_total",
					Help: "Generation calls by prompt role and outcome",
				},
				[]string{"role", "outcome"},
			),
			GenerationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "research_generation_duration_seconds",
					Help:    "Latency of generation calls in seconds",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
				},
				[]string{"role"},
			),
			TransitionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "research_transitions_total",
					Help: "State machine operations by outcome",
				},
				[]string{"operation", "outcome"},
			),
			RateLimitRejectionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "research_ratelimit_rejections_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"scope"}, // auth, generation
			),
		}
	})
	return globalMetrics
}

// ObserveGeneration records one generation call. Its signature matches
// ai.Observer once role is converted to a string.
func (m *Metrics) ObserveGeneration(role string, elapsed time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeGenerationFailed
	}
	m.GenerationRequestsTotal.WithLabelValues(role, outcome).Inc()
	m.GenerationDuration.WithLabelValues(role).Observe(elapsed.Seconds())
}

// RecordTransition counts a state machine operation.
func (m *Metrics) RecordTransition(operation, outcome string) {
	m.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}
