package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification workflow.
type Metrics struct {
	Registrations  prometheus.Counter
	Transitions    *prometheus.CounterVec
	StatusChanges  *prometheus.CounterVec
	ScoreIncreases prometheus.Counter
	TrustScores    prometheus.Histogram
}

// New registers the workflow metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_users_registered_total",
			Help: "Users registered",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_workflow_operations_total",
			Help: "Workflow operations, by operation and outcome (changed, unchanged, rejected, failed)",
		}, []string{"operation", "outcome"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_user_status_changes_total",
			Help: "User status transitions, by target status",
		}, []string{"status"}),
		ScoreIncreases: f.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_trust_score_increases_total",
			Help: "Trust score recomputations that raised the stored score",
		}),
		TrustScores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustcore_trust_score",
			Help:    "Trust score written after each recomputation that changed it",
			Buckets: []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
		}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	m.Registrations.Inc()
}

func (m *Metrics) IncrementOperation(operation, outcome string) {
	m.Transitions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncrementStatusChange(status string) {
	m.StatusChanges.WithLabelValues(status).Inc()
}

// ObserveScore records a new stored score and whether it went up.
func (m *Metrics) ObserveScore(score float64, increased bool) {
	m.TrustScores.Observe(score)
	if increased {
		m.ScoreIncreases.Inc()
	}
}
