package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document review lifecycle.
type Metrics struct {
	Submitted        *prometheus.CounterVec
	Decisions        *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
}

// New registers the document metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_documents_submitted_total",
			Help: "Documents submitted for review, by type",
		}, []string{"type"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_document_decisions_total",
			Help: "Admin decisions on documents, by type and outcome",
		}, []string{"type", "outcome"}),
		DecisionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustcore_document_decision_duration_seconds",
			Help:    "Duration of approve/reject including the owner's workflow update",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementSubmitted(docType string) {
	m.Submitted.WithLabelValues(docType).Inc()
}

func (m *Metrics) IncrementDecision(docType string, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	m.Decisions.WithLabelValues(docType, outcome).Inc()
}

// ObserveDecision records the duration of a decision.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDecision(start time.Time) {
	m.DecisionDuration.Observe(time.Since(start).Seconds())
}
