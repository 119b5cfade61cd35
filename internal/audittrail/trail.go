// Package audittrail is the append-only compliance log of admin document
// decisions.
//
// Writes are synchronous and fail-closed: when a record cannot be persisted
// the error is returned and the decision that produced it must fail.
package audittrail

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "trustcore/pkg/domain"
	dErrors "trustcore/pkg/domain-errors"
)

type Store interface {
	Append(ctx context.Context, r Record) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Record, error)
}

// Metrics tracks audit persistence.
type Metrics struct {
	RecordsWritten  prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_audit_records_written_total",
			Help: "Audit records persisted",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_audit_persist_failures_total",
			Help: "Audit records that failed to persist; each failed a decision",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustcore_audit_persist_duration_seconds",
			Help:    "Duration of audit record writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// Trail records and reads decisions.
type Trail struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Trail)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trail) {
		t.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Trail) {
		t.metrics = m
	}
}

func New(store Store, opts ...Option) *Trail {
	t := &Trail{store: store}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends a decision. Storage errors are returned wrapped with
// CodeInternal; the cause stays reachable with errors.Is.
func (t *Trail) Record(ctx context.Context, e Entry) (*Record, error) {
	start := time.Now()

	r, err := NewRecord(e)
	if err != nil {
		return nil, err
	}
	if err := t.store.Append(ctx, *r); err != nil {
		if t.metrics != nil {
			t.metrics.PersistFailures.Inc()
		}
		if t.logger != nil {
			t.logger.ErrorContext(ctx, "CRITICAL: audit record persistence failed",
				"user_id", r.UserID.String(),
				"document_type", r.DocumentType.String(),
				"approved", r.Approved,
				"error", err,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "audit record persistence failed")
	}

	if t.metrics != nil {
		t.metrics.RecordsWritten.Inc()
		t.metrics.PersistDuration.Observe(time.Since(start).Seconds())
	}
	return r, nil
}

// History returns the user's records, newest first.
func (t *Trail) History(ctx context.Context, userID id.UserID) ([]Record, error) {
	records, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit history")
	}
	return records, nil
}
