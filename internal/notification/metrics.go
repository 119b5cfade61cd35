package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	dropBufferFull  = "buffer_full"
	dropCircuitOpen = "circuit_open"
	dropSendFailed  = "send_failed"
)

// Metrics holds Prometheus metrics for notification delivery.
type Metrics struct {
	Enqueued     *prometheus.CounterVec
	Sent         prometheus.Counter
	Dropped      *prometheus.CounterVec
	BufferLength prometheus.Gauge
	BreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_notifications_enqueued_total",
			Help: "Notifications accepted for delivery, by kind",
		}, []string{"kind"}),
		Sent: f.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_notifications_sent_total",
			Help: "Notifications handed to the sink successfully",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_notifications_dropped_total",
			Help: "Notifications dropped, by reason",
		}, []string{"reason"}),
		BufferLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "trustcore_notifications_buffered",
			Help: "Notifications waiting in the dispatcher buffer",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "trustcore_notifications_circuit_breaker_state",
			Help: "Sink circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) incEnqueued(kind Kind) {
	if m != nil {
		m.Enqueued.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) addSent(n int) {
	if m != nil {
		m.Sent.Add(float64(n))
	}
}

func (m *Metrics) addDropped(reason string, n int) {
	if m != nil && n > 0 {
		m.Dropped.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) setBuffered(n int) {
	if m != nil {
		m.BufferLength.Set(float64(n))
	}
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
