// Package notification delivers user-facing events to an external channel.
//
// Delivery is fire-and-forget and at-most-once: Notify never blocks on the
// sink and never returns an error. Failed batches are logged and dropped.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "trustcore/pkg/domain"
	"trustcore/pkg/platform/circuit"
	"trustcore/pkg/requestcontext"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 200 * time.Millisecond
	defaultDrainTimeout  = 5 * time.Second
)

// Sink transports a batch of events.
type Sink interface {
	Send(ctx context.Context, events []Event) error
	Name() string
}

// Dispatcher buffers events in memory and ships them to a Sink from a single
// background worker, guarded by a circuit breaker.
type Dispatcher struct {
	sink          Sink
	buffer        *RingBuffer
	breaker       *circuit.Breaker
	batchSize     int
	flushInterval time.Duration
	drainTimeout  time.Duration
	logger        *slog.Logger
	metrics       *Metrics

	wake chan struct{}
	mu   sync.Mutex // serializes flushes
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithBufferSize(n int) Option {
	return func(d *Dispatcher) {
		d.buffer = NewRingBuffer(n)
	}
}

func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

func WithFlushInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.flushInterval = interval
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) {
		d.breaker = b
	}
}

func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:          sink,
		buffer:        NewRingBuffer(defaultBufferSize),
		breaker:       circuit.New("notification:" + sink.Name()),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		drainTimeout:  defaultDrainTimeout,
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify queues an event for the user. It never blocks on delivery.
func (d *Dispatcher) Notify(ctx context.Context, userID id.UserID, kind Kind, payload map[string]string) {
	event := newEvent(userID, kind, payload, requestcontext.Now(ctx))
	if d.buffer.Enqueue(event) {
		d.metrics.addDropped(dropBufferFull, 1)
		d.logWarn(ctx, "notification buffer full, dropped oldest event")
	}
	d.metrics.incEnqueued(kind)
	d.metrics.setBuffered(d.buffer.Len())

	if d.buffer.Len() >= d.batchSize {
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
}

// Run ships buffered events until ctx is done, then drains what is left
// within the drain timeout.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
			defer cancel()
			d.Flush(drainCtx)
			return nil
		case <-ticker.C:
			d.Flush(ctx)
		case <-d.wake:
			d.Flush(ctx)
		}
	}
}

// Flush sends everything currently buffered, batch by batch.
func (d *Dispatcher) Flush(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}
		batch := d.buffer.DequeueBatch(d.batchSize)
		if len(batch) == 0 {
			d.metrics.setBuffered(0)
			return
		}
		d.send(ctx, batch)
		d.metrics.setBuffered(d.buffer.Len())
	}
}

func (d *Dispatcher) send(ctx context.Context, batch []Event) {
	if !d.breaker.Allow() {
		d.metrics.addDropped(dropCircuitOpen, len(batch))
		return
	}

	if err := d.sink.Send(ctx, batch); err != nil {
		_, change := d.breaker.RecordFailure()
		d.metrics.addDropped(dropSendFailed, len(batch))
		if change.Opened {
			d.metrics.setBreakerOpen(true)
		}
		d.logWarn(ctx, "notification delivery failed",
			"sink", d.sink.Name(),
			"events", len(batch),
			"circuit_opened", change.Opened,
			"error", err,
		)
		return
	}

	_, change := d.breaker.RecordSuccess()
	if change.Closed {
		d.metrics.setBreakerOpen(false)
		d.logInfo(ctx, "notification sink recovered", "sink", d.sink.Name())
	}
	d.metrics.addSent(len(batch))
}

func (d *Dispatcher) logWarn(ctx context.Context, msg string, args ...any) {
	if d.logger != nil {
		d.logger.WarnContext(ctx, msg, args...)
	}
}

func (d *Dispatcher) logInfo(ctx context.Context, msg string, args ...any) {
	if d.logger != nil {
		d.logger.InfoContext(ctx, msg, args...)
	}
}
