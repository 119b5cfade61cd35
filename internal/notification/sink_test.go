package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

type fakePublisher struct {
	queue string
	msgs  []amqp.Publishing
	err   error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.queue = key
	f.msgs = append(f.msgs, msg)
	return nil
}

func sampleEvents() []Event {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []Event{
		{ID: "01J0000000000000000000000A", UserID: "user-1", Kind: KindDocumentApproved, Payload: map[string]string{"document_type": "identity_card"}, OccurredAt: at},
		{ID: "01J0000000000000000000000B", UserID: "user-2", Kind: KindAccountSuspended, OccurredAt: at},
	}
}

func TestKafkaSink_Send(t *testing.T) {
	t.Run("keys records by user", func(t *testing.T) {
		producer := &fakeProducer{}
		sink := NewKafkaSink(producer, "notifications")

		require.NoError(t, sink.Send(context.Background(), sampleEvents()))
		require.Len(t, producer.records, 2)
		assert.Equal(t, "notifications", producer.records[0].Topic)
		assert.Equal(t, []byte("user-1"), producer.records[0].Key)

		var decoded Event
		require.NoError(t, json.Unmarshal(producer.records[0].Value, &decoded))
		assert.Equal(t, KindDocumentApproved, decoded.Kind)
		assert.Equal(t, "identity_card", decoded.Payload["document_type"])
	})

	t.Run("reports produce errors", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("not leader")}
		sink := NewKafkaSink(producer, "notifications")
		assert.Error(t, sink.Send(context.Background(), sampleEvents()))
	})
}

func TestAMQPSink_Send(t *testing.T) {
	t.Run("publishes persistent json messages", func(t *testing.T) {
		pub := &fakePublisher{}
		sink := NewAMQPSink(pub, "notifications")

		require.NoError(t, sink.Send(context.Background(), sampleEvents()))
		assert.Equal(t, "notifications", pub.queue)
		require.Len(t, pub.msgs, 2)
		assert.Equal(t, amqp.Persistent, pub.msgs[0].DeliveryMode)
		assert.Equal(t, "application/json", pub.msgs[0].ContentType)
		assert.Equal(t, "document_approved", pub.msgs[0].Type)
		assert.Equal(t, "01J0000000000000000000000A", pub.msgs[0].MessageId)
	})

	t.Run("stops at the first publish error", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("channel closed")}
		sink := NewAMQPSink(pub, "notifications")
		assert.Error(t, sink.Send(context.Background(), sampleEvents()))
		assert.NoError(t, sink.Close())
	})
}

func TestLogSink_Send(t *testing.T) {
	sink := NewLogSink(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	assert.NoError(t, sink.Send(context.Background(), sampleEvents()))
	assert.Equal(t, "log", sink.Name())
}
