package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpPublisher is the part of *amqp.Channel the sink uses.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes each event as a persistent message on a durable queue.
type AMQPSink struct {
	conn      *amqp.Connection
	publisher amqpPublisher
	queue     string
}

// DialAMQP connects, opens a channel, and declares the durable queue.
func DialAMQP(url, queue string) (*AMQPSink, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("amqp queue is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare amqp queue: %w", err)
	}
	return &AMQPSink{conn: conn, publisher: ch, queue: queue}, nil
}

// NewAMQPSink wraps an already declared channel.
func NewAMQPSink(publisher amqpPublisher, queue string) *AMQPSink {
	return &AMQPSink{publisher: publisher, queue: queue}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, events []Event) error {
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal notification %s: %w", e.ID, err)
		}
		err = s.publisher.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.OccurredAt,
			Type:         e.Kind.String(),
			Headers:      amqp.Table{"user_id": e.UserID},
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish notification %s: %w", e.ID, err)
		}
	}
	return nil
}

// Close releases the connection when the sink owns one.
func (s *AMQPSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
