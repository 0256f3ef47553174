package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/axonbase/extcore/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// QueuePublisher mirrors lifecycle events to an external message broker for
// out-of-process consumers. In-process delivery never depends on it.
type QueuePublisher interface {
	PublishEvent(ctx context.Context, evt types.Event) error
	Close() error
}

// RabbitMQPublisher publishes events to a topic exchange, one routing key
// per event kind.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	exchange string
	mu       sync.Mutex
}

// NewRabbitMQPublisher connects to the broker and declares the exchange.
func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p := &RabbitMQPublisher{conn: conn, exchange: exchange}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return p, nil
}

// PublishEvent publishes one event with the event kind as routing key.
func (p *RabbitMQPublisher) PublishEvent(ctx context.Context, evt types.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is not available")
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	return ch.PublishWithContext(ctx,
		p.exchange,
		evt.Kind.String(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    evt.EventID,
			Body:         body,
		})
}

// Close closes the broker connection.
func (p *RabbitMQPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// KafkaPublisher publishes events to a single topic keyed by extension id,
// so per-extension ordering survives partitioning.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// PublishEvent publishes one event.
func (p *KafkaPublisher) PublishEvent(ctx context.Context, evt types.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.ExtensionID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(evt.Kind.String())},
		},
	})
}

// Close closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
