// Package messaging publishes committed board changes to RabbitMQ so that
// other services (audit trails, cache warmers) can follow the board without
// polling it.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"guestbook-board/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventsExchange is the fanout exchange every board event is published to
const EventsExchange = "guestbook.events"

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ implements domain.EventPublisher on top of an AMQP channel
type RabbitMQ struct {
	conn    *amqp.Connection
	channel amqpChannel
	mu      sync.Mutex
}

// NewRabbitMQ dials the broker and declares the events exchange
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry keeps dialing with exponential backoff until the
// broker answers or ctx is done
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	var rmq *RabbitMQ

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		var err error
		rmq, err = NewRabbitMQ(url)
		return err
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		slog.Warn("rabbitmq not ready, retrying",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", next))
	})
	if err != nil {
		return nil, err
	}
	return rmq, nil
}

// Setup declares the durable fanout exchange for board events
func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		EventsExchange, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

// Publish sends one board event. An event without an id gets a fresh UUID.
func (r *RabbitMQ) Publish(ctx context.Context, event *domain.BoardEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(
		ctx,
		EventsExchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID,
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("published board event",
		slog.String("type", event.Type),
		slog.String("event_id", event.ID))
	return nil
}

// Subscribe binds a durable queue to the events exchange and starts
// consuming it. Deliveries must be acknowledged by the caller.
func (r *RabbitMQ) Subscribe(queue string) (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return nil, fmt.Errorf("failed to declare %s queue: %w", queue, err)
	}

	if err := r.channel.QueueBind(queue, "", EventsExchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind %s queue: %w", queue, err)
	}

	msgs, err := r.channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("subscribed to board events", slog.String("queue", queue))
	return msgs, nil
}

// IsClosed reports whether the broker connection is gone
func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

// Close closes the channel and the connection
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
