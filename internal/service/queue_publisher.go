// Package queue_publisher publishes domain events to RabbitMQ. Errors are
// logged and returned so callers can ignore failures without interrupting
// the request flow.
package queue_publisher

import (
	"context"       // context carries deadlines and cancellation
	"encoding/json" // json encodes payloads
	"log/slog"      // structured logging
	"time"          // time for timestamps and timeouts

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client

	q "github.com/iliyamo/parcel-shipping/internal/queue" // payment events
)

// Publisher opens a short-lived connection per event. Payment confirmations
// are rare enough that a pooled channel is not worth the reconnect logic.
type Publisher struct {
	url    string
	logger *slog.Logger
}

func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, logger: logger}
}

// PublishPaymentConfirmed sends a persistent message to the payment.confirmed queue.
func (p *Publisher) PublishPaymentConfirmed(ctx context.Context, event q.PaymentConfirmedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("rabbitmq: marshal event failed", "error", err)
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.PaymentConfirmedQueue, // name
		true,                    // durable
		false,                   // autoDelete
		false,                   // exclusive
		false,                   // noWait
		nil,                     // args
	); err != nil {
		p.logger.Warn("rabbitmq: queue declare failed", "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.TransactionID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                      // default exchange
		q.PaymentConfirmedQueue, // routing key = queue name
		false,                   // mandatory
		false,                   // immediate
		pub,
	); err != nil {
		p.logger.Warn("rabbitmq: publish failed", "error", err)
		return err
	}
	return nil
}
