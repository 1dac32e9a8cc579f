// Package queue contains the background consumer that listens to the
// payment.confirmed queue and writes one line per payment to logs/payment.log.
package queue

import (
	"context"       // context carries deadlines and cancellation
	"encoding/json" // json encodes payloads
	"errors"        // errors for sentinel matching
	"fmt"           // fmt wraps errors with context
	"log/slog"      // structured logging
	"os"            // os reads the environment and files
	"path/filepath" // filepath builds the log path
	"strings"       // strings trims and normalises text
	"time"          // time for timestamps and timeouts

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client
)

// Consumer drains payment.confirmed into an append-only log file.
type Consumer struct {
	url    string
	logDir string
	logger *slog.Logger
}

func NewConsumer(url, logDir string, logger *slog.Logger) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{url: url, logDir: logDir, logger: logger}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled, reconnecting
// with exponential backoff. Messages that fail processing are rejected
// without requeue so one bad payload cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("payment-consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("payment-consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("payment-consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(PaymentConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PaymentConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				c.logger.Error("payment-consumer: handle message failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev PaymentConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TransactionID == "" {
		return errors.New("event without transaction id")
	}
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, "payment.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev PaymentConfirmedEvent) string {
	return fmt.Sprintf("[%s] Payment confirmed | transaction_id=%s | parcel_id=%s | parcel=%q | tracking_id=%s | customer=%s | total=%.2f %s\n",
		ev.PaidAt, ev.TransactionID, ev.ParcelID, ev.ParcelName, ev.TrackingID, ev.CustomerEmail, ev.Amount, strings.ToUpper(ev.Currency))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
