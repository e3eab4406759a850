// Package queue consumes case-event envelopes from a RabbitMQ topic exchange
// and feeds them into the engine, for platforms that deliver events
// asynchronously instead of calling the HTTP surface.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"tribunal-notifier/pkg/notify"
)

// Engine is the event-processing port.
type Engine interface {
	Process(ctx context.Context, rawEventID string, oldState notify.CaseState, snap *notify.CaseSnapshot) ([]notify.DispatchResult, error)
}

// Envelope is the wire format for a case event on the queue.
type Envelope struct {
	Meta struct {
		ID            string `json:"id"`
		CorrelationID string `json:"correlation_id,omitempty"`
	} `json:"meta"`
	Data struct {
		CaseID   string              `json:"case_id"`
		Event    string              `json:"event"`
		OldState notify.CaseState    `json:"old_state,omitempty"`
		Snapshot notify.CaseSnapshot `json:"snapshot"`
	} `json:"data"`
}

// Consumer reads case events off a queue bound to a topic exchange.
type Consumer struct {
	conn   *amqp091.Connection
	ch     *amqp091.Channel
	engine Engine
	logger *slog.Logger
}

// New dials the broker and declares the exchange.
func New(url, exchange string, engine Engine, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	c := &Consumer{conn: conn, ch: ch, engine: engine, logger: logger}
	if err := c.bind(exchange); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) bind(exchange string) error {
	if err := c.ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	q, err := c.ch.QueueDeclare("tribunal-notifier.case-events", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.ch.QueueBind(q.Name, "case.event.*", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume("tribunal-notifier.case-events", "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("Queue consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Queue consumer stopping", "error", ctx.Err())
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	var env Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		c.logger.Warn("Malformed envelope, discarding", "routing_key", msg.RoutingKey, "error", err)
		_ = msg.Nack(false, false)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	snap := env.Data.Snapshot
	results, err := c.engine.Process(hctx, env.Data.Event, env.Data.OldState, &snap)
	if err != nil {
		c.logger.Error("Event processing failed, requeueing",
			"message_id", env.Meta.ID,
			"case_id", env.Data.CaseID,
			"event", env.Data.Event,
			"error", err)
		_ = msg.Nack(false, true)
		return
	}

	c.logger.Info("Queued event processed",
		"message_id", env.Meta.ID,
		"correlation_id", env.Meta.CorrelationID,
		"case_id", env.Data.CaseID,
		"event", env.Data.Event,
		"dispatched", len(results))
	_ = msg.Ack(false)
}

// Close tears down the channel and connection.
func (c *Consumer) Close() error {
	if err := c.ch.Close(); err != nil {
		c.logger.Warn("Failed to close channel", "error", err)
	}
	return c.conn.Close()
}
