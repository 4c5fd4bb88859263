// Package broker moves task identifiers between the API side that accepts
// calls and the workers that process them, over AMQP. The payload is the
// JSON-encoded task UUID; everything else about a task lives in the store.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"callscore/internal/config"
	"callscore/internal/logging"
)

// ErrClosed indicates the broker connection was shut down locally.
var ErrClosed = errors.New("broker connection closed")

// Client is a single AMQP connection carrying one channel, usable for both
// publishing and consuming task ids.
type Client struct {
	cfg    config.Broker
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// Connect dials the broker and declares the task exchange, queue, and
// binding. Declarations are idempotent, so publisher and consumer sides can
// both connect in any order.
func Connect(cfg config.Broker, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{cfg: cfg, logger: logger, conn: conn, channel: channel}
	if err := client.declareTopology(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) declareTopology() error {
	if err := c.channel.ExchangeDeclare(c.cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}
	if err := c.channel.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.cfg.Queue, err)
	}
	return nil
}

// PublishTask enqueues a task id for processing. Messages are persistent so
// accepted calls survive a broker restart.
func (c *Client) PublishTask(ctx context.Context, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(taskID)
	if err != nil {
		return fmt.Errorf("encode task id: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	err = c.channel.Publish(c.cfg.Exchange, c.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish task %s: %w", taskID, err)
	}

	c.logger.Debug("task published",
		slog.String(logging.FieldTaskID, taskID),
		slog.String("exchange", c.cfg.Exchange),
		slog.String("routing_key", c.cfg.RoutingKey))
	return nil
}

// Consume delivers task ids to handler until ctx is canceled or the channel
// dies. A handler error nacks the delivery without requeueing; the task is
// expected to be marked failed in the store by then. Returns nil on clean
// shutdown, otherwise the transport error so callers can reconnect.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, string) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("set prefetch: %w", err)
	}
	deliveries, err := c.channel.Consume(c.cfg.Queue, c.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("start consumer: %w", err)
	}
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consume %s: %w", c.cfg.Queue, ErrClosed)
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, delivery amqp.Delivery, handler func(context.Context, string) error) {
	var taskID string
	if err := json.Unmarshal(delivery.Body, &taskID); err != nil {
		c.logger.Error("dropping undecodable task message", slog.String("error", err.Error()))
		_ = delivery.Nack(false, false)
		return
	}

	if err := handler(logging.WithTaskID(ctx, taskID), taskID); err != nil {
		c.logger.Error("task processing failed",
			slog.String(logging.FieldTaskID, taskID),
			slog.String("error", err.Error()))
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("nack failed", slog.String("error", nackErr.Error()))
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.Error("ack failed",
			slog.String(logging.FieldTaskID, taskID),
			slog.String("error", err.Error()))
	}
}

// Close shuts the channel and connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		_ = c.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
