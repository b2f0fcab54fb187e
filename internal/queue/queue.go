// Package queue publishes domain events to a RabbitMQ topic exchange.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultExchange receives every event.
const DefaultExchange = "homefood.events"

// Publisher sends one JSON event. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// Client publishes to a durable topic exchange over one channel, redialling
// once when the connection has dropped.
type Client struct {
	url      string
	exchange string
	logger   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New dials url and declares exchange.
func New(url, exchange string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	c := &Client{url: url, exchange: exchange, logger: logger}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect opens the connection and channel. Callers hold c.mu, except New.
func (c *Client) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	c.conn, c.ch = conn, ch
	return nil
}

// Publish marshals payload and publishes it persistently under routingKey.
func (c *Client) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.publishLocked(ctx, routingKey, msg)
	if !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	c.logger.Warn("broker connection closed, redialling")
	c.closeLocked()
	if err := c.connect(); err != nil {
		return err
	}
	return c.publishLocked(ctx, routingKey, msg)
}

func (c *Client) publishLocked(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	if c.ch == nil {
		return amqp.ErrClosed
	}
	return c.ch.PublishWithContext(ctx, c.exchange, routingKey, false, false, msg)
}

func (c *Client) closeLocked() {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close shuts the channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
