package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/splittrack/internal/telemetry"
)

// Publisher announces domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishExpenseCreated(ctx context.Context, msg *ExpenseCreated) error
	PublishMembersAdded(ctx context.Context, msg *MembersAdded) error
	Close() error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishExpenseCreated(context.Context, *ExpenseCreated) error { return nil }
func (Noop) PublishMembersAdded(context.Context, *MembersAdded) error     { return nil }
func (Noop) Close() error                                                 { return nil }

var (
	_ Publisher = Noop{}
	_ Publisher = (*Client)(nil)
)

// Client publishes to and consumes from one topic exchange.
//
// Publishing and consuming use separate channels. With an empty queue name
// the client declares an exclusive server-named queue, so every replica
// receives every event.
type Client struct {
	conn         *amqp091.Connection
	pubMu        sync.Mutex
	pubChannel   *amqp091.Channel
	subChannel   *amqp091.Channel
	exchangeName string
	queueName    string
	metrics      *telemetry.Metrics
}

// NewClient dials url and declares the exchange, queue and binding.
func NewClient(url, exchangeName, queueName string, metrics *telemetry.Metrics) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	client := &Client{
		conn:         conn,
		exchangeName: exchangeName,
		queueName:    queueName,
		metrics:      metrics,
	}

	if client.pubChannel, err = conn.Channel(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if client.subChannel, err = conn.Channel(); err != nil {
		client.Close()
		return nil, fmt.Errorf("open consume channel: %w", err)
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.pubChannel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	shared := c.queueName != ""
	q, err := c.subChannel.QueueDeclare(
		c.queueName, // name ("" lets the broker pick one)
		shared,      // durable
		!shared,     // delete when unused
		!shared,     // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	c.queueName = q.Name

	for _, key := range []string{RoutingKeyExpenseCreated, RoutingKeyMembersAdded} {
		if err := c.subChannel.QueueBind(c.queueName, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}
	return nil
}

// PublishExpenseCreated publishes msg on the exchange.
func (c *Client) PublishExpenseCreated(ctx context.Context, msg *ExpenseCreated) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, RoutingKeyExpenseCreated, msg.ExpenseID, msg.GroupID, msg.Timestamp, body)
}

// PublishMembersAdded publishes msg on the exchange.
func (c *Client) PublishMembersAdded(ctx context.Context, msg *MembersAdded) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, RoutingKeyMembersAdded, "", msg.GroupID, msg.Timestamp, body)
}

func (c *Client) publish(ctx context.Context, routingKey, messageID, groupID string, ts time.Time, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.pubMu.Lock()
	err := c.pubChannel.PublishWithContext(
		ctx,
		c.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ts,
			MessageId:    messageID,
			Body:         body,
		},
	)
	c.pubMu.Unlock()
	c.metrics.ObservePublish(routingKey, err)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.DebugContext(ctx, "Published event",
		"routing_key", routingKey,
		"group_id", groupID,
		"exchange", c.exchangeName)
	return nil
}

// ConsumeGroupChanges delivers group events to handler until ctx is done or
// the broker closes the channel.
func (c *Client) ConsumeGroupChanges(ctx context.Context, handler func(context.Context, *GroupChange) error) error {
	msgs, err := c.subChannel.ConsumeWithContext(
		ctx,
		c.queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			switch handleDelivery(ctx, delivery.RoutingKey, delivery.Body, handler, c.metrics) {
			case ack:
				delivery.Ack(false)
			case requeue:
				delivery.Nack(false, true)
			case reject:
				delivery.Nack(false, false)
			}
		}
	}
}

func (c *Client) Close() error {
	if c.subChannel != nil {
		c.subChannel.Close()
	}
	if c.pubChannel != nil {
		c.pubChannel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

type disposition int

const (
	ack disposition = iota
	requeue
	reject
)

// handleDelivery decodes one body and runs handler. Undecodable bodies are
// rejected without requeue; handler failures are requeued.
func handleDelivery(ctx context.Context, routingKey string, body []byte, handler func(context.Context, *GroupChange) error, metrics *telemetry.Metrics) disposition {
	msg, err := DecodeGroupChange(routingKey, body)
	if err != nil {
		metrics.ObserveConsume(routingKey, err)
		slog.ErrorContext(ctx, "Failed to decode event", "routing_key", routingKey, "error", err)
		return reject
	}

	if err := handler(ctx, msg); err != nil {
		metrics.ObserveConsume(routingKey, err)
		slog.ErrorContext(ctx, "Failed to handle event",
			"error", err,
			"routing_key", routingKey,
			"group_id", msg.GroupID)
		return requeue
	}

	metrics.ObserveConsume(routingKey, nil)
	slog.DebugContext(ctx, "Handled event", "routing_key", routingKey, "group_id", msg.GroupID, "origin", msg.Origin)
	return ack
}
