package messaging

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one delivery body for its topic. Returning an error
// rejects the message without requeue; duplicates are already tolerated by
// the idempotent confirm/cancel paths, so a poisoned message must not loop.
type Handler func(ctx context.Context, body []byte) error

// RabbitConsumer binds one durable queue to a topic exchange and dispatches
// deliveries by routing key. It reconnects with capped backoff until the
// context is cancelled.
type RabbitConsumer struct {
	uri      string
	exchange string
	queue    string
	handlers map[string]Handler
	log      *zap.Logger
}

func NewRabbitConsumer(uri, exchange, queue string, handlers map[string]Handler, log *zap.Logger) *RabbitConsumer {
	return &RabbitConsumer{
		uri:      uri,
		exchange: exchange,
		queue:    queue,
		handlers: handlers,
		log:      log,
	}
}

func (c *RabbitConsumer) Start(ctx context.Context) {
	go func() {
		backoff := time.Second
		for {
			if ctx.Err() != nil {
				return
			}

			conn, err := amqp.Dial(c.uri)
			if err != nil {
				c.log.Warn("consumer dial failed, retrying",
					zap.String("queue", c.queue),
					zap.Duration("backoff", backoff),
					zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff < 30*time.Second {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second

			if err := c.consumeLoop(ctx, conn); err != nil && ctx.Err() == nil {
				c.log.Warn("consume loop ended, reconnecting",
					zap.String("queue", c.queue), zap.Error(err))
			}
			_ = conn.Close()
		}
	}()
}

func (c *RabbitConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(32, 0, false); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return err
	}
	for topic := range c.handlers {
		if err := ch.QueueBind(c.queue, topic, c.exchange, false, nil); err != nil {
			return err
		}
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.dispatch(ctx, d)
		}
	}
}

func (c *RabbitConsumer) dispatch(ctx context.Context, d amqp.Delivery) {
	handler, ok := c.handlers[d.RoutingKey]
	if !ok {
		c.log.Warn("no handler for routing key", zap.String("routing_key", d.RoutingKey))
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, d.Body); err != nil {
		c.log.Error("event handler failed",
			zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
