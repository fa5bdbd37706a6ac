// Package messaging carries relayed events over RabbitMQ. A topic exchange
// keeps the fan-out topology out of this core: publishers only know the
// exchange and the routing key (the event type).
package messaging

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type RabbitPublisher struct {
	uri      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(uri, exchange string, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{uri: uri, exchange: exchange, log: log}
}

// Publish sends one persistent message under the topic routing key. The
// channel is dialed lazily and dropped on failure so the next publish
// re-dials instead of wedging on a dead connection.
func (p *RabbitPublisher) Publish(ctx context.Context, topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, topic, false, false, pub); err != nil {
		p.reset()
		return err
	}
	return nil
}

func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.uri)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
