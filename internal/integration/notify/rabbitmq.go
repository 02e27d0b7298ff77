package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type connection interface {
	IsClosed() bool
	Close() error
	channel() (channel, error)
}

type channel interface {
	IsClosed() bool
	Close() error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type amqpConnection struct{ *amqp.Connection }

func (c amqpConnection) channel() (channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// RabbitPublisher publishes notifications as persistent JSON messages on a
// durable queue through the default exchange.
type RabbitPublisher struct {
	url   string
	queue string
	dial  func(url string) (connection, error)
	log   *zap.Logger

	mu   sync.Mutex
	conn connection
	ch   channel
}

func NewRabbitPublisher(url, queue string, log *zap.Logger) (*RabbitPublisher, error) {
	p := &RabbitPublisher{
		url:   url,
		queue: queue,
		dial:  dialAMQP,
		log:   log.With(zap.String("sender", "rabbitmq"), zap.String("queue", queue)),
	}
	if err := p.ensureOpen(); err != nil {
		return nil, err
	}
	return p, nil
}

// ensureOpen redials a closed connection and reopens a channel that died on
// a channel-level exception. Callers hold p.mu or own p exclusively.
func (p *RabbitPublisher) ensureOpen() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.dial(p.url)
		if err != nil {
			return fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn, p.ch = conn, nil
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}

	ch, err := p.conn.channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.ch = ch
	return nil
}

func (p *RabbitPublisher) Send(ctx context.Context, msg Message) error {
	if msg.Recipient == "" {
		return ErrRejected
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %v", ErrRejected, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureOpen(); err != nil {
		p.log.Warn("RabbitMQ reconnect failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         msg.Kind,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("RabbitMQ publish failed", zap.Error(err), zap.String("kind", msg.Kind))
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
