package events

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQPublisher struct {
	conn *amqp.Connection
	ch   Channel

	mu       sync.Mutex
	declared map[string]struct{}
}

func DialRabbitMQ(url string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	p := NewRabbitMQPublisher(ch)
	p.conn = conn
	return p, nil
}

func NewRabbitMQPublisher(ch Channel) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		ch:       ch,
		declared: make(map[string]struct{}),
	}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queue string, key string, body []byte) error {
	if err := p.declare(queue); err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    key,
		Body:         body,
	})
}

func (p *RabbitMQPublisher) declare(queue string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.declared[queue]; ok {
		return nil
	}
	if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	p.declared[queue] = struct{}{}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
