package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher maps each queue name to a topic of the same name.
type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	})
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, queue string, key string, body []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: queue,
		Key:   []byte(key),
		Value: body,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
