package events

import (
	"context"

	"go.uber.org/zap"
)

// Publisher writes an encoded event to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, key string, body []byte) error
	Close() error
}

type logPublisher struct {
	log *zap.Logger
}

// NewLogPublisher returns a Publisher that only logs. Used when no broker is configured.
func NewLogPublisher(log *zap.Logger) Publisher {
	return &logPublisher{log: log.Named("events.log")}
}

func (p *logPublisher) Publish(_ context.Context, queue string, key string, body []byte) error {
	p.log.Info("event published",
		zap.String("queue", queue),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return nil
}

func (p *logPublisher) Close() error { return nil }
