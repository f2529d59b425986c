package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/gascustody/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
	fx.Provide(NewDispatcher),
)

// NewPublisher selects the broker from QUEUE_DRIVER.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	var (
		publisher Publisher
		err       error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Queue.Driver)) {
	case "", config.QueueDriverLog:
		publisher = NewLogPublisher(log)
	case config.QueueDriverRabbitMQ:
		publisher, err = DialRabbitMQ(cfg.Queue.RabbitMQURL)
	case config.QueueDriverKafka:
		if len(cfg.Queue.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka driver requires KAFKA_BROKERS")
		}
		publisher = NewKafkaPublisher(cfg.Queue.KafkaBrokers)
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.Queue.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info("event publisher ready", zap.String("driver", cfg.Queue.Driver))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}
