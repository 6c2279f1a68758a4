package events

import (
	"context"

	"github.com/smallbiznis/utilitybill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(ProvidePublisher),
	fx.Provide(NewRelay),
)

// ProvidePublisher returns a kafka publisher, or nil when no brokers are configured.
func ProvidePublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	if !cfg.Kafka.Enabled() {
		log.Info("kafka not configured, billing events stay in the outbox")
		return nil, nil
	}

	producer, err := NewSyncProducer(cfg.Kafka, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return producer.Close()
		},
	})
	return NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}
