package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/observability/metrics"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mock/mock_publisher.go -package=mock . Publisher

// Publisher delivers one outbox event to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event BillingEvent) error
}

type envelope struct {
	ID          string          `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher publishes events keyed by aggregate id so events of one
// bill or house stay ordered within a partition.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string) Publisher {
	return &kafkaPublisher{producer: producer, topic: topic}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event BillingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(envelope{
		ID:          event.ID.String(),
		EventType:   event.EventType,
		AggregateID: event.AggregateID.String(),
		OccurredAt:  event.CreatedAt.UTC(),
		Payload:     json.RawMessage(event.Payload),
	})
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AggregateID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
			{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", metrics.ErrBrokerUnavailable, err)
	}
	return nil
}

// NewSyncProducer builds a producer from the kafka settings.
func NewSyncProducer(cfg config.KafkaConfig, log *zap.Logger) (sarama.SyncProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Idempotent = false
	saramaConfig.Producer.Retry.Max = 3

	acks, err := parseRequiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}
	saramaConfig.Producer.RequiredAcks = acks
	saramaConfig.Producer.Compression = parseCompression(cfg.Compression, log)

	return sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
}

func parseRequiredAcks(v string) (sarama.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none", "no_response", "0":
		return sarama.NoResponse, nil
	case "leader", "local", "wait_for_local", "1":
		return sarama.WaitForLocal, nil
	case "all", "wait_for_all", "-1", "":
		return sarama.WaitForAll, nil
	default:
		return sarama.WaitForAll, fmt.Errorf("invalid kafka required acks: %s", v)
	}
}

func parseCompression(codec string, log *zap.Logger) sarama.CompressionCodec {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "none":
		return sarama.CompressionNone
	case "gzip":
		return sarama.CompressionGZIP
	case "snappy", "":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		if log != nil {
			log.Warn("unknown compression codec, defaulting to snappy", zap.String("codec", codec))
		}
		return sarama.CompressionSnappy
	}
}
