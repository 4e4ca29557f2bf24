package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	"paymenow.backend/pkg/logger"
)

// Sink delivers one notification to a downstream system
type Sink interface {
	Deliver(ctx context.Context, n entities.Notification) error
}

// LogSink writes notifications to the structured logger
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Deliver(ctx context.Context, n entities.Notification) error {
	logger.Info(ctx, "notification",
		zap.String("account_id", n.AccountID.String()),
		zap.String("transaction_id", n.TransactionID.String()),
		zap.String("outcome", string(n.Outcome)),
		zap.String("amount", n.Amount.String()),
		zap.String("asset", string(n.AssetType)),
		zap.String("reason", n.Reason),
	)
	return nil
}

// KafkaSink publishes notifications as JSON events keyed by account id
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

// NewKafkaProducer builds the synchronous producer used by KafkaSink
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = false
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

func (s *KafkaSink) Deliver(ctx context.Context, n entities.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(n.AccountID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("outcome"), Value: []byte(n.Outcome)},
		},
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close releases the producer
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
