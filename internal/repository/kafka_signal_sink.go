package repository

import (
	"context"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/domain/repository"
	pkgkafka "QuantPulse/pkg/kafka"
)

// KafkaSignalSink publishes dispatched signals to a Kafka topic.
type KafkaSignalSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalSink(producer *pkgkafka.Producer, topic string) *KafkaSignalSink {
	return &KafkaSignalSink{producer: producer, topic: topic}
}

func (s *KafkaSignalSink) Name() string { return "kafka" }

func (s *KafkaSignalSink) Deliver(ctx context.Context, sig models.Signal) error {
	return s.producer.Publish(ctx, s.topic, []byte(sig.Asset), sig)
}

func (s *KafkaSignalSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

var _ repository.SignalSink = (*KafkaSignalSink)(nil)
