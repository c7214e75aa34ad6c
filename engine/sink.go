package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"content-clock-publisher/models"
)

// OutcomeSink receives every terminal posting log.
type OutcomeSink interface {
	Emit(ctx context.Context, log *models.PostingLog) error
	Close() error
}

type noopSink struct{}

// NoopSink discards outcomes.
func NoopSink() OutcomeSink { return noopSink{} }

func (noopSink) Emit(context.Context, *models.PostingLog) error { return nil }
func (noopSink) Close() error                                   { return nil }

// KafkaSink publishes outcomes as JSON records keyed by job id.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects a producer to brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("content-clock-publisher"),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10 * time.Millisecond),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Emit(ctx context.Context, log *models.PostingLog) error {
	value, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(log.JobID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "platform", Value: []byte(log.Platform)},
			{Key: "status", Value: []byte(log.Status)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce outcome: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	s.client.Close()
	return nil
}
