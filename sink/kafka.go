package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/web3tea/doma-sentinel/models"
)

const defaultKafkaTopic = "doma.notifications"

// KafkaSink writes notifications keyed by domain name, so events for the
// same domain land on the same partition.
type KafkaSink struct {
	brokers []string
	writer  *kafka.Writer
}

func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	if cfg.Topic == "" {
		cfg.Topic = defaultKafkaTopic
	}
	return &KafkaSink{
		brokers: cfg.Brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Init implements Sink.
func (s *KafkaSink) Init(ctx context.Context, config map[string]any) error {
	if len(s.brokers) == 0 {
		return errors.New("kafka brokers are required")
	}
	return nil
}

// Write implements Sink.
func (s *KafkaSink) Write(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(notifications))
	for _, n := range notifications {
		value, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		key := n.ID
		if n.Record != nil && n.Record.DomainName != "" {
			key = n.Record.DomainName
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(key),
			Value:   value,
			Headers: []kafka.Header{{Key: "notification-id", Value: []byte(n.ID)}},
		})
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Flush implements Sink. The writer is synchronous.
func (s *KafkaSink) Flush(ctx context.Context) error {
	return nil
}

// Close implements Sink.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// Type implements Sink.
func (s *KafkaSink) Type() string {
	return TypeKafka
}

var _ Sink = (*KafkaSink)(nil)
