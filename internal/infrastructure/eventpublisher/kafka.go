package eventpublisher

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/iho/vaultledger/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic, keyed by aggregate ID so that
// every event of an account or transaction lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes one event and waits for the broker to acknowledge it.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg, err := kafkaMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", event.ID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessage(event *domain.OutboxEvent) (kafka.Message, error) {
	data, err := encodeEnvelope(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}, nil
}
