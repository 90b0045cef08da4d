package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"promoreg/internal/platform/kafka/producer"
)

// KafkaSink publishes events to a Kafka topic keyed by user id, so all events
// for one user land in order on the same partition.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
}

// NewKafkaSink constructs a sink writing to topic.
func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

// Emit publishes one event asynchronously; broker failures are logged by the
// producer, never surfaced to the domain path.
func (s *KafkaSink) Emit(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.ProduceAsync(&producer.Message{
		Topic: s.topic,
		Key:   []byte(event.UserID),
		Value: value,
	})
}
