package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"attrconsent/internal/platform/kafka/producer"
)

// DefaultTopic receives consent audit events unless configured otherwise.
const DefaultTopic = "consent.audit"

// MessageProducer is the slice of the Kafka producer the sink needs.
type MessageProducer interface {
	Produce(ctx context.Context, rec *producer.Record) error
}

// KafkaStore publishes each event as a JSON record keyed by principal, so one
// principal's events stay ordered within a partition. It is write-only.
type KafkaStore struct {
	producer MessageProducer
	topic    string
}

// NewKafkaStore constructs a Kafka audit sink. An empty topic uses DefaultTopic.
func NewKafkaStore(p MessageProducer, topic string) *KafkaStore {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaStore{producer: p, topic: topic}
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Record{
		Topic: s.topic,
		Key:   []byte(event.Principal),
		Value: value,
		Headers: map[string]string{
			"action": event.Action,
		},
	})
}
