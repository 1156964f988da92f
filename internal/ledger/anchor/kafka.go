package anchor

import (
	"context"
	"encoding/json"
	"fmt"

	"legitify/internal/platform/kafka/producer"
)

// DefaultTopic receives anchoring outcomes.
const DefaultTopic = "legitify.ledger.anchors"

// MessageProducer is the subset of the Kafka producer the publisher needs.
type MessageProducer interface {
	ProduceAsync(msg *producer.Message) error
}

// KafkaPublisher publishes outcomes to Kafka, keyed by aggregate so outcomes
// for one document stay ordered within a partition.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaPublisher(p MessageProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) PublishOutcome(_ context.Context, outcome Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode anchoring outcome: %w", err)
	}
	status := "failed"
	if outcome.Succeeded {
		status = "committed"
	}
	return k.producer.ProduceAsync(&producer.Message{
		Topic: k.topic,
		Key:   []byte(outcome.Aggregate),
		Value: payload,
		Headers: map[string]string{
			"function": outcome.Function,
			"org":      outcome.Org,
			"status":   status,
		},
	})
}
