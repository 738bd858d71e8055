package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Producer is a synchronous Kafka producer shared by the outbound topics.
type Producer struct {
	producer sarama.SyncProducer
}

// NewSyncProducer creates a producer with full-ISR acks.
func NewSyncProducer(brokers []string) (*Producer, error) {
	cfg := sarama.NewConfig()

	// SyncProducer requires both:
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 500 * time.Millisecond

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create sarama sync producer: %w", err)
	}

	return &Producer{producer: prod}, nil
}

// Close shuts the producer down.
func (p *Producer) Close() error {
	return p.producer.Close()
}

// SendJSON marshals the payload and sends it to the topic, keyed for
// per-conversation partition ordering.
func (p *Producer) SendJSON(topic string, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for topic %s: %w", topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(b),
		Timestamp: time.Now(),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send kafka message to %s: %w", topic, err)
	}

	return nil
}
