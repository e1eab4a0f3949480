package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"delivery-dispatch/internal/eventbus"
)

var newSyncProducer = sarama.NewSyncProducer

// Producer publishes bus messages to a Kafka topic keyed by message key.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer creates a synchronous producer. It returns nil when Kafka is not configured.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	p, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{producer: p, topic: topic}, nil
}

// Send publishes msg. The sarama producer does not take a context; ctx is checked up front.
func (p *Producer) Send(ctx context.Context, msg eventbus.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(eventbus.EnvelopeOf(msg))
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}

	pm := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(msg.Type)},
		},
	}
	if msg.Key != "" {
		pm.Key = sarama.StringEncoder(msg.Key)
	}
	if _, _, err := p.producer.SendMessage(pm); err != nil {
		return fmt.Errorf("kafka send %s: %w", msg.Type, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
