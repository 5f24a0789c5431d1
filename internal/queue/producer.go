// Package queue publishes JSON payloads to Kafka topics.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON-encoded messages to a single topic.
type Producer struct {
	w     MessageWriter
	topic string
}

// NewProducer dials nothing up front; kafka-go connects on first write.
func NewProducer(brokers []string, topic string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, topic)
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{w: w, topic: topic}
}

// Topic returns the destination topic.
func (p *Producer) Topic() string {
	return p.topic
}

// PublishJSON encodes v and writes it keyed by key.
func (p *Producer) PublishJSON(ctx context.Context, key string, v any, headers ...kafka.Header) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	msg := kafka.Message{Key: []byte(key), Value: data, Headers: headers}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.w.Close()
}
