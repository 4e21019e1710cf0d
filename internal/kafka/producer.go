package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// PublishEventChange streams a lifecycle change keyed by event id, so all changes
// of one event land on the same partition in order.
func (p *Producer) PublishEventChange(ctx context.Context, change models.EventChange) error {
	msgBytes, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode event change: %w", err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(change.Key()),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "change-type", Value: []byte(change.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish event change to %s: %w", p.Topic, err)
	}

	if p.Logger != nil {
		p.Logger.LogKafka(string(change.Type), p.Topic, change.Key())
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
