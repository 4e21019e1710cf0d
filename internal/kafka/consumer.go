package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer creates a consumer for the lifecycle topic. A group without
// committed offsets starts at the newest message rather than replaying history.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.LastOffset,
	}
	return &Consumer{Reader: kafka.NewReader(cfg), Logger: log}
}

// Start reads changes until ctx is cancelled. Undecodable messages are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(models.EventChange)) error {
	c.Logger.Info("KAFKA", "🔄 Event change consumer started")

	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		var change models.EventChange
		if err := json.Unmarshal(msg.Value, &change); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Skipping undecodable message at offset %d: %v", msg.Offset, err))
			continue
		}

		handler(change)
	}
}

func (c *Consumer) Close() error {
	return c.Reader.Close()
}
