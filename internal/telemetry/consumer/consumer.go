// Package consumer reads account events from Kafka and forwards each message to a sink.
package consumer

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

// MessageReader is the subset of *kafka.Reader used by Consumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// PushFunc delivers one raw event payload (e.g. (*loki.Client).PushEvent).
type PushFunc func(ctx context.Context, payload []byte) error

// Consumer forwards messages from reader to push until its context is cancelled.
type Consumer struct {
	reader MessageReader
	push   PushFunc
	logger *zap.Logger
}

// NewKafkaReader returns a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// New returns a Consumer. A nil logger disables logging.
func New(reader MessageReader, push PushFunc, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, push: push, logger: logger}
}

// Run consumes until ctx is done. Read and push failures are logged and skipped.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("consumer: kafka read failed", zap.Error(err))
			continue
		}
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := c.push(pushCtx, msg.Value); err != nil {
			c.logger.Warn("consumer: push failed",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		cancel()
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
