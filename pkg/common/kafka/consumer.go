package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"github.com/synaptica-ai/prelude-parser/pkg/common/models"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     messageReader
	attempts   int
	retryDelay time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

// ErrPermanent marks handler errors that retrying cannot fix; the message
// is committed and skipped.
var ErrPermanent = errors.New("permanent event failure")

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, attempts: 5, retryDelay: 500 * time.Millisecond}
}

// Consume hands every event to handler and commits it once handled.
// Failures other than ErrPermanent are retried in place; when the retries
// run out Consume returns without committing, so the group resumes at the
// failed message on the next start.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Log.WithError(err).Error("Failed to fetch message")
				continue
			}

			var event models.Event
			if err := json.Unmarshal(message.Value, &event); err != nil {
				logger.Log.WithError(err).Error("Failed to unmarshal event")
				c.commit(ctx, message)
				continue
			}

			if err := c.handle(ctx, handler, event); err != nil {
				if !errors.Is(err, ErrPermanent) {
					return fmt.Errorf("event %s at offset %d: %w", event.ID, message.Offset, err)
				}
				logger.Log.WithError(err).WithFields(map[string]interface{}{
					"event_id": event.ID,
				}).Warn("Skipping event")
			}

			c.commit(ctx, message)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	delay := c.retryDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = handler(ctx, event)
		if err == nil || errors.Is(err, ErrPermanent) || attempt >= c.attempts {
			return err
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"attempt":  attempt,
		}).Error("Failed to process event")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > 10*time.Second {
			delay = 10 * time.Second
		}
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
