package kafka

import (
	"context"
	"errors"
	"time"

	"task-service/internal/config"
	"task-service/internal/websocket"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OriginHeader marks messages written by the audit tap. The consumer skips them so an
// audited event is never dispatched twice.
const (
	OriginHeader = "origin"
	OriginAudit  = "task-service-audit"
)

// EventSink accepts decoded events
type EventSink interface {
	Dispatch(ev websocket.Event)
}

// Consumer feeds events published by other services into the local dispatcher
type Consumer struct {
	reader *kafka.Reader
	sink   EventSink
	log    *zap.Logger
}

func NewConsumer(cfg config.KafkaConfig, sink EventSink, log *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.IngestTopic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		}),
		sink: sink,
		log:  log.Named("kafka-consumer"),
	}
}

// Run reads until ctx is cancelled. Undecodable messages are logged and committed so
// they never block the partition.
func (c *Consumer) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0

	c.log.Info("Kafka consumer started", zap.String("topic", c.reader.Config().Topic))
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			wait := b.NextBackOff()
			c.log.Warn("Kafka fetch failed", zap.Duration("backoff", wait), zap.Error(err))
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return
			}
		}
		b.Reset()

		c.handle(m)

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.log.Warn("Kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) handle(m kafka.Message) {
	if isAudit(m) {
		c.log.Debug("Skipping audit record", zap.Int64("offset", m.Offset))
		return
	}
	ev, err := DecodeEvent(m.Value)
	if err != nil {
		c.log.Warn("Skipping event message", zap.Error(err))
		return
	}
	c.sink.Dispatch(ev)
}

func isAudit(m kafka.Message) bool {
	for _, h := range m.Headers {
		if h.Key == OriginHeader && string(h.Value) == OriginAudit {
			return true
		}
	}
	return false
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
