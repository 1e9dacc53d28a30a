package websocket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayChannelPrefix = "ws:topic:"

func relayChannel(topic string) string {
	return relayChannelPrefix + topic
}

func topicFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, relayChannelPrefix) {
		return "", false
	}
	topic := strings.TrimPrefix(channel, relayChannelPrefix)
	return topic, topic != ""
}

type relayMessage struct {
	topic string
	frame []byte
}

// RedisRelay fans frames out to every instance through Redis pub/sub. Each instance
// delivers what it receives from Redis to its own Hub, so a frame published here is
// delivered locally exactly once, on the way back. While the listener has no live
// subscription, frames are also delivered to the local Hub directly.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	outbox chan relayMessage
	log    *zap.Logger

	// subMu orders publishes against subscription changes: the listener holds it
	// exclusively from PSUBSCRIBE until subscribed is set, and while clearing it.
	subMu      sync.RWMutex
	subscribed bool
	sessions   atomic.Int64
}

func NewRedisRelay(client *redis.Client, hub *Hub, outboxSize int, log *zap.Logger) *RedisRelay {
	if outboxSize <= 0 {
		outboxSize = 1024
	}
	return &RedisRelay{
		client: client,
		hub:    hub,
		outbox: make(chan relayMessage, outboxSize),
		log:    log.Named("relay"),
	}
}

// Publish queues frame for Redis. If the outbox is full the frame is delivered to
// local connections only.
func (r *RedisRelay) Publish(topic string, frame []byte) {
	select {
	case r.outbox <- relayMessage{topic: topic, frame: frame}:
	default:
		r.log.Warn("Relay outbox full, delivering locally", zap.String("topic", topic))
		r.hub.Deliver(topic, frame)
	}
}

// Run publishes queued frames and listens for frames from other instances until ctx ends
func (r *RedisRelay) Run(ctx context.Context) {
	go r.publishLoop(ctx)
	r.listen(ctx)
}

func (r *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.outbox:
			r.publish(ctx, msg)
		}
	}
}

func (r *RedisRelay) publish(ctx context.Context, msg relayMessage) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()

	err := r.client.Publish(ctx, relayChannel(msg.topic), msg.frame).Err()
	switch {
	case err != nil:
		r.log.Warn("Failed to publish to Redis, delivering locally",
			zap.String("topic", msg.topic), zap.Error(err))
		r.hub.Deliver(msg.topic, msg.frame)
	case !r.subscribed:
		// other instances got it; this one will not hear it back
		r.hub.Deliver(msg.topic, msg.frame)
	}
}

func (r *RedisRelay) setSubscribed(v bool) {
	r.subMu.Lock()
	r.subscribed = v
	r.subMu.Unlock()
}

// Subscribed reports whether frames currently come back through Redis
func (r *RedisRelay) Subscribed() bool {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	return r.subscribed
}

func (r *RedisRelay) listen(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	operation := func() error {
		r.subMu.Lock()
		ps := r.client.PSubscribe(ctx, relayChannelPrefix+"*")
		defer ps.Close()

		if _, err := ps.Receive(ctx); err != nil {
			r.subMu.Unlock()
			return r.retryable(ctx, err)
		}
		r.sessions.Add(1)
		r.subscribed = true
		r.subMu.Unlock()
		defer r.setSubscribed(false)

		b.Reset()
		r.log.Info("Subscribed to relay channels")

		for {
			msg, err := ps.ReceiveMessage(ctx)
			if err != nil {
				return r.retryable(ctx, err)
			}
			topic, ok := topicFromChannel(msg.Channel)
			if !ok {
				continue
			}
			r.hub.Deliver(topic, []byte(msg.Payload))
		}
	}

	notify := func(err error, wait time.Duration) {
		r.log.Warn("Relay subscription lost, retrying", zap.Duration("backoff", wait), zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil &&
		!errors.Is(err, context.Canceled) {
		r.log.Error("Relay listener stopped", zap.Error(err))
	}
}

func (r *RedisRelay) retryable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	return err
}
