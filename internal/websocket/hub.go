package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("hub is shutting down")

// Options tunes per-connection buffers and timeouts
type Options struct {
	SendBufferSize int
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (o Options) withDefaults() Options {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 512
	}
	return o
}

// Must be less than PongWait
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// PresenceNotifier is told when a user gains its first or loses its last connection.
// Implementations must not block.
type PresenceNotifier interface {
	Changed(userID uint)
}

// Hub owns the set of live connections. Connect, subscribe and disconnect are each a
// short critical section over the client table, the Registry and the Topics index, so
// the three never disagree.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	registry *Registry
	topics   *Topics
	closed   bool
	live     sync.WaitGroup

	presence PresenceNotifier
	opts     Options
	log      *zap.Logger
}

func NewHub(registry *Registry, topics *Topics, log *zap.Logger, opts Options) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		registry: registry,
		topics:   topics,
		opts:     opts.withDefaults(),
		log:      log.Named("hub"),
	}
}

// SetPresence installs the presence notifier. Call before serving connections.
func (h *Hub) SetPresence(p PresenceNotifier) {
	h.presence = p
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) Topics() *Topics {
	return h.topics
}

// NewClient wraps an upgraded socket for an authenticated user. It is not live until Register.
func (h *Hub) NewClient(conn *websocket.Conn, userID uint) *Client {
	return newClient(h, conn, userID)
}

// Register makes c live: it is added to the Registry and joined to its user topic.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	if _, ok := h.clients[c.id]; ok {
		h.mu.Unlock()
		return nil
	}
	h.clients[c.id] = c
	h.live.Add(1)
	first := h.registry.Add(c.userID, c.id)

	topic := UserTopic(c.userID)
	c.topics[topic] = struct{}{}
	h.topics.Join(topic, c)
	h.mu.Unlock()

	connectionsActive.Inc()
	if first {
		usersOnline.Inc()
		h.notifyPresence(c.userID)
	}
	c.log.Debug("Client registered")
	return nil
}

// Unregister removes c from every topic and from the Registry. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for topic := range c.topics {
		h.topics.Leave(topic, c)
	}
	c.topics = make(map[string]struct{})
	last := h.registry.Remove(c.userID, c.id)
	h.mu.Unlock()

	c.close()
	h.live.Done()

	connectionsActive.Dec()
	if last {
		usersOnline.Dec()
		h.notifyPresence(c.userID)
	}
	c.log.Debug("Client unregistered", zap.Bool("last_connection", last))
}

// Subscribe joins c to topic. It reports whether membership changed; subscribing
// twice or after the connection was torn down is a no-op.
func (h *Hub) Subscribe(c *Client, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	if _, ok := c.topics[topic]; ok {
		return false
	}
	c.topics[topic] = struct{}{}
	h.topics.Join(topic, c)
	c.log.Debug("Subscribed", zap.String("topic", topic))
	return true
}

// Publish delivers frame to the local members of topic
func (h *Hub) Publish(topic string, frame []byte) {
	h.Deliver(topic, frame)
}

// Deliver enqueues an encoded frame on every local member of topic and returns how
// many connections accepted it.
func (h *Hub) Deliver(topic string, frame []byte) int {
	members := h.topics.Members(topic)
	if len(members) == 0 {
		deliveries.WithLabelValues(deliveryNoTarget).Inc()
		return 0
	}

	delivered := 0
	for _, c := range members {
		if err := c.enqueue(frame); err != nil {
			deliveries.WithLabelValues(deliveryDropped).Inc()
			c.log.Debug("Delivery dropped", zap.String("topic", topic), zap.Error(err))
			continue
		}
		deliveries.WithLabelValues(deliveryOK).Inc()
		delivered++
	}
	return delivered
}

func (h *Hub) IsOnline(userID uint) bool {
	return h.registry.IsConnected(userID)
}

// ClientCount returns the number of live connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown refuses new registrations, closes every connection and waits for them to
// unregister. Connections still present when ctx ends are removed forcibly.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.log.Info("Closing websocket connections", zap.Int("connections", len(clients)))
	for _, c := range clients {
		c.close()
	}

	drained := make(chan struct{})
	go func() {
		h.live.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		h.mu.RLock()
		leftover := make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			leftover = append(leftover, c)
		}
		h.mu.RUnlock()

		h.log.Warn("Shutdown deadline reached, forcing unregister", zap.Int("connections", len(leftover)))
		for _, c := range leftover {
			h.Unregister(c)
		}
		return ctx.Err()
	}
}

func (h *Hub) notifyPresence(userID uint) {
	if h.presence != nil {
		h.presence.Changed(userID)
	}
}
