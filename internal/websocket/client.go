package websocket

import (
	"errors"
	"sync"
	"time"

	"task-service/pkg/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSlowConsumer       = errors.New("client send buffer full")
)

// Client is one live websocket connection owned by exactly one user
type Client struct {
	id     string
	userID uint
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte

	// topics is guarded by hub.mu
	topics map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once

	log *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.opts.SendBufferSize),
		topics: make(map[string]struct{}),
		done:   make(chan struct{}),
		log:    hub.log.With(zap.String("client_id", id), zap.Uint("user_id", userID)),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() uint {
	return c.userID
}

// Topics returns a snapshot of the topics this connection is subscribed to
func (c *Client) Topics() []string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

// Done is closed once the connection starts tearing down
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// enqueue hands a frame to the write pump without blocking. A full buffer means the
// peer is not keeping up; the connection is closed rather than stalling broadcasters.
func (c *Client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientDisconnected
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.log.Warn("Send buffer full, closing client")
		c.close()
		return ErrSlowConsumer
	}
}

// close signals both pumps to stop; the write pump closes the socket, which in turn
// ends the read pump and unregisters the client.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn("WebSocket read error", zap.Error(err))
			} else {
				c.log.Debug("WebSocket connection closed", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg inboundFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Debug("Failed to unmarshal message", zap.Error(err))
		c.enqueue(errorFrame("INVALID_MESSAGE", "Invalid message format"))
		return
	}

	switch msg.Event {
	case SignalSubscribeTasks:
		c.hub.Subscribe(c, TaskTopic(c.userID))
	case SignalSubscribeCategories:
		c.hub.Subscribe(c, CategoryTopic(c.userID))
	case SignalPing:
		c.enqueue(pongFrame)
	default:
		c.log.Debug("Unknown event", zap.String("event", msg.Event))
		c.enqueue(errorFrame("UNKNOWN_EVENT", "Unknown event: "+msg.Event))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Error writing message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Error sending ping", zap.Error(err))
				return
			}

		case <-c.done:
			deadline := time.Now().Add(c.hub.opts.WriteWait)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
			return
		}
	}
}
