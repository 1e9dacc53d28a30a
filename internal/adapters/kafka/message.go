package kafka

import (
	"errors"
	"fmt"
	"time"

	"task-service/internal/websocket"
	"task-service/pkg/json"
)

var (
	ErrUnknownKind   = errors.New("unknown event kind")
	ErrMissingUserID = errors.New("event has no user_id")
)

// EventMessage is the bus representation of a domain event, used for both ingest and audit
type EventMessage struct {
	Kind      string          `json:"kind"`
	UserID    uint            `json:"user_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	EmittedAt time.Time       `json:"emitted_at,omitempty"`
}

// DecodeEvent parses a bus message into a dispatchable event
func DecodeEvent(data []byte) (websocket.Event, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return websocket.Event{}, fmt.Errorf("failed to decode event message: %w", err)
	}

	kind := websocket.EventKind(msg.Kind)
	if !kind.IsValid() {
		return websocket.Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
	if msg.UserID == 0 {
		return websocket.Event{}, ErrMissingUserID
	}

	ev := websocket.Event{Kind: kind, UserID: msg.UserID}
	if len(msg.Payload) > 0 {
		ev.Payload = msg.Payload
	}
	return ev, nil
}

// EncodeEvent renders ev as a bus message stamped with at
func EncodeEvent(ev websocket.Event, at time.Time) ([]byte, error) {
	msg := EventMessage{
		Kind:      ev.Kind.String(),
		UserID:    ev.UserID,
		EmittedAt: at.UTC(),
	}
	if ev.Payload != nil {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		msg.Payload = payload
	}
	return json.Marshal(msg)
}
