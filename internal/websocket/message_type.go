package websocket

import (
	"task-service/pkg/json"
)

// EventKind names an outbound domain event; the value is used verbatim as the frame's event name
type EventKind string

const (
	EventTaskCreated     EventKind = "task:created"
	EventTaskUpdated     EventKind = "task:updated"
	EventTaskDeleted     EventKind = "task:deleted"
	EventTaskBulkUpdated EventKind = "task:bulk-updated"

	EventCategoryCreated EventKind = "category:created"
	EventCategoryUpdated EventKind = "category:updated"
	EventCategoryDeleted EventKind = "category:deleted"

	EventNotificationCreated EventKind = "notification:created"
)

func (k EventKind) String() string {
	return string(k)
}

// Topic resolves the single target topic for an event of this kind owned by userID
func (k EventKind) Topic(userID uint) (string, bool) {
	switch k {
	case EventTaskCreated, EventTaskUpdated, EventTaskDeleted, EventTaskBulkUpdated:
		return TaskTopic(userID), true
	case EventCategoryCreated, EventCategoryUpdated, EventCategoryDeleted:
		return CategoryTopic(userID), true
	case EventNotificationCreated:
		return UserTopic(userID), true
	default:
		return "", false
	}
}

// IsValid checks if the EventKind is a known value
func (k EventKind) IsValid() bool {
	_, ok := k.Topic(1)
	return ok
}

// Inbound client signals and control replies
const (
	SignalSubscribeTasks      = "subscribe:tasks"
	SignalSubscribeCategories = "subscribe:categories"
	SignalPing                = "ping"
	SignalPong                = "pong"
	SignalError               = "error"
)

// Frame is the JSON envelope used in both directions
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// deletedPayload is the body of *:deleted events
type deletedPayload struct {
	ID uint `json:"id"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}

var pongFrame = mustEncode(SignalPong, nil)

func mustEncode(event string, data interface{}) []byte {
	b, err := encodeFrame(event, data)
	if err != nil {
		panic(err)
	}
	return b
}

func errorFrame(code, message string) []byte {
	return mustEncode(SignalError, ErrorData{Code: code, Message: message})
}
