package kafka

import (
	"testing"
	"time"

	"task-service/internal/websocket"
	"task-service/pkg/json"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	events []websocket.Event
}

func (r *recordingSink) Dispatch(ev websocket.Event) {
	r.events = append(r.events, ev)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"kind":"task:deleted","user_id":7,"payload":{"id":3}}`))
	require.NoError(t, err)
	assert.Equal(t, websocket.EventTaskDeleted, ev.Kind)
	assert.Equal(t, uint(7), ev.UserID)
	assert.JSONEq(t, `{"id":3}`, string(ev.Payload.(json.RawMessage)))

	ev, err = DecodeEvent([]byte(`{"kind":"notification:created","user_id":7}`))
	require.NoError(t, err)
	assert.Nil(t, ev.Payload)
}

func TestDecodeEventRejects(t *testing.T) {
	_, err := DecodeEvent([]byte(`{not json`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"kind":"task:archived","user_id":7}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = DecodeEvent([]byte(`{"kind":"task:created"}`))
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestEncodeEventRoundTripsThroughDecode(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := EncodeEvent(websocket.Event{
		Kind:    websocket.EventCategoryCreated,
		UserID:  9,
		Payload: map[string]interface{}{"id": 1, "name": "Work"},
	}, at)
	require.NoError(t, err)

	var msg EventMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, at, msg.EmittedAt)

	ev, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, websocket.EventCategoryCreated, ev.Kind)
	assert.JSONEq(t, `{"id":1,"name":"Work"}`, string(ev.Payload.(json.RawMessage)))
}

func TestConsumerHandleSkipsBadMessages(t *testing.T) {
	sink := &recordingSink{}
	c := &Consumer{sink: sink, log: zap.NewNop()}

	c.handle(kafka.Message{Value: []byte(`garbage`)})
	c.handle(kafka.Message{Value: []byte(`{"kind":"task:created","user_id":1,"payload":{"id":5}}`)})

	require.Len(t, sink.events, 1)
	assert.Equal(t, websocket.EventTaskCreated, sink.events[0].Kind)
}

func TestConsumerSkipsAuditRecords(t *testing.T) {
	sink := &recordingSink{}
	c := &Consumer{sink: sink, log: zap.NewNop()}

	value, err := EncodeEvent(websocket.Event{Kind: websocket.EventTaskCreated, UserID: 3, Payload: map[string]int{"id": 9}}, time.Now())
	require.NoError(t, err)

	c.handle(kafka.Message{
		Value:   value,
		Headers: []kafka.Header{{Key: OriginHeader, Value: []byte(OriginAudit)}},
	})
	assert.Empty(t, sink.events, "audit records are not re-dispatched")

	c.handle(kafka.Message{Value: value})
	require.Len(t, sink.events, 1)
}
