package websocket

import (
	"context"
	"testing"
	"time"

	"task-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestRelayChannelMapping(t *testing.T) {
	assert.Equal(t, "ws:topic:tasks:5", relayChannel(TaskTopic(5)))

	topic, ok := topicFromChannel("ws:topic:user:5")
	assert.True(t, ok)
	assert.Equal(t, "user:5", topic)

	_, ok = topicFromChannel("ws:topic:")
	assert.False(t, ok)
	_, ok = topicFromChannel("other:user:5")
	assert.False(t, ok)
}

func TestRelayFallsBackToLocalWhenOutboxFull(t *testing.T) {
	log := zaptest.NewLogger(t)
	hub := NewHub(NewRegistry(), NewTopics(), log, Options{})
	relay := NewRedisRelay(nil, hub, 1, log)
	c := connect(t, hub, 1)

	frame := mustEncode(EventNotificationCreated.String(), nil)
	relay.Publish(UserTopic(1), frame)
	assert.Empty(t, drain(t, c), "queued for Redis, not delivered locally")

	relay.Publish(UserTopic(1), frame)
	assert.Len(t, drain(t, c), 1)
	assert.Len(t, relay.outbox, 1)
}

// deletedIDs collects the ids of task:deleted frames buffered for c
type deletedIDs struct {
	t   *testing.T
	c   *Client
	ids []uint
}

func (d *deletedIDs) collect() []uint {
	for _, f := range drain(d.t, d.c) {
		data, _ := f.Data.(map[string]interface{})
		id, _ := data["id"].(float64)
		d.ids = append(d.ids, uint(id))
	}
	return d.ids
}

func TestRelayRoundTripDeliversOnce(t *testing.T) {
	client := testutil.Redis(t)
	hub, _ := newTestHub(t, Options{})
	relay := NewRedisRelay(client, hub, 0, zap.NewNop())
	dispatcher := NewDispatcher(relay, zap.NewNop())

	a, b := connect(t, hub, 1), connect(t, hub, 1)
	require.True(t, hub.Subscribe(a, TaskTopic(1)))
	require.True(t, hub.Subscribe(b, TaskTopic(1)))
	gotA, gotB := &deletedIDs{t: t, c: a}, &deletedIDs{t: t, c: b}

	waitFor := func(n int) {
		t.Helper()
		require.Eventually(t, func() bool {
			return len(gotA.collect()) >= n && len(gotB.collect()) >= n
		}, 5*time.Second, 10*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		assert.Len(t, gotA.collect(), n, "exactly one delivery per dispatch")
		assert.Len(t, gotB.collect(), n, "exactly one delivery per dispatch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// no listener yet: the frame is delivered locally, not lost
	go relay.publishLoop(ctx)
	dispatcher.EmitTaskDeleted(1, 1)
	waitFor(1)

	go relay.listen(ctx)
	require.Eventually(t, relay.Subscribed, 5*time.Second, 10*time.Millisecond)
	dispatcher.EmitTaskDeleted(1, 2)
	waitFor(2)

	// the listener resubscribes after its connection is dropped
	sessions := relay.sessions.Load()
	require.NoError(t, client.ClientKillByFilter(ctx, "TYPE", "pubsub").Err())
	require.Eventually(t, func() bool {
		return relay.sessions.Load() > sessions && relay.Subscribed()
	}, 10*time.Second, 20*time.Millisecond)

	dispatcher.EmitTaskDeleted(1, 3)
	waitFor(3)

	assert.Equal(t, []uint{1, 2, 3}, gotA.ids)
	assert.Equal(t, []uint{1, 2, 3}, gotB.ids)
}
