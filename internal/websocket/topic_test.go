package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "user:7", UserTopic(7))
	assert.Equal(t, "tasks:7", TaskTopic(7))
	assert.Equal(t, "categories:7", CategoryTopic(7))
}

func TestTopicsJoinLeave(t *testing.T) {
	topics := NewTopics()
	a := &Client{id: "a"}
	b := &Client{id: "b"}

	assert.True(t, topics.Join("tasks:1", a))
	assert.False(t, topics.Join("tasks:1", a))
	assert.True(t, topics.Join("tasks:1", b))
	assert.Equal(t, 2, topics.Size("tasks:1"))
	assert.ElementsMatch(t, []*Client{a, b}, topics.Members("tasks:1"))

	assert.True(t, topics.Leave("tasks:1", a))
	assert.False(t, topics.Leave("tasks:1", a))
	assert.Equal(t, 1, topics.Len())

	assert.True(t, topics.Leave("tasks:1", b))
	assert.Equal(t, 0, topics.Len(), "empty topics are removed")
	assert.Empty(t, topics.Members("tasks:1"))
}
