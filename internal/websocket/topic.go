package websocket

import (
	"fmt"
	"sync"
)

// UserTopic is the personal notification topic every connection joins on registration
func UserTopic(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// TaskTopic carries task events for one user; joined on request only
func TaskTopic(userID uint) string {
	return fmt.Sprintf("tasks:%d", userID)
}

// CategoryTopic carries category events for one user; joined on request only
func CategoryTopic(userID uint) string {
	return fmt.Sprintf("categories:%d", userID)
}

// Topics indexes topic name -> member connections. Empty topics are removed.
type Topics struct {
	mu      sync.RWMutex
	members map[string]map[string]*Client
}

func NewTopics() *Topics {
	return &Topics{members: make(map[string]map[string]*Client)}
}

// Join adds c to topic and reports whether it was not already a member
func (t *Topics) Join(topic string, c *Client) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.members[topic]
	if !ok {
		set = make(map[string]*Client)
		t.members[topic] = set
	}
	if _, exists := set[c.id]; exists {
		return false
	}
	set[c.id] = c
	return true
}

// Leave removes c from topic and reports whether it was a member
func (t *Topics) Leave(topic string, c *Client) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.members[topic]
	if !ok {
		return false
	}
	if _, exists := set[c.id]; !exists {
		return false
	}
	delete(set, c.id)
	if len(set) == 0 {
		delete(t.members, topic)
	}
	return true
}

// Members returns a snapshot of the connections currently in topic
func (t *Topics) Members(topic string) []*Client {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set := t.members[topic]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (t *Topics) Size(topic string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members[topic])
}

// Len returns the number of non-empty topics
func (t *Topics) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}
