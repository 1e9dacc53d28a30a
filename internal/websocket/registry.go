package websocket

import "sync"

// Registry tracks which live connections belong to which user.
//
// A user appears in the registry if and only if at least one of its connections is
// live: the entry is deleted together with its last connection, so churn never
// leaves empty sets behind.
type Registry struct {
	mu    sync.RWMutex
	users map[uint]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[uint]map[string]struct{})}
}

// Add records connID under userID. It reports whether this made the user reachable,
// i.e. the user had no live connection before. Adding a known pair is a no-op.
func (r *Registry) Add(userID uint, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.users[userID] = conns
	}
	if _, exists := conns[connID]; exists {
		return false
	}
	conns[connID] = struct{}{}
	return len(conns) == 1
}

// Remove drops connID from userID. It reports whether the user's entry was deleted
// because this was its last connection. Removing an unknown pair is a no-op.
func (r *Registry) Remove(userID uint, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, exists := conns[connID]; !exists {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

func (r *Registry) IsConnected(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Count returns the number of distinct users with at least one live connection
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Connections returns a snapshot of the user's live connection ids
func (r *Registry) Connections(userID uint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.users[userID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}
