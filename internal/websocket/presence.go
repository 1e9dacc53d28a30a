package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PresenceStore is an external view of who is online, shared between instances
type PresenceStore interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

const presenceWriteTimeout = 3 * time.Second

// PresenceSync mirrors Registry transitions into a PresenceStore on a single worker.
// The worker reads the Registry when it handles a user, not the state at the time of
// the notification, so reordered connect/disconnect pairs still settle on the truth.
type PresenceSync struct {
	store    PresenceStore
	registry *Registry
	queue    chan uint
	log      *zap.Logger
}

func NewPresenceSync(store PresenceStore, registry *Registry, queueSize int, log *zap.Logger) *PresenceSync {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &PresenceSync{
		store:    store,
		registry: registry,
		queue:    make(chan uint, queueSize),
		log:      log.Named("presence"),
	}
}

// Changed queues userID for a presence write without blocking
func (p *PresenceSync) Changed(userID uint) {
	select {
	case p.queue <- userID:
	default:
		p.log.Warn("Presence queue full, dropping update", zap.Uint("user_id", userID))
	}
}

// Run processes queued users until ctx is cancelled
func (p *PresenceSync) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case userID := <-p.queue:
			p.sync(ctx, userID)
		}
	}
}

func (p *PresenceSync) sync(ctx context.Context, userID uint) {
	ctx, cancel := context.WithTimeout(ctx, presenceWriteTimeout)
	defer cancel()

	var err error
	if p.registry.IsConnected(userID) {
		err = p.store.SetUserOnline(ctx, userID)
	} else {
		err = p.store.SetUserOffline(ctx, userID)
	}
	if err != nil {
		p.log.Warn("Failed to update presence", zap.Uint("user_id", userID), zap.Error(err))
	}
}
