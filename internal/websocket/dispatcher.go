package websocket

import (
	"task-service/internal/models"

	"go.uber.org/zap"
)

// Event is an immutable domain event addressed to one user's topics
type Event struct {
	Kind    EventKind
	UserID  uint
	Payload interface{}
}

// Publisher delivers an encoded frame to the members of a topic
type Publisher interface {
	Publish(topic string, frame []byte)
}

// Tap observes every event the dispatcher accepts. Implementations must not block.
type Tap interface {
	Record(ev Event)
}

// Dispatcher turns domain events into frames and routes them to the owning user's topic.
// It never blocks the caller and never reports delivery failures back to it.
type Dispatcher struct {
	publisher Publisher
	taps      []Tap
	log       *zap.Logger
}

func NewDispatcher(publisher Publisher, log *zap.Logger, taps ...Tap) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		taps:      taps,
		log:       log.Named("dispatcher"),
	}
}

// Dispatch resolves the topic for ev, encodes it once and hands it to the publisher
func (d *Dispatcher) Dispatch(ev Event) {
	topic, ok := ev.Kind.Topic(ev.UserID)
	if !ok {
		d.log.Warn("Dropping event of unknown kind", zap.String("event", ev.Kind.String()))
		return
	}

	frame, err := encodeFrame(ev.Kind.String(), ev.Payload)
	if err != nil {
		d.log.Error("Failed to encode event",
			zap.String("event", ev.Kind.String()),
			zap.Uint("user_id", ev.UserID),
			zap.Error(err))
		return
	}

	eventsDispatched.WithLabelValues(ev.Kind.String()).Inc()
	d.publisher.Publish(topic, frame)

	for _, tap := range d.taps {
		tap.Record(ev)
	}
}

func (d *Dispatcher) EmitTaskCreated(userID uint, task *models.Task) {
	d.Dispatch(Event{Kind: EventTaskCreated, UserID: userID, Payload: task})
}

func (d *Dispatcher) EmitTaskUpdated(userID uint, task *models.Task) {
	d.Dispatch(Event{Kind: EventTaskUpdated, UserID: userID, Payload: task})
}

func (d *Dispatcher) EmitTaskDeleted(userID uint, taskID uint) {
	d.Dispatch(Event{Kind: EventTaskDeleted, UserID: userID, Payload: deletedPayload{ID: taskID}})
}

func (d *Dispatcher) EmitTaskBulkUpdate(userID uint, tasks []models.Task) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	d.Dispatch(Event{Kind: EventTaskBulkUpdated, UserID: userID, Payload: tasks})
}

func (d *Dispatcher) EmitCategoryCreated(userID uint, category *models.Category) {
	d.Dispatch(Event{Kind: EventCategoryCreated, UserID: userID, Payload: category})
}

func (d *Dispatcher) EmitCategoryUpdated(userID uint, category *models.Category) {
	d.Dispatch(Event{Kind: EventCategoryUpdated, UserID: userID, Payload: category})
}

func (d *Dispatcher) EmitCategoryDeleted(userID uint, categoryID uint) {
	d.Dispatch(Event{Kind: EventCategoryDeleted, UserID: userID, Payload: deletedPayload{ID: categoryID}})
}

func (d *Dispatcher) EmitNotification(userID uint, notification *models.Notification) {
	d.Dispatch(Event{Kind: EventNotificationCreated, UserID: userID, Payload: notification})
}
