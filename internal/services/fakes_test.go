package services

import (
	"context"
	"sync"
	"time"

	"task-service/internal/models"
)

type emitted struct {
	kind   string
	userID uint
	id     uint
	count  int
}

// recordingEvents captures every Emit* call made by the services under test
type recordingEvents struct {
	mu    sync.Mutex
	calls []emitted
}

func (r *recordingEvents) add(e emitted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, e)
}

func (r *recordingEvents) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.calls...)
}

func (r *recordingEvents) EmitTaskCreated(userID uint, task *models.Task) {
	r.add(emitted{kind: "task:created", userID: userID, id: task.ID})
}

func (r *recordingEvents) EmitTaskUpdated(userID uint, task *models.Task) {
	r.add(emitted{kind: "task:updated", userID: userID, id: task.ID})
}

func (r *recordingEvents) EmitTaskDeleted(userID uint, taskID uint) {
	r.add(emitted{kind: "task:deleted", userID: userID, id: taskID})
}

func (r *recordingEvents) EmitTaskBulkUpdate(userID uint, tasks []models.Task) {
	r.add(emitted{kind: "task:bulk-updated", userID: userID, count: len(tasks)})
}

func (r *recordingEvents) EmitCategoryCreated(userID uint, category *models.Category) {
	r.add(emitted{kind: "category:created", userID: userID, id: category.ID})
}

func (r *recordingEvents) EmitCategoryUpdated(userID uint, category *models.Category) {
	r.add(emitted{kind: "category:updated", userID: userID, id: category.ID})
}

func (r *recordingEvents) EmitCategoryDeleted(userID uint, categoryID uint) {
	r.add(emitted{kind: "category:deleted", userID: userID, id: categoryID})
}

func (r *recordingEvents) EmitNotification(userID uint, n *models.Notification) {
	r.add(emitted{kind: "notification:created", userID: userID, id: n.ID})
}

// memoryTasks is an in-memory TaskStore and ReminderStore
type memoryTasks struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.Task
	err    error
}

func newMemoryTasks() *memoryTasks {
	return &memoryTasks{rows: map[uint]*models.Task{}}
}

func (m *memoryTasks) Create(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	task.ID = m.nextID
	cp := *task
	m.rows[task.ID] = &cp
	return nil
}

func (m *memoryTasks) Save(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *task
	m.rows[task.ID] = &cp
	return nil
}

func (m *memoryTasks) FindByID(_ context.Context, userID, id uint) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTasks) Delete(_ context.Context, userID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return models.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryTasks) UpdateStatus(_ context.Context, userID uint, ids []uint, status models.TaskStatus) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, id := range ids {
		if t, ok := m.rows[id]; ok && t.UserID == userID {
			t.Status = status
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryTasks) FindDueForReminder(_ context.Context, now, cutoff time.Time) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.rows {
		if t.Status != models.TaskStatusDone && t.DueDate != nil && t.DueDate.After(now) &&
			!t.DueDate.After(cutoff) && t.DueNotifiedAt == nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryTasks) FindOverdue(_ context.Context, now time.Time) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.rows {
		if t.Status != models.TaskStatusDone && t.DueDate != nil && !t.DueDate.After(now) &&
			t.OverdueNotifiedAt == nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryTasks) MarkDueNotified(_ context.Context, id uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.DueNotifiedAt != nil {
		return false, nil
	}
	t.DueNotifiedAt = &at
	return true, nil
}

func (m *memoryTasks) MarkOverdueNotified(_ context.Context, id uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.OverdueNotifiedAt != nil {
		return false, nil
	}
	t.OverdueNotifiedAt = &at
	return true, nil
}

type memoryCategories struct {
	nextID uint
	rows   map[uint]*models.Category
}

func newMemoryCategories() *memoryCategories {
	return &memoryCategories{rows: map[uint]*models.Category{}}
}

func (m *memoryCategories) Create(_ context.Context, c *models.Category) error {
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memoryCategories) Save(_ context.Context, c *models.Category) error {
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memoryCategories) FindByID(_ context.Context, userID, id uint) (*models.Category, error) {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryCategories) Delete(_ context.Context, userID, id uint) error {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return models.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memoryNotifications struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.Notification
}

func (m *memoryNotifications) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memoryNotifications) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
