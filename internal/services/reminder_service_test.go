package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"task-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedTask(t *testing.T, repo *memoryTasks, userID uint, due time.Time, status models.TaskStatus) uint {
	t.Helper()
	task := &models.Task{UserID: userID, Title: "t", Status: status, DueDate: &due}
	require.NoError(t, repo.Create(context.Background(), task))
	return task.ID
}

func newReminderFixture(now time.Time) (*ReminderService, *memoryTasks, *memoryNotifications, *recordingEvents) {
	repo := newMemoryTasks()
	events := &recordingEvents{}
	notes := &memoryNotifications{}
	notifier := NewNotificationService(notes, events, zap.NewNop())

	svc := NewReminderService(repo, notifier, "@every 1m", 24*time.Hour, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, repo, notes, events
}

func TestReminderScanNotifiesOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, repo, notes, events := newReminderFixture(now)

	seedTask(t, repo, 1, now.Add(2*time.Hour), models.TaskStatusTodo)  // due soon
	seedTask(t, repo, 1, now.Add(-time.Hour), models.TaskStatusTodo)   // overdue
	seedTask(t, repo, 2, now.Add(72*time.Hour), models.TaskStatusTodo) // outside window
	seedTask(t, repo, 2, now.Add(-time.Hour), models.TaskStatusDone)   // finished

	res, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Due: 1, Overdue: 1}, res)
	assert.Equal(t, 2, notes.count())

	res, err = svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, res, "flags prevent a second notification")
	assert.Equal(t, 2, notes.count())

	for _, e := range events.all() {
		assert.Equal(t, "notification:created", e.kind)
		assert.Equal(t, uint(1), e.userID)
	}
}

func TestConcurrentScansNeverDoubleNotify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, repo, notes, _ := newReminderFixture(now)
	for i := 0; i < 10; i++ {
		seedTask(t, repo, 1, now.Add(-time.Duration(i+1)*time.Minute), models.TaskStatusInProgress)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Scan(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, notes.count())
}

func TestReminderStartRejectsBadSchedule(t *testing.T) {
	svc := NewReminderService(newMemoryTasks(), nil, "not a schedule", time.Hour, zap.NewNop())
	assert.Error(t, svc.Start())

	ok := NewReminderService(newMemoryTasks(), nil, "@every 1h", time.Hour, zap.NewNop())
	require.NoError(t, ok.Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ok.Stop(ctx)
}
