package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"task-service/internal/models"
	"task-service/internal/repositories/postgres"
	"task-service/internal/services"
	"task-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ services.TaskStore         = (*postgres.TaskRepository)(nil)
	_ services.ReminderStore     = (*postgres.TaskRepository)(nil)
	_ services.CategoryStore     = (*postgres.CategoryRepository)(nil)
	_ services.NotificationStore = (*postgres.NotificationRepository)(nil)
	_ services.UserStore         = (*postgres.UserRepository)(nil)
)

type emitted struct {
	mu     sync.Mutex
	kinds  []string
	notify []*models.Notification
}

func (e *emitted) add(kind string) {
	e.mu.Lock()
	e.kinds = append(e.kinds, kind)
	e.mu.Unlock()
}

func (e *emitted) EmitTaskCreated(uint, *models.Task) { e.add("task:created") }
func (e *emitted) EmitTaskUpdated(uint, *models.Task) { e.add("task:updated") }
func (e *emitted) EmitTaskDeleted(uint, uint) { e.add("task:deleted") }
func (e *emitted) EmitTaskBulkUpdate(uint, []models.Task) { e.add("task:bulk-updated") }
func (e *emitted) EmitCategoryCreated(uint, *models.Category) { e.add("category:created") }
func (e *emitted) EmitCategoryUpdated(uint, *models.Category) { e.add("category:updated") }
func (e *emitted) EmitCategoryDeleted(uint, uint) { e.add("category:deleted") }
func (e *emitted) EmitNotification(_ uint, n *models.Notification) {
	e.mu.Lock()
	e.notify = append(e.notify, n)
	e.mu.Unlock()
}

func (e *emitted) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.kinds...)
}

func TestTaskLifecycleAgainstPostgres(t *testing.T) {
	db := testutil.Postgres(t)
	ctx := context.Background()
	events := &emitted{}
	svc := services.NewTaskService(postgres.NewTaskRepository(db), events, zap.NewNop())

	first, err := svc.Create(ctx, 1, &models.CreateTaskRequest{Title: "write report"})
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	second, err := svc.Create(ctx, 1, &models.CreateTaskRequest{Title: "review report"})
	require.NoError(t, err)

	title := "write final report"
	updated, err := svc.Update(ctx, 1, first.ID, &models.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	_, err = svc.Update(ctx, 2, first.ID, &models.UpdateTaskRequest{Title: &title})
	assert.ErrorIs(t, err, models.ErrNotFound, "tasks are scoped to their owner")

	tasks, err := svc.BulkUpdateStatus(ctx, 1, &models.BulkUpdateTasksRequest{
		TaskIDs: []uint{first.ID, second.ID, 9999},
		Status:  models.TaskStatusDone,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, models.TaskStatusDone, task.Status)
	}

	tasks, err = svc.BulkUpdateStatus(ctx, 2, &models.BulkUpdateTasksRequest{
		TaskIDs: []uint{first.ID},
		Status:  models.TaskStatusTodo,
	})
	require.NoError(t, err)
	assert.Empty(t, tasks, "another user's ids match nothing")

	require.NoError(t, svc.Delete(ctx, 1, first.ID))
	assert.ErrorIs(t, svc.Delete(ctx, 1, first.ID), models.ErrNotFound)

	assert.Equal(t, []string{
		"task:created", "task:created", "task:updated", "task:bulk-updated", "task:deleted",
	}, events.snapshot())
}

func TestCategoryDeleteDetachesTasks(t *testing.T) {
	db := testutil.Postgres(t)
	ctx := context.Background()
	events := &emitted{}
	categories := services.NewCategoryService(postgres.NewCategoryRepository(db), events, zap.NewNop())
	tasks := services.NewTaskService(postgres.NewTaskRepository(db), events, zap.NewNop())

	category, err := categories.Create(ctx, 1, &models.CreateCategoryRequest{Name: "work"})
	require.NoError(t, err)

	name := "office"
	_, err = categories.Update(ctx, 1, category.ID, &models.UpdateCategoryRequest{Name: &name})
	require.NoError(t, err)

	task, err := tasks.Create(ctx, 1, &models.CreateTaskRequest{Title: "file expenses", CategoryID: &category.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, categories.Delete(ctx, 2, category.ID), models.ErrNotFound)
	require.NoError(t, categories.Delete(ctx, 1, category.ID))

	reloaded, err := postgres.NewTaskRepository(db).FindByID(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CategoryID)

	assert.Equal(t, []string{
		"category:created", "category:updated", "task:created", "category:deleted",
	}, events.snapshot())
}

func TestReminderClaimsAreConditional(t *testing.T) {
	db := testutil.Postgres(t)
	ctx := context.Background()
	repo := postgres.NewTaskRepository(db)
	svc := services.NewTaskService(repo, &emitted{}, zap.NewNop())

	due := time.Now().Add(time.Hour)
	task, err := svc.Create(ctx, 1, &models.CreateTaskRequest{Title: "pay rent", DueDate: &due})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkDueNotified(ctx, task.ID, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claims, "exactly one claimant wins")

	ok, err := repo.MarkOverdueNotified(ctx, task.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok, "the overdue flag is claimed independently")
	ok, err = repo.MarkOverdueNotified(ctx, task.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

// Two instances scanning the same database must not remind about the same task twice.
func TestConcurrentInstancesNotifyOnce(t *testing.T) {
	db := testutil.Postgres(t)
	ctx := context.Background()
	repo := postgres.NewTaskRepository(db)
	tasks := services.NewTaskService(repo, &emitted{}, zap.NewNop())

	soon, past := time.Now().Add(2*time.Hour), time.Now().Add(-time.Hour)
	for _, due := range []time.Time{soon, soon, past} {
		due := due
		_, err := tasks.Create(ctx, 1, &models.CreateTaskRequest{Title: "task", DueDate: &due})
		require.NoError(t, err)
	}

	events := &emitted{}
	notifications := services.NewNotificationService(postgres.NewNotificationRepository(db), events, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]services.ScanResult, 2)
	for i := range results {
		reminder := services.NewReminderService(repo, notifications, "@every 1m", 24*time.Hour, zap.NewNop())
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := reminder.Scan(ctx)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, results[0].Due+results[1].Due)
	assert.Equal(t, 1, results[0].Overdue+results[1].Overdue)
	assert.Len(t, events.notify, 3)

	var stored int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&stored).Error)
	assert.Equal(t, int64(3), stored)
}
