package postgres

import (
	"context"
	"errors"
	"time"

	"task-service/internal/models"

	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) Save(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// FindByID loads a task scoped to its owner
func (r *TaskRepository) FindByID(ctx context.Context, userID, id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateStatus sets the status of every listed task the user owns and returns the updated rows
func (r *TaskRepository) UpdateStatus(ctx context.Context, userID uint, ids []uint, status models.TaskStatus) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id IN ?", userID, ids).Order("id").Find(&tasks).Error
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindDueForReminder returns open tasks due before the cutoff that have not been reminded yet
func (r *TaskRepository) FindDueForReminder(ctx context.Context, now, cutoff time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("status <> ? AND due_date IS NOT NULL AND due_date > ? AND due_date <= ? AND due_notified_at IS NULL",
			models.TaskStatusDone, now, cutoff).
		Order("due_date").
		Find(&tasks).Error
	return tasks, err
}

// FindOverdue returns open tasks past their due date that have not been flagged yet
func (r *TaskRepository) FindOverdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("status <> ? AND due_date IS NOT NULL AND due_date <= ? AND overdue_notified_at IS NULL",
			models.TaskStatusDone, now).
		Order("due_date").
		Find(&tasks).Error
	return tasks, err
}

// MarkDueNotified stamps the reminder flag; it reports false when another scan already did
func (r *TaskRepository) MarkDueNotified(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND due_notified_at IS NULL", id).
		Update("due_notified_at", at)
	return res.RowsAffected == 1, res.Error
}

// MarkOverdueNotified stamps the overdue flag; it reports false when another scan already did
func (r *TaskRepository) MarkOverdueNotified(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND overdue_notified_at IS NULL", id).
		Update("overdue_notified_at", at)
	return res.RowsAffected == 1, res.Error
}
