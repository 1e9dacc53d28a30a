package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task-service/internal/models"

	"go.uber.org/zap"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidStatus  = errors.New("invalid task status")
)

type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	Save(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, userID, id uint) (*models.Task, error)
	Delete(ctx context.Context, userID, id uint) error
	UpdateStatus(ctx context.Context, userID uint, ids []uint, status models.TaskStatus) ([]models.Task, error)
}

// TaskEvents receives one call per successful task mutation
type TaskEvents interface {
	EmitTaskCreated(userID uint, task *models.Task)
	EmitTaskUpdated(userID uint, task *models.Task)
	EmitTaskDeleted(userID uint, taskID uint)
	EmitTaskBulkUpdate(userID uint, tasks []models.Task)
}

type TaskService struct {
	repo   TaskStore
	events TaskEvents
	log    *zap.Logger
}

func NewTaskService(repo TaskStore, events TaskEvents, log *zap.Logger) *TaskService {
	return &TaskService{repo: repo, events: events, log: log.Named("task-service")}
}

func (s *TaskService) Create(ctx context.Context, userID uint, req *models.CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	priority := req.Priority
	if priority == 0 {
		priority = 3
	}

	task := &models.Task{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Title:       title,
		Description: req.Description,
		Status:      models.TaskStatusTodo,
		Priority:    priority,
		DueDate:     req.DueDate,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.events.EmitTaskCreated(userID, task)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, userID, taskID uint, req *models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidRequest)
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.CategoryID != nil {
		task.CategoryID = req.CategoryID
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil && (task.DueDate == nil || !task.DueDate.Equal(*req.DueDate)) {
		// a moved deadline deserves fresh reminders
		task.DueDate = req.DueDate
		task.DueNotifiedAt = nil
		task.OverdueNotifiedAt = nil
	}

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task %d: %w", taskID, err)
	}

	s.events.EmitTaskUpdated(userID, task)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID uint) error {
	if err := s.repo.Delete(ctx, userID, taskID); err != nil {
		return err
	}
	s.events.EmitTaskDeleted(userID, taskID)
	return nil
}

// BulkUpdateStatus moves every listed task the user owns to status and emits a single
// bulk event with the updated rows.
func (s *TaskService) BulkUpdateStatus(ctx context.Context, userID uint, req *models.BulkUpdateTasksRequest) ([]models.Task, error) {
	if len(req.TaskIDs) == 0 {
		return nil, fmt.Errorf("%w: no task ids", ErrInvalidRequest)
	}
	if !req.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	tasks, err := s.repo.UpdateStatus(ctx, userID, req.TaskIDs, req.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk update tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	s.log.Debug("Bulk status update",
		zap.Uint("user_id", userID), zap.Int("tasks", len(tasks)), zap.String("status", string(req.Status)))
	s.events.EmitTaskBulkUpdate(userID, tasks)
	return tasks, nil
}
