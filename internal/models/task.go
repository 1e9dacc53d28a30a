package models

import "time"

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// IsValid reports whether s is one of the known statuses
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"userId"`
	CategoryID  *uint      `gorm:"index" json:"categoryId,omitempty"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `gorm:"size:20;not null;default:todo" json:"status"`
	Priority    int        `gorm:"not null;default:3" json:"priority"`
	DueDate     *time.Time `gorm:"index" json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Reminder bookkeeping, never sent to clients
	DueNotifiedAt     *time.Time `json:"-"`
	OverdueNotifiedAt *time.Time `json:"-"`
}

/** -------------------- DTOs -------------------- */
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description,omitempty"`
	CategoryID  *uint      `json:"categoryId,omitempty"`
	Priority    int        `json:"priority,omitempty" binding:"omitempty,min=1,max=5"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string     `json:"title,omitempty" binding:"omitempty,max=200"`
	Description *string     `json:"description,omitempty"`
	CategoryID  *uint       `json:"categoryId,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	Priority    *int        `json:"priority,omitempty" binding:"omitempty,min=1,max=5"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
}

type BulkUpdateTasksRequest struct {
	TaskIDs []uint     `json:"taskIds" binding:"required,min=1"`
	Status  TaskStatus `json:"status" binding:"required"`
}
