package models

import "time"

type NotificationType string

const (
	NotificationTaskDue     NotificationType = "task_due"
	NotificationTaskOverdue NotificationType = "task_overdue"
	NotificationSystem      NotificationType = "system"
)

// Notification is an alert surfaced to a user, usually about one of their tasks
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"index;not null" json:"userId"`
	TaskID    *uint            `gorm:"index" json:"taskId,omitempty"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"not null" json:"message"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
