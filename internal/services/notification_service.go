package services

import (
	"context"
	"fmt"

	"task-service/internal/models"

	"go.uber.org/zap"
)

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

type NotificationEvents interface {
	EmitNotification(userID uint, notification *models.Notification)
}

type NotificationService struct {
	repo   NotificationStore
	events NotificationEvents
	log    *zap.Logger
}

func NewNotificationService(repo NotificationStore, events NotificationEvents, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, events: events, log: log.Named("notification-service")}
}

// Create stores a notification and pushes it to the user's personal topic
func (s *NotificationService) Create(ctx context.Context, userID uint, taskID *uint, kind models.NotificationType, message string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  userID,
		TaskID:  taskID,
		Type:    kind,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.events.EmitNotification(userID, n)
	return n, nil
}
