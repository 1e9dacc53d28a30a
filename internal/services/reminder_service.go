package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-service/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const reminderScanTimeout = 30 * time.Second

type ReminderStore interface {
	FindDueForReminder(ctx context.Context, now, cutoff time.Time) ([]models.Task, error)
	FindOverdue(ctx context.Context, now time.Time) ([]models.Task, error)
	MarkDueNotified(ctx context.Context, id uint, at time.Time) (bool, error)
	MarkOverdueNotified(ctx context.Context, id uint, at time.Time) (bool, error)
}

type Notifier interface {
	Create(ctx context.Context, userID uint, taskID *uint, kind models.NotificationType, message string) (*models.Notification, error)
}

// ScanResult counts the notifications produced by one reminder scan
type ScanResult struct {
	Due     int
	Overdue int
}

// ReminderService periodically notifies users about tasks that are about to be due or
// already overdue. Each task is claimed by stamping its flag before the notification
// is created, so concurrent scans never notify twice.
type ReminderService struct {
	tasks     ReminderStore
	notifier  Notifier
	schedule  string
	dueWindow time.Duration

	cron  *cron.Cron
	group singleflight.Group
	now   func() time.Time
	log   *zap.Logger
}

func NewReminderService(tasks ReminderStore, notifier Notifier, schedule string, dueWindow time.Duration, log *zap.Logger) *ReminderService {
	return &ReminderService{
		tasks:     tasks,
		notifier:  notifier,
		schedule:  schedule,
		dueWindow: dueWindow,
		now:       time.Now,
		log:       log.Named("reminder"),
	}
}

// Scan runs one reminder pass. Calls made while a pass is running share its result.
func (s *ReminderService) Scan(ctx context.Context) (ScanResult, error) {
	v, err, shared := s.group.Do("scan", func() (interface{}, error) {
		return s.scan(ctx)
	})
	if shared {
		s.log.Debug("Joined in-flight reminder scan")
	}
	res, _ := v.(ScanResult)
	return res, err
}

func (s *ReminderService) scan(ctx context.Context) (ScanResult, error) {
	var res ScanResult
	now := s.now()

	due, err := s.tasks.FindDueForReminder(ctx, now, now.Add(s.dueWindow))
	if err != nil {
		return res, fmt.Errorf("failed to load due tasks: %w", err)
	}
	for i := range due {
		task := &due[i]
		ok, err := s.notify(ctx, task, now, s.tasks.MarkDueNotified, models.NotificationTaskDue,
			fmt.Sprintf("Task %q is due %s", task.Title, task.DueDate.Format(time.RFC1123)))
		if err != nil {
			return res, err
		}
		if ok {
			res.Due++
		}
	}

	overdue, err := s.tasks.FindOverdue(ctx, now)
	if err != nil {
		return res, fmt.Errorf("failed to load overdue tasks: %w", err)
	}
	for i := range overdue {
		task := &overdue[i]
		ok, err := s.notify(ctx, task, now, s.tasks.MarkOverdueNotified, models.NotificationTaskOverdue,
			fmt.Sprintf("Task %q is overdue", task.Title))
		if err != nil {
			return res, err
		}
		if ok {
			res.Overdue++
		}
	}

	if res.Due > 0 || res.Overdue > 0 {
		s.log.Info("Reminder scan finished", zap.Int("due", res.Due), zap.Int("overdue", res.Overdue))
	}
	return res, nil
}

type claimFunc func(ctx context.Context, id uint, at time.Time) (bool, error)

func (s *ReminderService) notify(ctx context.Context, task *models.Task, now time.Time, claim claimFunc, kind models.NotificationType, message string) (bool, error) {
	claimed, err := claim(ctx, task.ID, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim task %d: %w", task.ID, err)
	}
	if !claimed {
		return false, nil
	}

	taskID := task.ID
	if _, err := s.notifier.Create(ctx, task.UserID, &taskID, kind, message); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		// the claim stays; a missed reminder beats a duplicated one
		s.log.Error("Failed to create reminder notification",
			zap.Uint("task_id", task.ID), zap.Uint("user_id", task.UserID), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Start schedules Scan on the configured cron spec
func (s *ReminderService) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderScanTimeout)
		defer cancel()
		if _, err := s.Scan(ctx); err != nil {
			s.log.Error("Reminder scan failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	c.Start()
	s.log.Info("Reminder scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop prevents new scans and waits for a running one, bounded by ctx
func (s *ReminderService) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Reminder scan still running at shutdown")
	}
}
