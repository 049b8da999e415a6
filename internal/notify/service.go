package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"remindd/internal/auth"
	"remindd/internal/task"
)

// Service sends the event-driven notifications: assignment, completion,
// overdue and the registration welcome. Reminders go through the evaluator
// instead; events have no tracker bookkeeping, only preference gates and the
// audit log.
type Service struct {
	DB      *gorm.DB
	Prefs   *PreferenceStore
	Gateway *Gateway
	Render  *Renderer
	Log     *slog.Logger

	Location    *time.Location
	WeekendDays []time.Weekday

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Location)
	}
	return time.Now().In(s.Location)
}

// NotifyAssigned emails the assignee of a task. Self-assignment is silent.
func (s *Service) NotifyAssigned(ctx context.Context, taskID, assignerID uint64) error {
	t, err := s.Gateway.loadTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if t.AssignedTo == nil || t.AssignedTo.ID == assignerID {
		return nil
	}
	assignee := t.AssignedTo

	pref, err := s.Prefs.ForUser(ctx, assignee.ID)
	if err != nil {
		return err
	}
	if !pref.EmailEnabled || !pref.TaskAssignedEmail || assignee.Email == "" || !assignee.Active {
		s.Log.Debug("assignment email skipped", "user_id", assignee.ID, "task_id", t.ID)
		return nil
	}

	var assigner auth.User
	if err := s.DB.WithContext(ctx).First(&assigner, assignerID).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load assigner %d: %w", assignerID, err)
	}

	content, err := s.Render.Assigned(t, assignee, &assigner)
	if err != nil {
		return err
	}
	return s.Gateway.Deliver(ctx, Delivery{
		Recipient: assignee,
		SenderID:  &assignerID,
		Type:      TypeTaskAssigned,
		Content:   content,
		TaskID:    &t.ID,
		ProjectID: t.ProjectID,
	})
}

// NotifyCompleted emails the task creator when someone else finishes their
// task. Completing your own task is silent.
func (s *Service) NotifyCompleted(ctx context.Context, taskID, completerID uint64) error {
	t, err := s.Gateway.loadTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if t.CreatedBy == nil || t.CreatedBy.ID == completerID {
		return nil
	}
	creator := t.CreatedBy

	pref, err := s.Prefs.ForUser(ctx, creator.ID)
	if err != nil {
		return err
	}
	if !pref.EmailEnabled || !pref.TaskCompletedEmail || creator.Email == "" || !creator.Active {
		s.Log.Debug("completion email skipped", "user_id", creator.ID, "task_id", t.ID)
		return nil
	}

	var completer auth.User
	if err := s.DB.WithContext(ctx).First(&completer, completerID).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load completer %d: %w", completerID, err)
	}

	content, err := s.Render.Completed(t, creator, &completer, s.now())
	if err != nil {
		return err
	}
	return s.Gateway.Deliver(ctx, Delivery{
		Recipient: creator,
		SenderID:  &completerID,
		Type:      TypeTaskCompleted,
		Content:   content,
		TaskID:    &t.ID,
		ProjectID: t.ProjectID,
	})
}

// RunOverduePass notifies recipients of open tasks that are past their due
// date. At most one overdue email per (task, recipient) per day, deduplicated
// against the notification log.
func (s *Service) RunOverduePass(ctx context.Context) (Stats, error) {
	now := s.now()
	today := midnight(now)

	var tasks []task.Task
	err := s.DB.WithContext(ctx).
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("Project").
		Where("status IN ? AND due_date IS NOT NULL AND due_date < ?", task.OpenStatuses, today).
		Find(&tasks).Error
	if err != nil {
		return Stats{}, fmt.Errorf("overdue pass: %w", err)
	}

	var stats Stats
	stats.Checked = len(tasks)

	for i := range tasks {
		t := &tasks[i]
		daysOverdue := -DaysRemaining(*t.DueDate, now)

		for _, rcpt := range Recipients(t) {
			sent, err := s.notifyOverdue(ctx, t, rcpt, daysOverdue, today)
			if err != nil {
				s.Log.Error("overdue pass: send failed",
					"task_id", t.ID, "user_id", rcpt.ID, "error", err)
				stats.Errors++
				continue
			}
			if sent {
				stats.Sent++
			} else {
				stats.Skipped++
			}
		}
	}

	s.Log.Info("overdue pass finished",
		"checked", stats.Checked, "sent", stats.Sent,
		"skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

func (s *Service) notifyOverdue(ctx context.Context, t *task.Task, rcpt auth.User, daysOverdue int, today time.Time) (bool, error) {
	if rcpt.Email == "" || !rcpt.Active {
		return false, nil
	}

	pref, err := s.Prefs.ForUser(ctx, rcpt.ID)
	if err != nil {
		return false, err
	}
	if !pref.EmailEnabled || !pref.TaskOverdueEmail {
		return false, nil
	}
	if s.isWeekend(today) && !pref.WeekendDelivery {
		return false, nil
	}

	already, err := s.sentToday(ctx, rcpt.ID, TypeTaskOverdue, &t.ID, today)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	content, err := s.Render.Overdue(t, &rcpt, daysOverdue)
	if err != nil {
		return false, err
	}
	err = s.Gateway.Deliver(ctx, Delivery{
		Recipient: &rcpt,
		Type:      TypeTaskOverdue,
		Content:   content,
		TaskID:    &t.ID,
		ProjectID: t.ProjectID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// SendWelcome greets a new user. Best effort; registration succeeds
// regardless.
func (s *Service) SendWelcome(ctx context.Context, u *auth.User) error {
	if u.Email == "" {
		return nil
	}
	content, err := s.Render.Welcome(u)
	if err != nil {
		return err
	}
	return s.Gateway.Deliver(ctx, Delivery{
		Recipient: u,
		Type:      TypeWelcome,
		Content:   content,
	})
}

func (s *Service) isWeekend(t time.Time) bool {
	for _, d := range s.WeekendDays {
		if t.Weekday() == d {
			return true
		}
	}
	return false
}

// sentToday reports whether a sent log record of the given type exists for
// the recipient (and task, when given) on the current calendar day.
func (s *Service) sentToday(ctx context.Context, userID uint64, typ string, taskID *uint64, today time.Time) (bool, error) {
	q := s.DB.WithContext(ctx).
		Model(&EmailNotificationLog{}).
		Where("recipient_id = ? AND notification_type = ? AND status = ? AND created_at >= ?",
			userID, typ, StatusSent, today)
	if taskID != nil {
		q = q.Where("task_id = ?", *taskID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check notification log: %w", err)
	}
	return n > 0, nil
}
