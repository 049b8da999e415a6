package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"remindd/internal/auth"
	"remindd/internal/mail"
	"remindd/internal/task"
)

// Gateway owns the send path: it claims the tracker, writes the audit log and
// hands the message to the transport. It implements Dispatcher, so the
// evaluator can deliver inline when no job queue sits in between.
type Gateway struct {
	DB       *gorm.DB
	Prefs    *PreferenceStore
	Trackers *TrackerStore
	Render   *Renderer
	Mailer   mail.Mailer
	Log      *slog.Logger

	FromEmail string
	Location  *time.Location

	Now func() time.Time
}

func (g *Gateway) now() time.Time {
	if g.Now != nil {
		return g.Now().In(g.Location)
	}
	return time.Now().In(g.Location)
}

// Delivery is everything needed to log and send one email.
type Delivery struct {
	Recipient  *auth.User
	SenderID   *uint64
	Type       string
	Content    Content
	TaskID     *uint64
	ProjectID  *uint64
	IsReminder bool
}

// DispatchReminder sends a reminder decided earlier, re-checking the world
// first: the decision may be stale by the time a queued job runs. Claiming
// the tracker bucket is the commit point; a failed transport releases the
// claim so a later pass can retry the same day.
func (g *Gateway) DispatchReminder(ctx context.Context, d ReminderDispatch) error {
	now := g.now()

	t, err := g.loadTask(ctx, d.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g.Log.Debug("reminder dropped: task gone", "task_id", d.TaskID)
			return nil
		}
		return err
	}
	if !t.IsOpen() || t.DueDate == nil {
		g.Log.Debug("reminder dropped: task no longer eligible",
			"task_id", t.ID, "status", t.Status)
		return nil
	}

	var user auth.User
	if err := g.DB.WithContext(ctx).First(&user, d.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g.Log.Debug("reminder dropped: user gone", "user_id", d.UserID)
			return nil
		}
		return fmt.Errorf("load user %d: %w", d.UserID, err)
	}
	if user.Email == "" || !user.Active {
		g.Log.Debug("reminder dropped: user not deliverable", "user_id", user.ID)
		return nil
	}

	pref, err := g.Prefs.ForUser(ctx, user.ID)
	if err != nil {
		return err
	}

	tr, err := g.Trackers.ForTaskUser(ctx, t.ID, user.ID, now)
	if err != nil {
		return err
	}
	claimed, err := g.Trackers.Claim(ctx, &tr, d.Bucket, now, pref.MaxRemindersPerDay)
	if err != nil {
		return err
	}
	if !claimed {
		g.Log.Debug("reminder dropped: bucket already claimed or cap reached",
			"task_id", t.ID, "user_id", user.ID, "bucket", d.Bucket)
		return nil
	}

	content, err := g.Render.Reminder(t, &user, d.Bucket, d.DaysRemaining)
	if err != nil {
		// Rendering is deterministic; a failure here will not heal on retry.
		// Release the claim and surface the error.
		if rerr := g.Trackers.Release(ctx, &tr, d.Bucket); rerr != nil {
			g.Log.Error("release after render failure", "error", rerr)
		}
		return err
	}

	err = g.Deliver(ctx, Delivery{
		Recipient:  &user,
		Type:       d.Bucket.NotificationType(),
		Content:    content,
		TaskID:     &t.ID,
		ProjectID:  t.ProjectID,
		IsReminder: true,
	})
	if err != nil {
		if rerr := g.Trackers.Release(ctx, &tr, d.Bucket); rerr != nil {
			g.Log.Error("release after send failure",
				"task_id", t.ID, "user_id", user.ID, "error", rerr)
		}
		return err
	}
	return nil
}

// Deliver writes a pending log record, pushes the message through the
// transport, then settles the record as sent or failed. The returned error is
// the transport error; the failed log record is kept either way.
func (g *Gateway) Deliver(ctx context.Context, d Delivery) error {
	now := g.now()

	rec := EmailNotificationLog{
		RecipientID:      d.Recipient.ID,
		SenderID:         d.SenderID,
		NotificationType: d.Type,
		Subject:          d.Content.Subject,
		Content:          d.Content.Text,
		TaskID:           d.TaskID,
		ProjectID:        d.ProjectID,
		Status:           StatusPending,
		ToEmail:          d.Recipient.Email,
		FromEmail:        g.FromEmail,
		IsReminder:       d.IsReminder,
		CreatedAt:        now,
	}
	if err := g.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("create notification log: %w", err)
	}

	sendErr := g.Mailer.Send(ctx, mail.Message{
		From:    g.FromEmail,
		To:      d.Recipient.Email,
		Subject: d.Content.Subject,
		Text:    d.Content.Text,
		HTML:    d.Content.HTML,
	})

	if sendErr != nil {
		update := g.DB.WithContext(ctx).
			Model(&EmailNotificationLog{}).
			Where("id = ?", rec.ID).
			Updates(map[string]any{
				"status":        StatusFailed,
				"error_message": sendErr.Error(),
			})
		if update.Error != nil {
			g.Log.Error("mark notification failed", "log_id", rec.ID, "error", update.Error)
		}
		g.Log.Error("email send failed",
			"to", d.Recipient.Email, "type", d.Type, "error", sendErr)
		return fmt.Errorf("send %s to %s: %w", d.Type, d.Recipient.Email, sendErr)
	}

	sentAt := g.now()
	update := g.DB.WithContext(ctx).
		Model(&EmailNotificationLog{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"status":  StatusSent,
			"sent_at": sentAt,
		})
	if update.Error != nil {
		// The mail went out; a stuck pending record is an audit blemish, not
		// a delivery failure.
		g.Log.Error("mark notification sent", "log_id", rec.ID, "error", update.Error)
	}

	g.Log.Info("email sent", "to", d.Recipient.Email, "type", d.Type, "subject", d.Content.Subject)
	return nil
}

func (g *Gateway) loadTask(ctx context.Context, id uint64) (*task.Task, error) {
	var t task.Task
	err := g.DB.WithContext(ctx).
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("Project").
		First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load task %d: %w", id, err)
	}
	return &t, nil
}
