package notify

import (
	"context"
	"fmt"
	"time"

	"remindd/internal/auth"
	"remindd/internal/task"
)

// DigestData is the per-user snapshot a daily digest is rendered from.
type DigestData struct {
	DueToday     []task.Task
	Overdue      []task.Task
	AssignedOpen []task.Task
	CreatedOpen  []task.Task
}

// Empty reports whether there is nothing worth a digest email.
func (d *DigestData) Empty() bool {
	return len(d.DueToday) == 0 && len(d.Overdue) == 0 &&
		len(d.AssignedOpen) == 0 && len(d.CreatedOpen) == 0
}

// RunDigestPass sends the daily digest to every user who enabled it and whose
// configured digest time has passed. The notification log doubles as the
// dedup record, so a pass missed at the exact minute is caught up by any
// later pass the same day and reruns send nothing twice.
func (s *Service) RunDigestPass(ctx context.Context) (Stats, error) {
	now := s.now()
	today := midnight(now)
	clock := now.Format("15:04")

	var prefs []NotificationPreference
	err := s.DB.WithContext(ctx).
		Where("daily_digest_enabled = ? AND email_enabled = ? AND digest_time <= ?",
			true, true, clock).
		Find(&prefs).Error
	if err != nil {
		return Stats{}, fmt.Errorf("digest pass: %w", err)
	}

	var stats Stats
	stats.Checked = len(prefs)

	for i := range prefs {
		pref := &prefs[i]
		sent, err := s.sendDigest(ctx, pref, now, today)
		if err != nil {
			s.Log.Error("digest pass: send failed", "user_id", pref.UserID, "error", err)
			stats.Errors++
			continue
		}
		if sent {
			stats.Sent++
		} else {
			stats.Skipped++
		}
	}

	s.Log.Info("digest pass finished",
		"checked", stats.Checked, "sent", stats.Sent,
		"skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

func (s *Service) sendDigest(ctx context.Context, pref *NotificationPreference, now, today time.Time) (bool, error) {
	if s.isWeekend(today) && !pref.WeekendDelivery {
		return false, nil
	}

	already, err := s.sentToday(ctx, pref.UserID, TypeDailyDigest, nil, today)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	var user auth.User
	if err := s.DB.WithContext(ctx).First(&user, pref.UserID).Error; err != nil {
		return false, fmt.Errorf("load user %d: %w", pref.UserID, err)
	}
	if user.Email == "" || !user.Active {
		return false, nil
	}

	data, err := s.digestData(ctx, user.ID, today)
	if err != nil {
		return false, err
	}
	if data.Empty() {
		s.Log.Debug("digest skipped: nothing to report", "user_id", user.ID)
		return false, nil
	}

	content, err := s.Render.Digest(&user, data, now)
	if err != nil {
		return false, err
	}
	err = s.Gateway.Deliver(ctx, Delivery{
		Recipient: &user,
		Type:      TypeDailyDigest,
		Content:   content,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) digestData(ctx context.Context, userID uint64, today time.Time) (DigestData, error) {
	tomorrow := today.AddDate(0, 0, 1)
	var data DigestData

	err := s.DB.WithContext(ctx).
		Preload("Project").
		Where("status IN ? AND (assigned_to_id = ? OR created_by_id = ?) AND due_date >= ? AND due_date < ?",
			task.OpenStatuses, userID, userID, today, tomorrow).
		Find(&data.DueToday).Error
	if err != nil {
		return DigestData{}, fmt.Errorf("digest due today: %w", err)
	}

	err = s.DB.WithContext(ctx).
		Preload("Project").
		Where("status IN ? AND (assigned_to_id = ? OR created_by_id = ?) AND due_date IS NOT NULL AND due_date < ?",
			task.OpenStatuses, userID, userID, today).
		Find(&data.Overdue).Error
	if err != nil {
		return DigestData{}, fmt.Errorf("digest overdue: %w", err)
	}

	err = s.DB.WithContext(ctx).
		Preload("Project").
		Where("status IN ? AND assigned_to_id = ? AND (due_date IS NULL OR due_date >= ?)",
			task.OpenStatuses, userID, tomorrow).
		Find(&data.AssignedOpen).Error
	if err != nil {
		return DigestData{}, fmt.Errorf("digest assigned: %w", err)
	}

	err = s.DB.WithContext(ctx).
		Preload("Project").
		Where("status IN ? AND created_by_id = ? AND (assigned_to_id IS NULL OR assigned_to_id <> ?) AND (due_date IS NULL OR due_date >= ?)",
			task.OpenStatuses, userID, userID, tomorrow).
		Find(&data.CreatedOpen).Error
	if err != nil {
		return DigestData{}, fmt.Errorf("digest created: %w", err)
	}

	return data, nil
}
