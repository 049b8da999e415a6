package notify

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"remindd/internal/task"
)

// Snapshot is a point-in-time view of the reminder workload, surfaced over
// the admin API and logged on the daily maintenance sweep.
type Snapshot struct {
	RemindersSentLast7Days int64 `json:"reminders_sent_last_7_days"`
	FailedLast7Days        int64 `json:"failed_last_7_days"`
	DueToday               int64 `json:"due_today"`
	DueTomorrow            int64 `json:"due_tomorrow"`
	DueIn3Days             int64 `json:"due_in_3_days"`
	Overdue                int64 `json:"overdue"`
}

var reminderTypes = []string{TypeDueIn3Days, TypeDueTomorrow, TypeDueToday, TypeHighPriority}

// CollectSnapshot gathers the stats counters. Read-only.
func CollectSnapshot(ctx context.Context, db *gorm.DB, now time.Time) (Snapshot, error) {
	today := midnight(now)
	weekAgo := now.AddDate(0, 0, -7)

	var snap Snapshot

	err := db.WithContext(ctx).Model(&EmailNotificationLog{}).
		Where("notification_type IN ? AND status = ? AND created_at >= ?",
			reminderTypes, StatusSent, weekAgo).
		Count(&snap.RemindersSentLast7Days).Error
	if err != nil {
		return Snapshot{}, fmt.Errorf("stats: sent count: %w", err)
	}

	err = db.WithContext(ctx).Model(&EmailNotificationLog{}).
		Where("status = ? AND created_at >= ?", StatusFailed, weekAgo).
		Count(&snap.FailedLast7Days).Error
	if err != nil {
		return Snapshot{}, fmt.Errorf("stats: failed count: %w", err)
	}

	dueBetween := func(from, to time.Time, out *int64) error {
		return db.WithContext(ctx).Model(&task.Task{}).
			Where("status IN ? AND due_date >= ? AND due_date < ?", task.OpenStatuses, from, to).
			Count(out).Error
	}
	if err := dueBetween(today, today.AddDate(0, 0, 1), &snap.DueToday); err != nil {
		return Snapshot{}, fmt.Errorf("stats: due today: %w", err)
	}
	if err := dueBetween(today.AddDate(0, 0, 1), today.AddDate(0, 0, 2), &snap.DueTomorrow); err != nil {
		return Snapshot{}, fmt.Errorf("stats: due tomorrow: %w", err)
	}
	if err := dueBetween(today.AddDate(0, 0, 3), today.AddDate(0, 0, 4), &snap.DueIn3Days); err != nil {
		return Snapshot{}, fmt.Errorf("stats: due in 3 days: %w", err)
	}

	err = db.WithContext(ctx).Model(&task.Task{}).
		Where("status IN ? AND due_date IS NOT NULL AND due_date < ?", task.OpenStatuses, today).
		Count(&snap.Overdue).Error
	if err != nil {
		return Snapshot{}, fmt.Errorf("stats: overdue: %w", err)
	}

	return snap, nil
}
