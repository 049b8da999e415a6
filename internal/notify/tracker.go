package notify

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// bucket -> tracker flag column. Only the date buckets carry a permanent
// flag; the high-priority class is bounded by the daily counter alone.
var bucketColumns = map[Bucket]struct{ flag, sentAt string }{
	BucketThreeDays: {"three_day_sent", "three_day_sent_at"},
	BucketOneDay:    {"one_day_sent", "one_day_sent_at"},
	BucketSameDay:   {"same_day_sent", "same_day_sent_at"},
}

// TrackerStore owns the per-(task, user) reminder bookkeeping.
type TrackerStore struct {
	DB *gorm.DB
}

// ForTaskUser returns the tracker for the pair, creating it on first access.
// If the stored last-reminder date is not today the daily counter is reset
// before the tracker is returned.
func (s *TrackerStore) ForTaskUser(ctx context.Context, taskID, userID uint64, today time.Time) (TaskReminderTracker, error) {
	fresh := TaskReminderTracker{TaskID: taskID, UserID: userID}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&fresh).Error
	if err != nil {
		return TaskReminderTracker{}, fmt.Errorf("upsert tracker: %w", err)
	}

	var tr TaskReminderTracker
	if err := s.DB.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&tr).Error; err != nil {
		return TaskReminderTracker{}, fmt.Errorf("load tracker: %w", err)
	}

	if tr.LastReminderDate != nil && !sameDate(*tr.LastReminderDate, today) && tr.DailyCount != 0 {
		if err := s.DB.WithContext(ctx).
			Model(&TaskReminderTracker{}).
			Where("id = ?", tr.ID).
			Updates(map[string]any{"daily_count": 0}).Error; err != nil {
			return TaskReminderTracker{}, fmt.Errorf("reset daily counter: %w", err)
		}
		tr.DailyCount = 0
	}
	return tr, nil
}

// Claim atomically marks a bucket as sent and counts it against the daily
// cap. It is the commit point for the send decision: the conditional update
// succeeds for exactly one caller, so two workers racing on the same
// (task, user, bucket) cannot both proceed. Returns false when the bucket is
// already flagged or the cap is reached.
func (s *TrackerStore) Claim(ctx context.Context, tr *TaskReminderTracker, b Bucket, now time.Time, maxPerDay int) (bool, error) {
	date := midnight(now)

	var res *gorm.DB
	if cols, ok := bucketColumns[b]; ok {
		res = s.DB.WithContext(ctx).Exec(
			fmt.Sprintf(`UPDATE task_reminder_trackers
SET %[1]s = ?, %[2]s = ?, daily_count = daily_count + 1, last_reminder_date = ?, updated_at = ?
WHERE id = ? AND %[1]s = ? AND daily_count < ?`, cols.flag, cols.sentAt),
			true, now, date, now, tr.ID, false, maxPerDay)
	} else {
		// No permanent flag: the counter is the only gate.
		res = s.DB.WithContext(ctx).Exec(
			`UPDATE task_reminder_trackers
SET daily_count = daily_count + 1, last_reminder_date = ?, updated_at = ?
WHERE id = ? AND daily_count < ?`,
			date, now, tr.ID, maxPerDay)
	}
	if res.Error != nil {
		return false, fmt.Errorf("claim tracker: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	tr.DailyCount++
	tr.LastReminderDate = &date
	switch b {
	case BucketThreeDays:
		tr.ThreeDaySent = true
		tr.ThreeDaySentAt = &now
	case BucketOneDay:
		tr.OneDaySent = true
		tr.OneDaySentAt = &now
	case BucketSameDay:
		tr.SameDaySent = true
		tr.SameDaySentAt = &now
	}
	return true, nil
}

// Release undoes a claim after a failed transport so a later pass may retry
// the same day. It only compensates this caller's own claim.
func (s *TrackerStore) Release(ctx context.Context, tr *TaskReminderTracker, b Bucket) error {
	var res *gorm.DB
	if cols, ok := bucketColumns[b]; ok {
		res = s.DB.WithContext(ctx).Exec(
			fmt.Sprintf(`UPDATE task_reminder_trackers
SET %[1]s = ?, %[2]s = NULL, daily_count = CASE WHEN daily_count > 0 THEN daily_count - 1 ELSE 0 END
WHERE id = ? AND %[1]s = ?`, cols.flag, cols.sentAt),
			false, tr.ID, true)
	} else {
		res = s.DB.WithContext(ctx).Exec(
			`UPDATE task_reminder_trackers
SET daily_count = CASE WHEN daily_count > 0 THEN daily_count - 1 ELSE 0 END
WHERE id = ?`, tr.ID)
	}
	if res.Error != nil {
		return fmt.Errorf("release tracker: %w", res.Error)
	}

	tr.DailyCount--
	if tr.DailyCount < 0 {
		tr.DailyCount = 0
	}
	switch b {
	case BucketThreeDays:
		tr.ThreeDaySent = false
		tr.ThreeDaySentAt = nil
	case BucketOneDay:
		tr.OneDaySent = false
		tr.OneDaySentAt = nil
	case BucketSameDay:
		tr.SameDaySent = false
		tr.SameDaySentAt = nil
	}
	return nil
}

// CleanupStale deletes trackers for tasks that reached a terminal status or
// whose due date is more than 30 days past. Advisory garbage collection;
// correctness does not depend on it.
func (s *TrackerStore) CleanupStale(ctx context.Context, now time.Time) (int64, error) {
	cutoff := midnight(now).AddDate(0, 0, -30)

	finished := s.DB.WithContext(ctx).Exec(
		`DELETE FROM task_reminder_trackers
WHERE task_id IN (SELECT id FROM tasks WHERE status = ?)`, "finished")
	if finished.Error != nil {
		return 0, fmt.Errorf("cleanup finished trackers: %w", finished.Error)
	}

	old := s.DB.WithContext(ctx).Exec(
		`DELETE FROM task_reminder_trackers
WHERE task_id IN (SELECT id FROM tasks WHERE due_date IS NOT NULL AND due_date < ?)`, cutoff)
	if old.Error != nil {
		return finished.RowsAffected, fmt.Errorf("cleanup old trackers: %w", old.Error)
	}

	orphaned := s.DB.WithContext(ctx).Exec(
		`DELETE FROM task_reminder_trackers
WHERE task_id NOT IN (SELECT id FROM tasks)`)
	if orphaned.Error != nil {
		return finished.RowsAffected + old.RowsAffected, fmt.Errorf("cleanup orphaned trackers: %w", orphaned.Error)
	}

	return finished.RowsAffected + old.RowsAffected + orphaned.RowsAffected, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
