package notify

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CleanupLogs deletes notification log records older than retentionDays.
// With keepFailed set, failed records survive for post-mortems regardless of
// age. Returns the number of rows removed.
func CleanupLogs(ctx context.Context, db *gorm.DB, now time.Time, retentionDays int, keepFailed bool) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	q := db.WithContext(ctx).Where("created_at < ?", cutoff)
	if keepFailed {
		q = q.Where("status <> ?", StatusFailed)
	}
	res := q.Delete(&EmailNotificationLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("cleanup notification logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RunCleanup removes expired log records and stale trackers in one sweep.
func (s *Service) RunCleanup(ctx context.Context, trackers *TrackerStore, retentionDays int, keepFailed bool) error {
	now := s.now()

	logs, err := CleanupLogs(ctx, s.DB, now, retentionDays, keepFailed)
	if err != nil {
		return err
	}
	trs, err := trackers.CleanupStale(ctx, now)
	if err != nil {
		return err
	}

	s.Log.Info("cleanup finished", "logs_removed", logs, "trackers_removed", trs)
	return nil
}
