package notify

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceStore hands out per-user notification preferences. Reading never
// fails on absence: a missing row is created with defaults first.
type PreferenceStore struct {
	DB       *gorm.DB
	DailyCap int // default MaxRemindersPerDay for fresh rows
}

// ForUser returns the preferences for userID, creating the default row on
// first access. The insert is a single upsert (do-nothing on conflict), so
// concurrent first access cannot produce duplicate rows.
func (s *PreferenceStore) ForUser(ctx context.Context, userID uint64) (NotificationPreference, error) {
	def := DefaultPreference(userID, s.DailyCap)
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&def).Error
	if err != nil {
		return NotificationPreference{}, fmt.Errorf("upsert preferences: %w", err)
	}

	var pref NotificationPreference
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return NotificationPreference{}, fmt.Errorf("load preferences: %w", err)
	}
	return pref, nil
}

// Save persists edited preferences. The row must exist (ForUser creates it).
func (s *PreferenceStore) Save(ctx context.Context, pref *NotificationPreference) error {
	if pref.ID == 0 {
		return fmt.Errorf("save preferences: missing id")
	}
	return s.DB.WithContext(ctx).Save(pref).Error
}
