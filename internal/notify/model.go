package notify

import (
	"time"

	"remindd/internal/auth"
	"remindd/internal/task"
)

// NotificationPreference is one row per user, created lazily with defaults.
// Boolean columns carry no DB-side defaults on purpose: rows are always
// written with every field set, so a disabled flag round-trips as false.
type NotificationPreference struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"uniqueIndex;not null"`

	EmailEnabled bool `gorm:"not null"`

	ThreeDayReminder     bool `gorm:"not null"`
	OneDayReminder       bool `gorm:"not null"`
	SameDayReminder      bool `gorm:"not null"`
	HighPriorityReminder bool `gorm:"not null"`

	TaskAssignedEmail  bool `gorm:"not null"`
	TaskCompletedEmail bool `gorm:"not null"`
	TaskOverdueEmail   bool `gorm:"not null"`

	WeekendDelivery bool `gorm:"not null"`

	MaxRemindersPerDay int `gorm:"not null"`
	// Advisory; the evaluator loop does not consult it yet.
	MinReminderGapHours int `gorm:"not null"`

	DailyDigestEnabled bool   `gorm:"not null"`
	DigestTime         string `gorm:"not null"` // HH:MM in the business timezone

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultPreference is what a user gets before touching any settings.
func DefaultPreference(userID uint64, dailyCap int) NotificationPreference {
	return NotificationPreference{
		UserID:               userID,
		EmailEnabled:         true,
		ThreeDayReminder:     true,
		OneDayReminder:       true,
		SameDayReminder:      true,
		HighPriorityReminder: true,
		TaskAssignedEmail:    true,
		TaskCompletedEmail:   true,
		TaskOverdueEmail:     true,
		WeekendDelivery:      false,
		MaxRemindersPerDay:   dailyCap,
		MinReminderGapHours:  4,
		DailyDigestEnabled:   false,
		DigestTime:           "09:00",
	}
}

// BucketEnabled reports whether the per-class flag for a bucket is on.
func (p *NotificationPreference) BucketEnabled(b Bucket) bool {
	switch b {
	case BucketThreeDays:
		return p.ThreeDayReminder
	case BucketOneDay:
		return p.OneDayReminder
	case BucketSameDay:
		return p.SameDayReminder
	case BucketHighPriority:
		return p.HighPriorityReminder
	}
	return false
}

// TaskReminderTracker is one row per (task, user). The three bucket flags are
// permanent once set; the daily counter resets whenever the tracker is
// consulted on a new date.
type TaskReminderTracker struct {
	ID     uint64 `gorm:"primaryKey"`
	TaskID uint64 `gorm:"uniqueIndex:uq_tracker_task_user;not null"`
	UserID uint64 `gorm:"uniqueIndex:uq_tracker_task_user;not null"`

	ThreeDaySent   bool `gorm:"not null"`
	ThreeDaySentAt *time.Time
	OneDaySent     bool `gorm:"not null"`
	OneDaySentAt   *time.Time
	SameDaySent    bool `gorm:"not null"`
	SameDaySentAt  *time.Time

	DailyCount       int        `gorm:"not null"`
	LastReminderDate *time.Time // calendar date of the last counted send

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BucketSent reports the permanent flag for a date bucket. The high-priority
// class has no flag and always reports false.
func (t *TaskReminderTracker) BucketSent(b Bucket) bool {
	switch b {
	case BucketThreeDays:
		return t.ThreeDaySent
	case BucketOneDay:
		return t.OneDaySent
	case BucketSameDay:
		return t.SameDaySent
	}
	return false
}

// EmailNotificationLog is an append-only audit record per send attempt.
type EmailNotificationLog struct {
	ID uint64 `gorm:"primaryKey"`

	RecipientID uint64 `gorm:"index:idx_log_recipient_type;not null"`
	Recipient   *auth.User
	SenderID    *uint64

	NotificationType string `gorm:"index:idx_log_recipient_type;not null"`
	Subject          string `gorm:"not null"`
	Content          string // text body as sent

	TaskID    *uint64 `gorm:"index"`
	Task      *task.Task
	ProjectID *uint64

	Status       string `gorm:"index:idx_log_status_created;not null"`
	ErrorMessage string

	ToEmail   string `gorm:"not null"`
	FromEmail string `gorm:"not null"`

	IsReminder bool `gorm:"not null"`
	RetryCount int  `gorm:"not null"`

	SentAt    *time.Time
	CreatedAt time.Time `gorm:"index:idx_log_status_created"`
}
