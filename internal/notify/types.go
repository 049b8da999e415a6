package notify

// Bucket is a reminder urgency class tied to a days-before-due offset.
type Bucket string

const (
	BucketThreeDays Bucket = "three_days"
	BucketOneDay    Bucket = "one_day"
	BucketSameDay   Bucket = "same_day"

	// BucketHighPriority is the extra reminder class for high/urgent tasks.
	// Unlike the date buckets it has no permanent flag and may recur on
	// following days, bounded by the daily cap.
	BucketHighPriority Bucket = "high_priority"
)

// Notification types recorded in the email log.
const (
	TypeTaskAssigned  = "task_assigned"
	TypeTaskCompleted = "task_completed"
	TypeTaskOverdue   = "task_overdue"
	TypeDueIn3Days    = "task_due_in_3_days"
	TypeDueTomorrow   = "task_due_tomorrow"
	TypeDueToday      = "task_due_today"
	TypeHighPriority  = "high_priority_reminder"
	TypeDailyDigest   = "daily_digest"
	TypeWeeklyReport  = "weekly_report"
	TypeWelcome       = "welcome"
)

// Log statuses. Transitions are monotonic: pending -> sent | failed. A fresh
// attempt creates a fresh record.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// NotificationType returns the log type for a reminder bucket.
func (b Bucket) NotificationType() string {
	switch b {
	case BucketThreeDays:
		return TypeDueIn3Days
	case BucketOneDay:
		return TypeDueTomorrow
	case BucketSameDay:
		return TypeDueToday
	case BucketHighPriority:
		return TypeHighPriority
	}
	return ""
}

// Classify maps days-remaining to a reminder bucket. With catchUp false only
// the exact offsets {3, 1, 0} trigger; with catchUp true any value inside the
// widest threshold maps to the narrowest bucket covering it, so a pass missed
// on the exact day still fires the bucket on the next run (the permanent
// per-bucket flag keeps this idempotent). Values outside [0, 3] never map.
func Classify(daysRemaining int, catchUp bool) (Bucket, bool) {
	switch {
	case daysRemaining < 0 || daysRemaining > 3:
		return "", false
	case daysRemaining == 0:
		return BucketSameDay, true
	case daysRemaining == 1:
		return BucketOneDay, true
	case daysRemaining == 3:
		return BucketThreeDays, true
	case catchUp: // daysRemaining == 2
		return BucketThreeDays, true
	}
	return "", false
}
