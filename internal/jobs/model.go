package jobs

import "time"

// Job is one queued email dispatch. The queue lives in Postgres; claiming
// relies on FOR UPDATE SKIP LOCKED.
type Job struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Type    string `gorm:"type:text;not null"` // EMAIL_DISPATCH
	Payload []byte `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"` // PENDING/RUNNING/DONE/FAILED/CANCELLED

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

const TypeEmailDispatch = "EMAIL_DISPATCH"

// Payload kinds inside an EMAIL_DISPATCH job.
const (
	KindReminder      = "reminder"
	KindTaskAssigned  = "task_assigned"
	KindTaskCompleted = "task_completed"
)
