package task

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"remindd/internal/auth"
)

// Task statuses form a small closed set. The reminder pipeline only looks at
// open ones.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// OpenStatuses are the statuses the deadline evaluator scans.
var OpenStatuses = []string{StatusNew, StatusInProgress}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Project is owned by the surrounding system; this service reads it for
// email context only.
type Project struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Status    string `gorm:"not null;default:'new'"`
	CreatedAt time.Time
}

// Task is owned by the surrounding system. The reminder pipeline reads tasks
// and writes only to its own tracker/preference/log tables.
type Task struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"not null"`

	Status   string `gorm:"index;not null;default:'new'"`
	Priority string `gorm:"not null;default:'medium'"`

	DueDate *time.Time `gorm:"index"`

	CreatedByID  *uint64 `gorm:"index"`
	CreatedBy    *auth.User
	AssignedToID *uint64 `gorm:"index"`
	AssignedTo   *auth.User

	ProjectID *uint64
	Project   *Project

	// Labels applied by the owning system; rendered in reminder and digest
	// emails.
	Tags pq.StringArray `gorm:"type:text[]"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Task) IsOpen() bool {
	return t.Status == StatusNew || t.Status == StatusInProgress
}

func (t *Task) IsHighPriority() bool {
	return t.Priority == PriorityHigh || t.Priority == PriorityUrgent
}

// OpenWithDueDate returns every open task that has a due date, with the
// relations the reminder pipeline needs preloaded.
func OpenWithDueDate(db *gorm.DB) ([]Task, error) {
	var tasks []Task
	err := db.
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("Project").
		Where("status IN ? AND due_date IS NOT NULL", OpenStatuses).
		Find(&tasks).Error
	return tasks, err
}
