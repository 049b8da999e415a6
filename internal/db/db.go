package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"remindd/internal/auth"
	"remindd/internal/jobs"
	"remindd/internal/notify"
	"remindd/internal/task"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&task.Project{},
		&task.Task{},
		&notify.NotificationPreference{},
		&notify.TaskReminderTracker{},
		&notify.EmailNotificationLog{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Tag filter on tasks (GIN for text[])
	if err := gdb.Exec(`create index if not exists idx_tasks_tags on tasks using gin (tags);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_tasks_due_status on tasks(status, due_date);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
