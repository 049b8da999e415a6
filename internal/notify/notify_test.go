package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"remindd/internal/auth"
	"remindd/internal/mail"
	"remindd/internal/task"
)

// Monday, outside the Friday/Saturday weekend used throughout the tests.
var monday = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

var testWeekend = []time.Weekday{time.Friday, time.Saturday}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = gdb.AutoMigrate(
		&auth.User{},
		&task.Project{},
		&task.Task{},
		&NotificationPreference{},
		&TaskReminderTracker{},
		&EmailNotificationLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createUser(t *testing.T, db *gorm.DB, email string) *auth.User {
	t.Helper()
	u := auth.User{Email: email, Name: email, PasswordHash: "x", Active: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return &u
}

func createTask(t *testing.T, db *gorm.DB, name string, due *time.Time, creator, assignee *auth.User) *task.Task {
	t.Helper()
	tk := task.Task{Name: name, Status: task.StatusNew, Priority: task.PriorityMedium, DueDate: due}
	if creator != nil {
		tk.CreatedByID = &creator.ID
	}
	if assignee != nil {
		tk.AssignedToID = &assignee.ID
	}
	if err := db.Create(&tk).Error; err != nil {
		t.Fatalf("create task %s: %v", name, err)
	}
	return &tk
}

func dueIn(days int) *time.Time {
	d := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, days)
	return &d
}

// recorder collects dispatch decisions without delivering anything.
type recorder struct {
	dispatched []ReminderDispatch
}

func (r *recorder) DispatchReminder(_ context.Context, d ReminderDispatch) error {
	r.dispatched = append(r.dispatched, d)
	return nil
}

// fakeMailer records messages and can fail for one recipient address.
type fakeMailer struct {
	sent   []mail.Message
	failTo string
}

func (f *fakeMailer) Send(_ context.Context, m mail.Message) error {
	if f.failTo != "" && m.To == f.failTo {
		return errors.New("transport down")
	}
	f.sent = append(f.sent, m)
	return nil
}

func newEvaluator(db *gorm.DB, disp Dispatcher, now time.Time) *Evaluator {
	return &Evaluator{
		DB:          db,
		Prefs:       &PreferenceStore{DB: db, DailyCap: 3},
		Trackers:    &TrackerStore{DB: db},
		Dispatch:    disp,
		Log:         discardLogger(),
		Location:    time.UTC,
		WeekendDays: testWeekend,
		DailyCap:    3,
		CatchUp:     true,
		Now:         func() time.Time { return now },
	}
}

func newGateway(db *gorm.DB, mailer mail.Mailer, now time.Time) *Gateway {
	return &Gateway{
		DB:        db,
		Prefs:     &PreferenceStore{DB: db, DailyCap: 3},
		Trackers:  &TrackerStore{DB: db},
		Render:    &Renderer{SiteName: "Task Portal", SiteURL: "http://portal.test"},
		Mailer:    mailer,
		Log:       discardLogger(),
		FromEmail: "noreply@portal.test",
		Location:  time.UTC,
		Now:       func() time.Time { return now },
	}
}

func newService(db *gorm.DB, gw *Gateway, now time.Time) *Service {
	return &Service{
		DB:          db,
		Prefs:       gw.Prefs,
		Gateway:     gw,
		Render:      gw.Render,
		Log:         discardLogger(),
		Location:    time.UTC,
		WeekendDays: testWeekend,
		Now:         func() time.Time { return now },
	}
}

func countLogs(t *testing.T, db *gorm.DB, status string) int64 {
	t.Helper()
	var n int64
	q := db.Model(&EmailNotificationLog{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return n
}
