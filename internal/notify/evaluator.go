package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"remindd/internal/auth"
	"remindd/internal/task"
)

// ReminderDispatch is one decided unit of work: send this bucket's reminder
// for this (task, user) pair.
type ReminderDispatch struct {
	TaskID        uint64 `json:"task_id"`
	UserID        uint64 `json:"user_id"`
	Bucket        Bucket `json:"bucket"`
	DaysRemaining int    `json:"days_remaining"`
}

// Dispatcher executes or enqueues a decided reminder. Production wires the
// job queue here; tests and the manual trigger endpoints may wire the
// delivery gateway directly.
type Dispatcher interface {
	DispatchReminder(ctx context.Context, d ReminderDispatch) error
}

// Stats is the aggregate outcome of one evaluator pass.
type Stats struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"` // dispatched (enqueued or delivered inline)
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Evaluator scans open tasks and decides which reminders to dispatch. It
// performs reads and dispatch calls only; the delivery gateway owns the
// commit point.
type Evaluator struct {
	DB       *gorm.DB
	Prefs    *PreferenceStore
	Trackers *TrackerStore
	Dispatch Dispatcher
	Log      *slog.Logger

	Location    *time.Location
	WeekendDays []time.Weekday
	DailyCap    int
	CatchUp     bool

	Now func() time.Time
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now().In(e.Location)
	}
	return time.Now().In(e.Location)
}

func (e *Evaluator) isWeekend(t time.Time) bool {
	for _, d := range e.WeekendDays {
		if t.Weekday() == d {
			return true
		}
	}
	return false
}

// RunDeadlinePass classifies every open task with a due date into a reminder
// bucket and attempts a dispatch per recipient. A single task's failure is
// recorded and the loop continues.
func (e *Evaluator) RunDeadlinePass(ctx context.Context) (Stats, error) {
	now := e.now()

	tasks, err := task.OpenWithDueDate(e.DB.WithContext(ctx))
	if err != nil {
		// Store unavailability fails the whole pass; the next scheduled
		// trigger retries.
		return Stats{}, fmt.Errorf("deadline pass: %w", err)
	}

	var stats Stats
	stats.Checked = len(tasks)

	for i := range tasks {
		t := &tasks[i]
		if err := e.processTask(ctx, t, now, &stats); err != nil {
			e.Log.Error("deadline pass: task failed", "task_id", t.ID, "error", err)
			stats.Errors++
		}
	}

	e.Log.Info("deadline pass finished",
		"checked", stats.Checked, "sent", stats.Sent,
		"skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

func (e *Evaluator) processTask(ctx context.Context, t *task.Task, now time.Time, stats *Stats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	days := DaysRemaining(*t.DueDate, now)
	bucket, ok := Classify(days, e.CatchUp)
	if !ok {
		return nil
	}

	for _, rcpt := range Recipients(t) {
		sent, err := e.tryDispatch(ctx, t, rcpt, bucket, days, now)
		if err != nil {
			// One recipient's failure never blocks the other.
			e.Log.Error("deadline pass: dispatch failed",
				"task_id", t.ID, "user_id", rcpt.ID, "error", err)
			stats.Errors++
			continue
		}
		if sent {
			stats.Sent++
		} else {
			stats.Skipped++
		}
	}
	return nil
}

// tryDispatch runs the eligibility gates for one (task, recipient, bucket)
// and dispatches when all of them pass. The gates are conjunctive:
// preference flags, weekend policy, permanent bucket flag, daily cap.
func (e *Evaluator) tryDispatch(ctx context.Context, t *task.Task, rcpt auth.User, bucket Bucket, days int, now time.Time) (bool, error) {
	if rcpt.Email == "" || !rcpt.Active {
		e.Log.Debug("recipient not deliverable", "user_id", rcpt.ID, "task_id", t.ID)
		return false, nil
	}

	pref, err := e.Prefs.ForUser(ctx, rcpt.ID)
	if err != nil {
		return false, err
	}
	if !pref.EmailEnabled || !pref.BucketEnabled(bucket) {
		e.Log.Debug("reminder disabled by preference",
			"user_id", rcpt.ID, "task_id", t.ID, "bucket", bucket)
		return false, nil
	}
	if e.isWeekend(now) && !pref.WeekendDelivery {
		e.Log.Debug("weekend delivery disabled", "user_id", rcpt.ID, "task_id", t.ID)
		return false, nil
	}

	tr, err := e.Trackers.ForTaskUser(ctx, t.ID, rcpt.ID, now)
	if err != nil {
		return false, err
	}
	if tr.BucketSent(bucket) {
		e.Log.Debug("bucket already sent", "user_id", rcpt.ID, "task_id", t.ID, "bucket", bucket)
		return false, nil
	}
	if tr.DailyCount >= pref.MaxRemindersPerDay {
		e.Log.Debug("daily cap reached", "user_id", rcpt.ID, "task_id", t.ID)
		return false, nil
	}

	if err := e.Dispatch.DispatchReminder(ctx, ReminderDispatch{
		TaskID:        t.ID,
		UserID:        rcpt.ID,
		Bucket:        bucket,
		DaysRemaining: days,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// RunHighPriorityPass dispatches the extra reminder class for high/urgent
// tasks due within two days. This class recurs across days; the daily cap is
// the only counter gate.
func (e *Evaluator) RunHighPriorityPass(ctx context.Context) (Stats, error) {
	now := e.now()
	today := midnight(now)

	var tasks []task.Task
	err := e.DB.WithContext(ctx).
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("Project").
		Where("priority IN ? AND status IN ? AND due_date >= ? AND due_date < ?",
			[]string{task.PriorityHigh, task.PriorityUrgent},
			task.OpenStatuses,
			today, today.AddDate(0, 0, 3)).
		Find(&tasks).Error
	if err != nil {
		return Stats{}, fmt.Errorf("high priority pass: %w", err)
	}

	var stats Stats
	stats.Checked = len(tasks)

	for i := range tasks {
		t := &tasks[i]
		days := DaysRemaining(*t.DueDate, now)
		for _, rcpt := range Recipients(t) {
			sent, err := e.tryDispatch(ctx, t, rcpt, BucketHighPriority, days, now)
			if err != nil {
				e.Log.Error("high priority pass: dispatch failed",
					"task_id", t.ID, "user_id", rcpt.ID, "error", err)
				stats.Errors++
				continue
			}
			if sent {
				stats.Sent++
			} else {
				stats.Skipped++
			}
		}
	}

	e.Log.Info("high priority pass finished",
		"checked", stats.Checked, "sent", stats.Sent,
		"skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

// DaysRemaining is calendar-day distance from now to due, in now's location.
// Negative for past-due tasks.
func DaysRemaining(due, now time.Time) int {
	d := midnight(due.In(now.Location()))
	n := midnight(now)
	// Rounding absorbs DST-shifted days (23h/25h).
	return int(math.Round(d.Sub(n).Hours() / 24))
}
