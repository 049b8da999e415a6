package scheduler

import (
	"context"
	"log/slog"
	"time"

	"remindd/internal/notify"
)

// Scheduler fires the periodic passes at their configured local times. It is
// a plain ticker loop with per-slot date guards rather than a cron library;
// a slot missed while the process was down fires on the first tick after
// startup past its time, and the passes' own dedup makes that harmless.
type Scheduler struct {
	Evaluator *notify.Evaluator
	Service   *notify.Service
	Trackers  *notify.TrackerStore
	Log       *slog.Logger

	Location *time.Location

	PassTimes   []string // deadline + high-priority pass slots, HH:MM
	OverdueTime string
	CleanupTime string

	LogRetentionDays int
	KeepFailedLogs   bool

	Interval time.Duration // tick granularity; defaults to 30s
	Now      func() time.Time

	lastRun map[string]time.Time // slot key -> date last fired
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Location)
	}
	return time.Now().In(s.Location)
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}
	if s.CleanupTime == "" {
		s.CleanupTime = "02:00"
	}
	s.lastRun = make(map[string]time.Time)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Log.Info("scheduler started",
		"pass_times", s.PassTimes, "overdue_time", s.OverdueTime,
		"cleanup_time", s.CleanupTime)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every slot that is due. Exported so manual triggers and tests
// can drive the scheduler without the ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	for _, at := range s.PassTimes {
		if s.due("deadline@"+at, at, now) {
			if _, err := s.Evaluator.RunDeadlinePass(ctx); err != nil {
				s.Log.Error("scheduled deadline pass failed", "error", err)
				s.reset("deadline@" + at)
			}
			if _, err := s.Evaluator.RunHighPriorityPass(ctx); err != nil {
				s.Log.Error("scheduled high priority pass failed", "error", err)
			}
		}
	}

	if s.due("overdue", s.OverdueTime, now) {
		if _, err := s.Service.RunOverduePass(ctx); err != nil {
			s.Log.Error("scheduled overdue pass failed", "error", err)
			s.reset("overdue")
		}
	}

	// The digest sweep is cheap and self-deduplicating, so it runs every
	// tick; each user's configured digest time is honored inside the pass.
	if _, err := s.Service.RunDigestPass(ctx); err != nil {
		s.Log.Error("scheduled digest pass failed", "error", err)
	}

	if s.due("cleanup", s.CleanupTime, now) {
		if err := s.Service.RunCleanup(ctx, s.Trackers, s.LogRetentionDays, s.KeepFailedLogs); err != nil {
			s.Log.Error("scheduled cleanup failed", "error", err)
			s.reset("cleanup")
		}
		if snap, err := notify.CollectSnapshot(ctx, s.Service.DB, now); err != nil {
			s.Log.Error("stats snapshot failed", "error", err)
		} else {
			s.Log.Info("reminder stats",
				"sent_last_7_days", snap.RemindersSentLast7Days,
				"failed_last_7_days", snap.FailedLast7Days,
				"due_today", snap.DueToday,
				"due_tomorrow", snap.DueTomorrow,
				"due_in_3_days", snap.DueIn3Days,
				"overdue", snap.Overdue)
		}
	}
}

// due reports whether the slot's local time has passed today and the slot has
// not fired today yet. Marks the slot fired.
func (s *Scheduler) due(key, at string, now time.Time) bool {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return false
	}
	slot := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if now.Before(slot) {
		return false
	}
	if last, ok := s.lastRun[key]; ok && sameDate(last, now) {
		return false
	}
	s.lastRun[key] = now
	return true
}

// reset forgets a slot's last run so the next tick retries it.
func (s *Scheduler) reset(key string) {
	delete(s.lastRun, key)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
