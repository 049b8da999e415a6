package notify

import (
	"context"
	"testing"
	"time"
)

func TestDeadlinePassClassifiesAndDedups(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice@test")
	bob := createUser(t, db, "bob@test")

	createTask(t, db, "in three days", dueIn(3), alice, bob)
	createTask(t, db, "tomorrow", dueIn(1), alice, alice) // creator == assignee
	createTask(t, db, "today", dueIn(0), bob, nil)
	createTask(t, db, "far out", dueIn(10), alice, bob)
	createTask(t, db, "no due date", nil, alice, bob)

	rec := &recorder{}
	ev := newEvaluator(db, rec, monday)

	stats, err := ev.RunDeadlinePass(context.Background())
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	// "no due date" is filtered by the query, "far out" maps to no bucket.
	if stats.Checked != 4 {
		t.Fatalf("checked = %d, want 4", stats.Checked)
	}
	if stats.Sent != 4 {
		t.Fatalf("sent = %d, want 4 (2 + deduped 1 + 1): %+v", stats.Sent, rec.dispatched)
	}

	byUser := map[uint64][]Bucket{}
	for _, d := range rec.dispatched {
		byUser[d.UserID] = append(byUser[d.UserID], d.Bucket)
	}
	// alice: three_days (creator) + one_day (creator==assignee, once).
	if len(byUser[alice.ID]) != 2 {
		t.Fatalf("alice dispatches: %v", byUser[alice.ID])
	}
	// bob: three_days (assignee) + same_day (creator).
	if len(byUser[bob.ID]) != 2 {
		t.Fatalf("bob dispatches: %v", byUser[bob.ID])
	}
}

func TestDeadlinePassCatchUp(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "user@test")
	createTask(t, db, "in two days", dueIn(2), u, nil)

	t.Run("enabled", func(t *testing.T) {
		rec := &recorder{}
		ev := newEvaluator(db, rec, monday)
		if _, err := ev.RunDeadlinePass(context.Background()); err != nil {
			t.Fatalf("pass: %v", err)
		}
		if len(rec.dispatched) != 1 || rec.dispatched[0].Bucket != BucketThreeDays {
			t.Fatalf("dispatched: %+v", rec.dispatched)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rec := &recorder{}
		ev := newEvaluator(db, rec, monday)
		ev.CatchUp = false
		if _, err := ev.RunDeadlinePass(context.Background()); err != nil {
			t.Fatalf("pass: %v", err)
		}
		if len(rec.dispatched) != 0 {
			t.Fatalf("dispatched: %+v", rec.dispatched)
		}
	})
}

func TestDeadlinePassPreferenceGates(t *testing.T) {
	db := newTestDB(t)
	prefs := &PreferenceStore{DB: db, DailyCap: 3}
	ctx := context.Background()

	muted := createUser(t, db, "muted@test")
	picky := createUser(t, db, "picky@test")
	normal := createUser(t, db, "normal@test")

	p, _ := prefs.ForUser(ctx, muted.ID)
	p.EmailEnabled = false
	if err := prefs.Save(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, _ = prefs.ForUser(ctx, picky.ID)
	p.SameDayReminder = false
	if err := prefs.Save(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}

	createTask(t, db, "due today", dueIn(0), muted, picky)
	createTask(t, db, "also today", dueIn(0), normal, nil)

	rec := &recorder{}
	ev := newEvaluator(db, rec, monday)
	stats, err := ev.RunDeadlinePass(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(rec.dispatched) != 1 || rec.dispatched[0].UserID != normal.ID {
		t.Fatalf("dispatched: %+v", rec.dispatched)
	}
	if stats.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", stats.Skipped)
	}
}

func TestDeadlinePassWeekendGate(t *testing.T) {
	db := newTestDB(t)
	prefs := &PreferenceStore{DB: db, DailyCap: 3}
	ctx := context.Background()

	sleeper := createUser(t, db, "sleeper@test")
	eager := createUser(t, db, "eager@test")

	p, _ := prefs.ForUser(ctx, eager.ID)
	p.WeekendDelivery = true
	if err := prefs.Save(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}

	friday := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)
	due := friday // due the same day
	createTask(t, db, "weekend work", &due, sleeper, eager)

	rec := &recorder{}
	ev := newEvaluator(db, rec, friday)
	if _, err := ev.RunDeadlinePass(ctx); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if len(rec.dispatched) != 1 || rec.dispatched[0].UserID != eager.ID {
		t.Fatalf("dispatched: %+v", rec.dispatched)
	}
}

func TestHighPriorityPass(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "user@test")

	urgent := createTask(t, db, "urgent", dueIn(1), u, nil)
	if err := db.Model(urgent).Update("priority", "urgent").Error; err != nil {
		t.Fatalf("set priority: %v", err)
	}
	createTask(t, db, "calm", dueIn(1), u, nil) // medium priority, ignored here

	rec := &recorder{}
	ev := newEvaluator(db, rec, monday)
	stats, err := ev.RunHighPriorityPass(context.Background())
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if stats.Checked != 1 || len(rec.dispatched) != 1 {
		t.Fatalf("stats=%+v dispatched=%+v", stats, rec.dispatched)
	}
	if rec.dispatched[0].Bucket != BucketHighPriority {
		t.Fatalf("bucket = %q", rec.dispatched[0].Bucket)
	}
}

// End-to-end: evaluator wired straight to the gateway, real tracker state.
func TestDeadlinePassEndToEndIdempotent(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice@test")
	bob := createUser(t, db, "bob@test")
	createTask(t, db, "ship it", dueIn(3), alice, bob)

	mailer := &fakeMailer{}
	gw := newGateway(db, mailer, monday)
	ev := newEvaluator(db, gw, monday)

	if _, err := ev.RunDeadlinePass(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(mailer.sent))
	}
	if n := countLogs(t, db, StatusSent); n != 2 {
		t.Fatalf("sent logs = %d, want 2", n)
	}

	// Same pass again: permanent bucket flags block every send.
	if _, err := ev.RunDeadlinePass(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("rerun sent extra email: %d", len(mailer.sent))
	}
}

func TestDeadlinePassFailureIsolation(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice@test")
	bob := createUser(t, db, "bob@test")
	createTask(t, db, "ship it", dueIn(1), alice, bob)

	mailer := &fakeMailer{failTo: "alice@test"}
	gw := newGateway(db, mailer, monday)
	ev := newEvaluator(db, gw, monday)

	stats, err := ev.RunDeadlinePass(context.Background())
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if stats.Errors != 1 {
		t.Fatalf("errors = %d, want 1", stats.Errors)
	}

	// Bob still got his email; Alice has a failed record and a released
	// tracker so a later pass can retry today.
	if len(mailer.sent) != 1 || mailer.sent[0].To != "bob@test" {
		t.Fatalf("sent: %+v", mailer.sent)
	}
	if n := countLogs(t, db, StatusFailed); n != 1 {
		t.Fatalf("failed logs = %d, want 1", n)
	}

	var tr TaskReminderTracker
	if err := db.Where("user_id = ?", alice.ID).First(&tr).Error; err != nil {
		t.Fatalf("load tracker: %v", err)
	}
	if tr.OneDaySent {
		t.Fatal("failed send left the bucket claimed")
	}

	// Transport recovers; the retry pass reaches Alice.
	mailer.failTo = ""
	if _, err := ev.RunDeadlinePass(context.Background()); err != nil {
		t.Fatalf("retry pass: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("retry did not deliver: %+v", mailer.sent)
	}
}
