package notify

import (
	"context"
	"strings"
	"testing"

	"remindd/internal/task"
)

func TestGatewaySendsAndLogs(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "user@test")
	tk := createTask(t, db, "write report", dueIn(1), u, nil)

	mailer := &fakeMailer{}
	gw := newGateway(db, mailer, monday)

	err := gw.DispatchReminder(context.Background(), ReminderDispatch{
		TaskID: tk.ID, UserID: u.ID, Bucket: BucketOneDay, DaysRemaining: 1,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d, want 1", len(mailer.sent))
	}
	m := mailer.sent[0]
	if m.To != "user@test" || !strings.Contains(m.Subject, "due tomorrow") {
		t.Fatalf("message: to=%q subject=%q", m.To, m.Subject)
	}

	var rec EmailNotificationLog
	if err := db.First(&rec).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if rec.Status != StatusSent || rec.SentAt == nil {
		t.Fatalf("log not settled: %+v", rec)
	}
	if rec.NotificationType != TypeDueTomorrow || !rec.IsReminder {
		t.Fatalf("log misfiled: %+v", rec)
	}
	if rec.TaskID == nil || *rec.TaskID != tk.ID || rec.RecipientID != u.ID {
		t.Fatalf("log references: %+v", rec)
	}

	var tr TaskReminderTracker
	if err := db.First(&tr).Error; err != nil {
		t.Fatalf("load tracker: %v", err)
	}
	if !tr.OneDaySent || tr.DailyCount != 1 {
		t.Fatalf("tracker: %+v", tr)
	}
}

func TestGatewayFailureKeepsFailedLogAndReleases(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "user@test")
	tk := createTask(t, db, "write report", dueIn(0), u, nil)

	mailer := &fakeMailer{failTo: "user@test"}
	gw := newGateway(db, mailer, monday)

	err := gw.DispatchReminder(context.Background(), ReminderDispatch{
		TaskID: tk.ID, UserID: u.ID, Bucket: BucketSameDay, DaysRemaining: 0,
	})
	if err == nil {
		t.Fatal("want transport error")
	}

	var rec EmailNotificationLog
	if err := db.First(&rec).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if rec.Status != StatusFailed || rec.ErrorMessage == "" || rec.SentAt != nil {
		t.Fatalf("log: %+v", rec)
	}

	var tr TaskReminderTracker
	if err := db.First(&tr).Error; err != nil {
		t.Fatalf("load tracker: %v", err)
	}
	if tr.SameDaySent || tr.DailyCount != 0 {
		t.Fatalf("claim not released: %+v", tr)
	}
}

func TestGatewayDropsStaleDecisions(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "user@test")
	mailer := &fakeMailer{}
	gw := newGateway(db, mailer, monday)
	ctx := context.Background()

	t.Run("task deleted", func(t *testing.T) {
		err := gw.DispatchReminder(ctx, ReminderDispatch{
			TaskID: 404, UserID: u.ID, Bucket: BucketOneDay, DaysRemaining: 1,
		})
		if err != nil {
			t.Fatalf("want silent drop, got %v", err)
		}
	})

	t.Run("task finished", func(t *testing.T) {
		tk := createTask(t, db, "done already", dueIn(1), u, nil)
		if err := db.Model(tk).Update("status", task.StatusFinished).Error; err != nil {
			t.Fatalf("finish: %v", err)
		}
		err := gw.DispatchReminder(ctx, ReminderDispatch{
			TaskID: tk.ID, UserID: u.ID, Bucket: BucketOneDay, DaysRemaining: 1,
		})
		if err != nil {
			t.Fatalf("want silent drop, got %v", err)
		}
	})

	t.Run("bucket claimed meanwhile", func(t *testing.T) {
		tk := createTask(t, db, "racing", dueIn(1), u, nil)
		d := ReminderDispatch{TaskID: tk.ID, UserID: u.ID, Bucket: BucketOneDay, DaysRemaining: 1}
		if err := gw.DispatchReminder(ctx, d); err != nil {
			t.Fatalf("first: %v", err)
		}
		if err := gw.DispatchReminder(ctx, d); err != nil {
			t.Fatalf("duplicate: %v", err)
		}
	})

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d, want 1", len(mailer.sent))
	}
	if n := countLogs(t, db, ""); n != 1 {
		t.Fatalf("logs = %d, want 1 (drops leave no record)", n)
	}
}
