package notify

import (
	"context"
	"testing"

	"remindd/internal/task"
)

func TestTrackerClaimOncePerBucket(t *testing.T) {
	db := newTestDB(t)
	store := &TrackerStore{DB: db}
	ctx := context.Background()

	tr, err := store.ForTaskUser(ctx, 10, 20, monday)
	if err != nil {
		t.Fatalf("ForTaskUser: %v", err)
	}

	ok, err := store.Claim(ctx, &tr, BucketOneDay, monday, 3)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if !tr.OneDaySent || tr.DailyCount != 1 {
		t.Fatalf("tracker not updated: %+v", tr)
	}

	// A second claimant sees the flag and loses.
	tr2, err := store.ForTaskUser(ctx, 10, 20, monday)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	ok, err = store.Claim(ctx, &tr2, BucketOneDay, monday, 3)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatal("bucket claimed twice")
	}

	// A different bucket for the same pair is independent.
	ok, err = store.Claim(ctx, &tr2, BucketSameDay, monday, 3)
	if err != nil || !ok {
		t.Fatalf("other bucket claim: ok=%v err=%v", ok, err)
	}
}

func TestTrackerDailyCap(t *testing.T) {
	db := newTestDB(t)
	store := &TrackerStore{DB: db}
	ctx := context.Background()

	tr, err := store.ForTaskUser(ctx, 1, 1, monday)
	if err != nil {
		t.Fatalf("ForTaskUser: %v", err)
	}

	// High-priority claims have no permanent flag, only the counter.
	for i := 0; i < 2; i++ {
		ok, err := store.Claim(ctx, &tr, BucketHighPriority, monday, 2)
		if err != nil || !ok {
			t.Fatalf("claim %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := store.Claim(ctx, &tr, BucketHighPriority, monday, 2)
	if err != nil {
		t.Fatalf("claim over cap: %v", err)
	}
	if ok {
		t.Fatal("claim succeeded past the daily cap")
	}

	// The counter resets on the next day, and the cap opens again.
	tuesday := monday.AddDate(0, 0, 1)
	tr, err = store.ForTaskUser(ctx, 1, 1, tuesday)
	if err != nil {
		t.Fatalf("reload next day: %v", err)
	}
	if tr.DailyCount != 0 {
		t.Fatalf("daily count not reset: %d", tr.DailyCount)
	}
	ok, err = store.Claim(ctx, &tr, BucketHighPriority, tuesday, 2)
	if err != nil || !ok {
		t.Fatalf("claim after reset: ok=%v err=%v", ok, err)
	}
}

func TestTrackerRelease(t *testing.T) {
	db := newTestDB(t)
	store := &TrackerStore{DB: db}
	ctx := context.Background()

	tr, err := store.ForTaskUser(ctx, 5, 5, monday)
	if err != nil {
		t.Fatalf("ForTaskUser: %v", err)
	}
	if ok, _ := store.Claim(ctx, &tr, BucketThreeDays, monday, 3); !ok {
		t.Fatal("claim failed")
	}
	if err := store.Release(ctx, &tr, BucketThreeDays); err != nil {
		t.Fatalf("release: %v", err)
	}

	reloaded, err := store.ForTaskUser(ctx, 5, 5, monday)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ThreeDaySent || reloaded.DailyCount != 0 {
		t.Fatalf("release did not compensate: %+v", reloaded)
	}

	// The bucket can be claimed again the same day.
	if ok, _ := store.Claim(ctx, &reloaded, BucketThreeDays, monday, 3); !ok {
		t.Fatal("reclaim after release failed")
	}
}

func TestTrackerCleanupStale(t *testing.T) {
	db := newTestDB(t)
	store := &TrackerStore{DB: db}
	ctx := context.Background()

	u := createUser(t, db, "user@test")
	open := createTask(t, db, "open", dueIn(1), u, nil)
	done := createTask(t, db, "done", dueIn(1), u, nil)
	if err := db.Model(done).Update("status", task.StatusFinished).Error; err != nil {
		t.Fatalf("finish task: %v", err)
	}
	ancient := createTask(t, db, "ancient", dueIn(-45), u, nil)

	for _, id := range []uint64{open.ID, done.ID, ancient.ID, 9999} {
		if _, err := store.ForTaskUser(ctx, id, u.ID, monday); err != nil {
			t.Fatalf("seed tracker %d: %v", id, err)
		}
	}

	removed, err := store.CleanupStale(ctx, monday)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	var left []TaskReminderTracker
	if err := db.Find(&left).Error; err != nil {
		t.Fatalf("list trackers: %v", err)
	}
	if len(left) != 1 || left[0].TaskID != open.ID {
		t.Fatalf("wrong survivors: %+v", left)
	}
}
