package notify

import (
	"context"
	"testing"
)

func TestPreferenceDefaultsCreatedOnFirstRead(t *testing.T) {
	db := newTestDB(t)
	store := &PreferenceStore{DB: db, DailyCap: 3}
	ctx := context.Background()

	p, err := store.ForUser(ctx, 42)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	if !p.EmailEnabled || !p.ThreeDayReminder || !p.OneDayReminder || !p.SameDayReminder {
		t.Fatalf("defaults: %+v", p)
	}
	if p.WeekendDelivery {
		t.Fatal("weekend delivery should default off")
	}
	if p.MaxRemindersPerDay != 3 {
		t.Fatalf("daily cap = %d", p.MaxRemindersPerDay)
	}

	// Second read returns the same row, not a fresh one.
	again, err := store.ForUser(ctx, 42)
	if err != nil {
		t.Fatalf("second ForUser: %v", err)
	}
	if again.ID != p.ID {
		t.Fatalf("row recreated: %d vs %d", again.ID, p.ID)
	}
}

func TestPreferenceDisabledFlagsPersist(t *testing.T) {
	db := newTestDB(t)
	store := &PreferenceStore{DB: db, DailyCap: 3}
	ctx := context.Background()

	p, err := store.ForUser(ctx, 7)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	p.EmailEnabled = false
	p.SameDayReminder = false
	if err := store.Save(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.ForUser(ctx, 7)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.EmailEnabled || got.SameDayReminder {
		t.Fatalf("false values lost on save: %+v", got)
	}
	if !got.OneDayReminder {
		t.Fatalf("unrelated flag flipped: %+v", got)
	}
}
