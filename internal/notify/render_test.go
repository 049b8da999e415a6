package notify

import (
	"strings"
	"testing"
	"time"

	"remindd/internal/auth"
	"remindd/internal/task"
)

func testRenderer() *Renderer {
	return &Renderer{SiteName: "Task Portal", SiteURL: "http://portal.test"}
}

func TestReminderSubjects(t *testing.T) {
	u := &auth.User{ID: 1, Name: "Alice", Email: "alice@test"}
	due := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	tk := &task.Task{ID: 7, Name: "Quarterly report", DueDate: &due}

	cases := []struct {
		bucket Bucket
		days   int
		want   string
	}{
		{BucketThreeDays, 3, `Reminder: "Quarterly report" is due in 3 days`},
		{BucketThreeDays, 2, `Reminder: "Quarterly report" is due in 2 days`},
		{BucketOneDay, 1, `Heads up: "Quarterly report" is due tomorrow`},
		{BucketSameDay, 0, `Urgent: "Quarterly report" is due today`},
		{BucketHighPriority, 1, `High priority: "Quarterly report" needs attention`},
	}
	for _, c := range cases {
		got, err := testRenderer().Reminder(tk, u, c.bucket, c.days)
		if err != nil {
			t.Fatalf("render %s: %v", c.bucket, err)
		}
		if got.Subject != c.want {
			t.Errorf("%s subject = %q, want %q", c.bucket, got.Subject, c.want)
		}
		if got.HTML == "" || got.Text == "" {
			t.Errorf("%s: empty body", c.bucket)
		}
	}
}

func TestReminderBodyContent(t *testing.T) {
	u := &auth.User{ID: 1, Name: "Alice", Email: "alice@test"}
	due := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	tk := &task.Task{
		ID:      7,
		Name:    "Quarterly report",
		DueDate: &due,
		Project: &task.Project{Name: "Finance"},
		Tags:    []string{"reports", "q1"},
	}

	c, err := testRenderer().Reminder(tk, u, BucketOneDay, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Hello Alice", "Quarterly report", "Finance",
		"Thursday, 05 March 2026", "http://portal.test/tasks/7/",
		"reports, q1", "Task Portal",
	} {
		if !strings.Contains(c.HTML, want) {
			t.Errorf("html missing %q", want)
		}
		if !strings.Contains(c.Text, want) {
			t.Errorf("text missing %q", want)
		}
	}
}

func TestReminderProjectFallback(t *testing.T) {
	u := &auth.User{ID: 1, Name: "Alice", Email: "alice@test"}
	tk := &task.Task{ID: 7, Name: "Orphan task"}

	c, err := testRenderer().Reminder(tk, u, BucketSameDay, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(c.Text, "not specified") {
		t.Error("missing project placeholder")
	}
}

func TestRendererFallsBackToEmailName(t *testing.T) {
	u := &auth.User{ID: 1, Email: "anon@test"}
	tk := &task.Task{ID: 1, Name: "x"}

	c, err := testRenderer().Reminder(tk, u, BucketSameDay, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(c.Text, "Hello anon@test") {
		t.Error("missing email fallback greeting")
	}
}

func TestDigestRender(t *testing.T) {
	u := &auth.User{ID: 1, Name: "Alice", Email: "alice@test"}
	due := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	data := DigestData{
		DueToday: []task.Task{{ID: 1, Name: "finish slides", DueDate: &due}},
		Overdue:  []task.Task{{ID: 2, Name: "expense report", Priority: task.PriorityHigh}},
	}

	c, err := testRenderer().Digest(u, data, monday)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if c.Subject != "Daily digest: 2 open tasks" {
		t.Errorf("subject = %q", c.Subject)
	}
	for _, want := range []string{"finish slides", "expense report", "Overdue", "Due today", "high priority"} {
		if !strings.Contains(c.Text, want) {
			t.Errorf("text missing %q", want)
		}
	}
}

func TestWelcomeRender(t *testing.T) {
	c, err := testRenderer().Welcome(&auth.User{Name: "Alice", Email: "alice@test"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if c.Subject != "Welcome to Task Portal" {
		t.Errorf("subject = %q", c.Subject)
	}
	if !strings.Contains(c.HTML, "http://portal.test") {
		t.Error("missing site link")
	}
}
