package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"remindd/internal/notify"
)

// Worker drains the queue. Multiple workers may run against the same table;
// SKIP LOCKED in Claim keeps them from stepping on each other.
type Worker struct {
	ID      string
	Repo    *Repo
	Gateway *notify.Gateway
	Service *notify.Service
	Log     *slog.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Error("worker claim failed", "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	if job.Type != TypeEmailDispatch {
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
		return
	}

	var p emailPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	var err error
	switch p.Kind {
	case KindReminder:
		if p.Reminder == nil {
			_ = w.Repo.MarkFailed(job.ID, "bad payload: missing reminder")
			return
		}
		err = w.Gateway.DispatchReminder(ctx, *p.Reminder)
	case KindTaskAssigned:
		err = w.Service.NotifyAssigned(ctx, p.TaskID, p.ActorID)
	case KindTaskCompleted:
		err = w.Service.NotifyCompleted(ctx, p.TaskID, p.ActorID)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown payload kind")
		return
	}

	if err != nil {
		w.Log.Error("job failed", "job_id", job.ID, "kind", p.Kind, "error", err)
		w.retry(job, err.Error())
		return
	}
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
