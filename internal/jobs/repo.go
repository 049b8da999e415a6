package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"remindd/internal/notify"
)

// emailPayload is the JSON body of an EMAIL_DISPATCH job.
type emailPayload struct {
	Kind     string                   `json:"kind"`
	Reminder *notify.ReminderDispatch `json:"reminder,omitempty"`
	TaskID   uint64                   `json:"task_id,omitempty"`
	ActorID  uint64                   `json:"actor_id,omitempty"`
}

type Repo struct {
	DB *gorm.DB
}

// DispatchReminder enqueues a decided reminder instead of sending inline.
// Satisfies notify.Dispatcher, so the evaluator stays unaware of the queue.
func (r *Repo) DispatchReminder(ctx context.Context, d notify.ReminderDispatch) error {
	payload, err := json.Marshal(emailPayload{Kind: KindReminder, Reminder: &d})
	if err != nil {
		return fmt.Errorf("marshal reminder payload: %w", err)
	}
	j := Job{
		UserID:  d.UserID,
		Type:    TypeEmailDispatch,
		Payload: payload,
		RunAt:   time.Now(),
		Status:  "PENDING",
	}
	return r.DB.WithContext(ctx).Create(&j).Error
}

// EnqueueEvent queues an assignment or completion notification. recipientID
// is who the email goes to, actorID is who triggered the change.
func (r *Repo) EnqueueEvent(ctx context.Context, kind string, taskID, recipientID, actorID uint64) error {
	payload, err := json.Marshal(emailPayload{Kind: kind, TaskID: taskID, ActorID: actorID})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	j := Job{
		UserID:  recipientID,
		Type:    TypeEmailDispatch,
		Payload: payload,
		RunAt:   time.Now(),
		Status:  "PENDING",
	}
	return r.DB.WithContext(ctx).Create(&j).Error
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(workerID string) (*Job, error) {
	var job Job
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		// requeue stuck RUNNING jobs (optional safety)
		tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`)

		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(id uint64) error {
	return r.DB.Exec(`update jobs set status='DONE', updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(id uint64, errMsg string) error {
	return r.DB.Exec(`update jobs set status='FAILED', last_error=?, updated_at=now() where id=?`, errMsg, id).Error
}

func (r *Repo) RetryLater(id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?`, attempts, runAt, errMsg, id).Error
}
