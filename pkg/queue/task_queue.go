// Package queue is the hand-off point between request handlers and the
// identity-sync worker. Tasks are JSON payloads on a redis list; delivery is
// best-effort at-most-once — a failed task is logged by the worker and
// dropped, never blocking or rolling back the database write that produced
// it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const syncTaskList = "staffdir:tasks:iam-sync"

const (
	// TaskStaffSync mirrors one staff's identity and sales role into IAM.
	TaskStaffSync = "staff-sync"
	// TaskReconcile walks every active sales-role staff and repairs IAM state.
	TaskReconcile = "reconcile"
)

type Task struct {
	Type        string `json:"type"`
	Token       string `json:"token"`
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	RoleName    string `json:"role_name,omitempty"`
	EnqueuedAt  int64  `json:"enqueued_at"`
}

type TaskHandler func(context.Context, *Task) error

type TaskQueue struct {
	rdb redis.UniversalClient
}

func NewTaskQueue(rdb redis.UniversalClient) *TaskQueue {
	return &TaskQueue{rdb: rdb}
}

func (q *TaskQueue) Enqueue(ctx context.Context, task *Task) error {
	if task.Type == "" {
		return errors.New("task type is required")
	}
	task.EnqueuedAt = time.Now().Unix()
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, syncTaskList, payload).Err()
}

// Consume blocks on the task list and feeds tasks to handler until ctx is
// cancelled. A handler error drops the task; the loop itself only stops on
// ctx or a redis failure.
func (q *TaskQueue) Consume(ctx context.Context, handler TaskHandler) error {
	if handler == nil {
		return errors.New("task handler is required")
	}
	for {
		result, err := q.rdb.BRPop(ctx, 5*time.Second, syncTaskList).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		// BRPop returns [key, value]
		if len(result) != 2 {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			continue
		}
		// handler errors are the handler's to log; the task is not retried
		_ = handler(ctx, &task)
	}
}

func (q *TaskQueue) Length(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, syncTaskList).Result()
}
