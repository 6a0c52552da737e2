package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// InlineQueue runs tasks in-process through a ServeMux. It stands in for a
// Redis-backed asynq client when the server runs without a broker.
type InlineQueue struct {
	handler asynq.Handler
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewInlineQueue(handler asynq.Handler, timeout time.Duration) *InlineQueue {
	return &InlineQueue{handler: handler, timeout: timeout}
}

// Enqueue starts the task in the background. Options are accepted for
// interface compatibility; only the queue name is reported back.
func (q *InlineQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info := &asynq.TaskInfo{
		ID:      uuid.New().String(),
		Queue:   "default",
		Type:    task.Type(),
		Payload: task.Payload(),
		State:   asynq.TaskStateActive,
	}
	for _, opt := range opts {
		if opt.Type() == asynq.QueueOpt {
			info.Queue = opt.Value().(string)
		}
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ctx := context.Background()
		if q.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, q.timeout)
			defer cancel()
		}
		if err := q.handler.ProcessTask(ctx, task); err != nil {
			log.WithError(err).WithFields(log.Fields{"taskId": info.ID, "type": task.Type()}).Warn("Inline task failed")
		}
	}()
	return info, nil
}

// Wait blocks until every started task has returned
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}
