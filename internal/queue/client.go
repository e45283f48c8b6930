package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Enqueuer abstracts task submission so services can be tested without Redis.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// Client wraps the asynq client behind the Enqueuer interface.
type Client struct {
	C *asynq.Client
}

// Enqueue submits the task.
func (c Client) Enqueue(ctx context.Context, task *asynq.Task) error {
	if c.C == nil {
		return fmt.Errorf("queue: client not configured")
	}
	if _, err := c.C.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", task.Type(), err)
	}
	return nil
}
