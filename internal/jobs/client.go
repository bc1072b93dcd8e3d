package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

const generateMaxRetry = 3

// A distribution run may have mailed part of its selection before failing.
const distributeMaxRetry = 0

// Client submits payroll tasks to the queue.
type Client struct {
	client *asynq.Client
}

func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

func (c *Client) EnqueueDistribute(ctx context.Context, payload DistributePayload) (*asynq.TaskInfo, error) {
	task, err := NewDistributeTask(payload)
	if err != nil {
		return nil, err
	}
	return c.enqueue(ctx, task, distributeMaxRetry)
}

func (c *Client) EnqueueGenerate(ctx context.Context, payload GeneratePayload) (*asynq.TaskInfo, error) {
	task, err := NewGenerateTask(payload)
	if err != nil {
		return nil, err
	}
	return c.enqueue(ctx, task, generateMaxRetry)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, maxRetry int) (*asynq.TaskInfo, error) {
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueuePayroll), asynq.MaxRetry(maxRetry))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}
	return info, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
