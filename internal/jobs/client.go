package jobs

import (
	"context"
	"fmt"

	"bounty-server/internal/observability"

	"github.com/hibiken/asynq"
)

// Client handles enqueueing background jobs
type Client struct {
	client *asynq.Client
	logger *observability.Logger
}

// NewClient creates a new job client
func NewClient(redisAddr string, logger *observability.Logger) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	return &Client{
		client: client,
		logger: logger,
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueProvisionCodesJob enqueues a code provisioning job
func (c *Client) EnqueueProvisionCodesJob(ctx context.Context, payload ProvisionCodesPayload) error {
	task, err := NewProvisionCodesTask(payload)
	if err != nil {
		c.logger.Error(ctx, "failed to create provision codes task", err)
		return fmt.Errorf("failed to create provision codes task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error(ctx, "failed to enqueue provision codes task", err)
		return fmt.Errorf("failed to enqueue provision codes task: %w", err)
	}

	c.logger.Info(ctx, fmt.Sprintf("enqueued provision codes task: %s (queue: %s)", info.ID, info.Queue))
	return nil
}

// EnqueueProvisionImportJob enqueues a bulk claimant onboarding job
func (c *Client) EnqueueProvisionImportJob(ctx context.Context, payload ProvisionImportPayload) error {
	task, err := NewProvisionImportTask(payload)
	if err != nil {
		c.logger.Error(ctx, "failed to create provision import task", err)
		return fmt.Errorf("failed to create provision import task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error(ctx, "failed to enqueue provision import task", err)
		return fmt.Errorf("failed to enqueue provision import task: %w", err)
	}

	c.logger.Info(ctx, fmt.Sprintf("enqueued provision import task: %s (queue: %s)", info.ID, info.Queue))
	return nil
}
