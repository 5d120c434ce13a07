package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/landplot/internal/pkg/metrics"
)

// Starter launches bulk delete workflows on a Temporal task queue.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartBulkDelete starts the workflow and returns its workflow ID.
func (s *Starter) StartBulkDelete(ctx context.Context, ids []int64) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        "bulk-delete-" + uuid.NewString(),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, BulkDeleteWorkflow, BulkDeleteInput{IDs: ids})
	if err != nil {
		metrics.BulkDeleteJobs.WithLabelValues("start_failed").Inc()
		return "", fmt.Errorf("start bulk delete: %w", err)
	}
	metrics.BulkDeleteJobs.WithLabelValues("started").Inc()
	return run.GetID(), nil
}
