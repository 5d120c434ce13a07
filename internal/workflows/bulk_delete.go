package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/landplot/internal/core/usecases"
)

// BulkDeleteInput is the input for the bulk delete workflow.
type BulkDeleteInput struct {
	IDs []int64
}

// BulkDeleteWorkflow deletes land records one at a time in the given order
// and stops at the first record that cannot be deleted. Records deleted
// before the failure stay deleted.
func BulkDeleteWorkflow(ctx workflow.Context, input BulkDeleteInput) (*usecases.BulkDeleteResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting bulk delete workflow", "count", len(input.IDs))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeNotFound},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	res := &usecases.BulkDeleteResult{Deleted: make([]int64, 0, len(input.IDs))}
	for _, id := range input.IDs {
		if err := workflow.ExecuteActivity(ctx, "DeleteLand", id).Get(ctx, nil); err != nil {
			logger.Warn("bulk delete stopped", "land_id", id, "error", err)
			res.Failed = id
			res.Error = err.Error()
			break
		}
		res.Deleted = append(res.Deleted, id)
	}

	// Outcome reporting is best effort; the deletes already happened.
	_ = workflow.ExecuteActivity(ctx, "ReportBulkDelete", *res).Get(ctx, nil)

	logger.Info("Bulk delete finished", "deleted", len(res.Deleted), "failed", res.Failed)
	return res, nil
}
