package workflows

import (
	"context"
	"errors"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/usecases"
	"github.com/samirrijal/landplot/internal/pkg/metrics"
)

const errTypeNotFound = "NotFound"

// BulkDeleteActivities holds the activity implementations for the bulk
// delete workflow.
type BulkDeleteActivities struct {
	Lands *usecases.LandService
}

// DeleteLand removes one record. A missing record is not retried.
func (a *BulkDeleteActivities) DeleteLand(ctx context.Context, id int64) error {
	err := a.Lands.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError("land not found", errTypeNotFound, err)
	}
	return err
}

// ReportBulkDelete records the outcome of a finished job.
func (a *BulkDeleteActivities) ReportBulkDelete(ctx context.Context, res usecases.BulkDeleteResult) error {
	outcome := "completed"
	if res.Failed != 0 {
		outcome = "stopped"
	}
	metrics.BulkDeleteJobs.WithLabelValues(outcome).Inc()
	slog.Info("bulk delete job finished", "outcome", outcome, "deleted", len(res.Deleted), "failed", res.Failed)
	return nil
}
