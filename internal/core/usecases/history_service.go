package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/ports"
	"github.com/samirrijal/landplot/internal/pkg/metrics"
)

// HistoryService records consumed land events and serves them back per land.
type HistoryService struct {
	log ports.LandEventLog
}

func NewHistoryService(log ports.LandEventLog) *HistoryService {
	return &HistoryService{log: log}
}

// Record stores one land event. Malformed events are rejected with
// domain.ErrInvalidInput so the consumer can drop them instead of retrying.
func (s *HistoryService) Record(ctx context.Context, e *domain.LandEvent) error {
	if e == nil || e.LandID <= 0 || !e.Type.Known() || e.Time.IsZero() {
		metrics.EventsConsumed.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: malformed land event", domain.ErrInvalidInput)
	}
	if err := s.log.Append(ctx, e); err != nil {
		return fmt.Errorf("append event for land %d: %w", e.LandID, err)
	}
	metrics.EventsConsumed.WithLabelValues(string(e.Type)).Inc()
	return nil
}

// History returns up to limit events of a land, newest first.
func (s *HistoryService) History(ctx context.Context, landID int64, limit int) ([]domain.LandEvent, error) {
	if landID <= 0 {
		return nil, fmt.Errorf("%w: land id must be positive", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.log.ListByLand(ctx, landID, limit)
}
