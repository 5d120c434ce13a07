package postgres

import (
	"context"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// EventRepo implements ports.LandEventLog.
type EventRepo struct {
	db *DB
}

func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Append(ctx context.Context, e *domain.LandEvent) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO land_events (land_id, type, polygon_count, occurred_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (land_id, type, occurred_at) DO NOTHING
	`, e.LandID, string(e.Type), e.PolygonCount, e.Time)
	return err
}

// ListByLand returns the newest events first.
func (r *EventRepo) ListByLand(ctx context.Context, landID int64, limit int) ([]domain.LandEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT land_id, type, polygon_count, occurred_at
		FROM land_events
		WHERE land_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`, landID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.LandEvent{}
	for rows.Next() {
		var (
			e   domain.LandEvent
			typ string
		)
		if err := rows.Scan(&e.LandID, &typ, &e.PolygonCount, &e.Time); err != nil {
			return nil, err
		}
		e.Type = domain.LandEventType(typ)
		e.Time = e.Time.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
