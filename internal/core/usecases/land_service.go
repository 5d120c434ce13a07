package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/ports"
	"github.com/samirrijal/landplot/internal/pkg/geospatial"
	"github.com/samirrijal/landplot/internal/pkg/metrics"
	"github.com/samirrijal/landplot/internal/pkg/telemetry"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	landCacheTTL     = 120
)

// LandArea is the geodesic area of a land's polygons in square meters.
type LandArea struct {
	LandID   int64     `json:"land_id"`
	Polygons []float64 `json:"polygons_m2"`
	Total    float64   `json:"total_m2"`
}

// BulkDeleteResult reports how far a sequential bulk delete got.
type BulkDeleteResult struct {
	Deleted []int64 `json:"deleted"`
	Failed  int64   `json:"failed,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// LandService handles land record business logic.
type LandService struct {
	lands  ports.LandRepository
	cache  ports.CacheService
	events ports.EventPublisher
	now    func() time.Time
}

// NewLandService creates a new LandService. cache and events may be nil.
func NewLandService(lands ports.LandRepository, cache ports.CacheService, events ports.EventPublisher) *LandService {
	return &LandService{lands: lands, cache: cache, events: events, now: time.Now}
}

// Create stores a new land record. The polygon collection of a new record is
// always empty; polygons are written through ReplacePolygons.
func (s *LandService) Create(ctx context.Context, land *domain.Land) (err error) {
	ctx, end := telemetry.StartSpan(ctx, "LandService.Create")
	defer func() { end(err) }()

	land.ID = 0
	land.Polygons = []domain.Polygon{}
	if err := s.lands.Create(ctx, land); err != nil {
		return fmt.Errorf("create land: %w", err)
	}
	metrics.LandsCreated.Inc()
	s.publish(ctx, domain.LandCreated, land.ID, 0)
	return nil
}

// GetByID returns a single land record.
func (s *LandService) GetByID(ctx context.Context, id int64) (*domain.Land, error) {
	cacheKey := landCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var land domain.Land
			if err := json.Unmarshal(data, &land); err == nil {
				metrics.CacheHits.WithLabelValues("land").Inc()
				return &land, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("land").Inc()
	}

	land, err := s.lands.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if land.Polygons == nil {
		land.Polygons = []domain.Polygon{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(land); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, landCacheTTL)
		}
	}
	return land, nil
}

// List returns the page of lands matching filter together with the total
// number of matches.
func (s *LandService) List(ctx context.Context, filter domain.LandFilter) ([]domain.Land, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	all, err := s.lands.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]domain.Land, 0, len(all))
	for i := range all {
		if filter.Match(&all[i]) {
			if all[i].Polygons == nil {
				all[i].Polygons = []domain.Polygon{}
			}
			matched = append(matched, all[i])
		}
	}

	total := len(matched)
	if filter.Offset >= total {
		return []domain.Land{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

// Update merges patch into the stored record. A patch that only carries
// polygons is reported as a polygon write.
func (s *LandService) Update(ctx context.Context, id int64, patch domain.LandPatch) (_ *domain.Land, err error) {
	ctx, end := telemetry.StartSpan(ctx, "LandService.Update", attribute.Int64("land_id", id))
	defer func() { end(err) }()

	land, err := s.lands.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return land, nil
	}

	patch.Apply(land)
	if land.Polygons == nil {
		land.Polygons = []domain.Polygon{}
	}
	land.UpdatedAt = s.now().UTC()
	if err := s.lands.Update(ctx, land); err != nil {
		return nil, fmt.Errorf("update land %d: %w", id, err)
	}
	s.invalidate(ctx, id)

	evt := domain.LandUpdated
	if patch.Polygons != nil {
		metrics.PolygonWrites.Inc()
		metrics.PolygonsPerWrite.Observe(float64(len(land.Polygons)))
		if onlyPolygons(patch) {
			evt = domain.LandPolygonsUpdated
		}
	}
	s.publish(ctx, evt, id, len(land.Polygons))
	return land, nil
}

// ReplacePolygons overwrites the whole polygon collection of a record.
func (s *LandService) ReplacePolygons(ctx context.Context, id int64, polygons []domain.Polygon) (err error) {
	ctx, end := telemetry.StartSpan(ctx, "LandService.ReplacePolygons",
		attribute.Int64("land_id", id), attribute.Int("polygons", len(polygons)))
	defer func() { end(err) }()

	polygons = domain.ClonePolygons(polygons)
	if err := s.lands.UpdatePolygons(ctx, id, polygons); err != nil {
		return fmt.Errorf("replace polygons of land %d: %w", id, err)
	}
	s.invalidate(ctx, id)
	metrics.PolygonWrites.Inc()
	metrics.PolygonsPerWrite.Observe(float64(len(polygons)))
	s.publish(ctx, domain.LandPolygonsUpdated, id, len(polygons))
	return nil
}

// Delete removes a land record.
func (s *LandService) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := telemetry.StartSpan(ctx, "LandService.Delete", attribute.Int64("land_id", id))
	defer func() { end(err) }()

	if err := s.lands.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	metrics.LandsDeleted.WithLabelValues("single").Inc()
	s.publish(ctx, domain.LandDeleted, id, 0)
	return nil
}

// BulkDelete deletes ids in order and stops at the first failure.
func (s *LandService) BulkDelete(ctx context.Context, ids []int64) (_ *BulkDeleteResult, err error) {
	ctx, end := telemetry.StartSpan(ctx, "LandService.BulkDelete", attribute.Int("ids", len(ids)))
	defer func() { end(err) }()

	res := &BulkDeleteResult{Deleted: make([]int64, 0, len(ids))}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			res.Failed = id
			res.Error = err.Error()
			return res, fmt.Errorf("bulk delete stopped at land %d: %w", id, err)
		}
		res.Deleted = append(res.Deleted, id)
	}
	return res, nil
}

// Area computes the geodesic area of every polygon of a record.
func (s *LandService) Area(ctx context.Context, id int64) (*LandArea, error) {
	land, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &LandArea{LandID: id, Polygons: make([]float64, len(land.Polygons))}
	for i, p := range land.Polygons {
		out.Polygons[i] = geospatial.Area(p)
		out.Total += out.Polygons[i]
	}
	return out, nil
}

// GeoJSON renders a record's polygons as a FeatureCollection.
func (s *LandService) GeoJSON(ctx context.Context, id int64) (*geojson.FeatureCollection, error) {
	land, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return geospatial.FeatureCollection(land), nil
}

func (s *LandService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, landCacheKey(id)); err != nil {
		slog.Warn("cache invalidation failed", "land_id", id, "error", err)
	}
}

// publish is best effort: a broker outage never fails the write.
func (s *LandService) publish(ctx context.Context, typ domain.LandEventType, id int64, polygons int) {
	if s.events == nil {
		return
	}
	err := s.events.PublishLandEvent(ctx, &domain.LandEvent{
		Type:         typ,
		LandID:       id,
		PolygonCount: polygons,
		Time:         s.now().UTC(),
	})
	result := "ok"
	if err != nil {
		result = "error"
		slog.Warn("publish land event failed", "type", typ, "land_id", id, "error", err)
	}
	metrics.EventsPublished.WithLabelValues(string(typ), result).Inc()
}

func onlyPolygons(p domain.LandPatch) bool {
	p.Polygons = nil
	return p.Empty()
}

func landCacheKey(id int64) string {
	return fmt.Sprintf("lands:id:%d", id)
}

