package ports

import (
	"context"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// LandGateway is the editor's view of the remote land store. Writes always
// carry the complete polygon collection.
type LandGateway interface {
	FetchPolygons(ctx context.Context, landID int64) ([]domain.Polygon, error)
	PushPolygons(ctx context.Context, landID int64, polygons []domain.Polygon) error
}

// OverlayStyle controls how a polygon overlay is drawn and whether the user
// can drag its vertices.
type OverlayStyle struct {
	Editable  bool
	Draggable bool
	Selected  bool
}

// Overlay is a live polygon drawn by the map surface. The surface may move
// vertices on its own while the overlay is editable; Path always returns the
// surface's current geometry.
type Overlay interface {
	Path() domain.Polygon
	SetPath(path domain.Polygon)
	SetStyle(style OverlayStyle)
	Remove()
}

// MapProvider is the capability set the editor needs from a map widget.
type MapProvider interface {
	CreateOverlay(path domain.Polygon, style OverlayStyle) Overlay
	FitBounds(b domain.Bounds)
	SetCenter(c domain.Coordinate)
	SetDrawingEnabled(enabled bool)
	// WatchPosition requests the device position once. Exactly one of the
	// callbacks is invoked, possibly from another goroutine.
	WatchPosition(onSuccess func(domain.Coordinate), onError func(error))
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}
