package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/ports"
	"github.com/samirrijal/landplot/internal/pkg/geospatial"
)

var (
	ErrNotEditing     = errors.New("edit mode is off")
	ErrNoSelection    = errors.New("no polygon selected")
	ErrUnknownPolygon = errors.New("unknown polygon")
	ErrVertexNotFound = errors.New("vertex not found")
	ErrClosed         = errors.New("editor closed")
	ErrNoShape        = errors.New("no drawn shape")
)

// DefaultCenter is used when the device position cannot be determined.
var DefaultCenter = domain.Coordinate{Lat: -3.745, Lng: -38.523}

// EditorOption customises a MapEditor.
type EditorOption func(*MapEditor)

// WithNotifier routes user-visible messages to n.
func WithNotifier(n ports.Notifier) EditorOption {
	return func(e *MapEditor) { e.notify = n }
}

// WithLogger sets the editor's logger.
func WithLogger(l *slog.Logger) EditorOption {
	return func(e *MapEditor) { e.log = l }
}

// WithDefaultCenter overrides the geolocation fallback.
func WithDefaultCenter(c domain.Coordinate) EditorOption {
	return func(e *MapEditor) { e.defaultCenter = c }
}

// MapEditor owns the polygon collection of one land record and keeps the
// map surface in step with it. The store is the only durable owner of
// geometry: overlays are views that are read back at explicit checkpoints
// (leaving edit mode, saving, vertex edits) and rewritten from the store.
//
// Remote writes are serialized. Each write snapshots the store after the
// previous write has been committed or rolled back, so a second delete never
// sends a collection that still contains the first target or resurrects it.
type MapEditor struct {
	landID        int64
	gateway       ports.LandGateway
	surface       ports.MapProvider
	notify        ports.Notifier
	log           *slog.Logger
	defaultCenter domain.Coordinate

	syncMu sync.Mutex

	mu            sync.Mutex
	store         *PolygonStore
	session       EditSession
	overlays      map[PolygonID]ports.Overlay
	pendingDelete map[PolygonID]bool
	revision      uint64
	dirty         bool
	closed        bool
	current       *domain.Coordinate
	marked        *domain.Coordinate
}

// NewMapEditor creates an editor in VIEWING mode with an empty collection.
func NewMapEditor(landID int64, gateway ports.LandGateway, surface ports.MapProvider, opts ...EditorOption) *MapEditor {
	e := &MapEditor{
		landID:        landID,
		gateway:       gateway,
		surface:       surface,
		notify:        nopNotifier{},
		log:           slog.Default(),
		defaultCenter: DefaultCenter,
		store:         NewPolygonStore(),
		overlays:      make(map[PolygonID]ports.Overlay),
		pendingDelete: make(map[PolygonID]bool),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("land_id", landID)
	return e
}

// Load replaces the collection with the remote record's polygons. On failure
// the collection is left empty. An empty result triggers Recenter.
func (e *MapEditor) Load(ctx context.Context) error {
	polys, err := e.gateway.FetchPolygons(ctx, e.landID)
	if err != nil {
		e.log.Error("fetch polygons failed", "error", err)
		e.notify.Error("Error fetching land data.")
		polys = nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	for id, ov := range e.overlays {
		ov.Remove()
		delete(e.overlays, id)
	}
	ids := e.store.Replace(polys)
	e.session.ClearSelection()
	style := e.styleLocked("")
	var bounds domain.Bounds
	hasBounds := false
	for _, id := range ids {
		path, _ := e.store.Get(id)
		e.overlays[id] = e.surface.CreateOverlay(path, style)
		if b, ok := path.Bounds(); ok {
			if hasBounds {
				bounds = bounds.Union(b)
			} else {
				bounds, hasBounds = b, true
			}
		}
	}
	e.revision++
	e.dirty = false
	e.mu.Unlock()

	if hasBounds {
		e.surface.FitBounds(bounds)
	} else {
		e.Recenter()
	}

	if err != nil {
		return fmt.Errorf("load polygons for land %d: %w", e.landID, err)
	}
	e.log.Debug("polygons loaded", "count", len(ids))
	return nil
}

// ToggleEdit switches between VIEWING and EDITING. Leaving EDITING first
// reads every overlay's geometry back into the store.
func (e *MapEditor) ToggleEdit() (EditMode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.session.Mode(), ErrClosed
	}

	if e.session.Editing() {
		e.reconcileLocked()
	}
	mode := e.session.Toggle()
	e.restyleLocked()
	e.surface.SetDrawingEnabled(mode == Editing)
	return mode, nil
}

// DrawComplete takes ownership of a freshly drawn shape. Its path is copied
// into the store once and the drawing-layer overlay is discarded; a new
// overlay managed by the editor renders the polygon from then on. A rejected
// shape is left on the surface untouched.
func (e *MapEditor) DrawComplete(drawn ports.Overlay) (PolygonID, error) {
	if drawn == nil {
		return "", ErrNoShape
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrClosed
	}
	if !e.session.Editing() {
		return "", ErrNotEditing
	}

	path := drawn.Path().Clone()
	drawn.Remove()

	id := e.store.Append(path)
	e.overlays[id] = e.surface.CreateOverlay(path, e.styleLocked(id))
	e.touchLocked()
	return id, nil
}

// Select marks a polygon as selected and fits the viewport to it.
func (e *MapEditor) Select(id PolygonID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	path, ok := e.store.Get(id)
	if !ok {
		return ErrUnknownPolygon
	}
	if ov := e.overlays[id]; ov != nil && e.session.Editing() {
		path = ov.Path()
	}

	e.session.Select(id)
	e.restyleLocked()
	if b, ok := path.Bounds(); ok {
		e.surface.FitBounds(b)
	}
	return nil
}

// AddVertex appends c to the selected polygon. The store is updated first
// and the overlay is rewritten from it immediately.
func (e *MapEditor) AddVertex(c domain.Coordinate) error {
	return e.mutateSelected(func(path domain.Polygon) (domain.Polygon, error) {
		return append(path, c), nil
	})
}

// RemoveVertex removes the first vertex of the selected polygon exactly
// equal to c.
func (e *MapEditor) RemoveVertex(c domain.Coordinate) error {
	return e.mutateSelected(func(path domain.Polygon) (domain.Polygon, error) {
		for i, p := range path {
			if p == c {
				return append(path[:i], path[i+1:]...), nil
			}
		}
		return nil, ErrVertexNotFound
	})
}

func (e *MapEditor) mutateSelected(fn func(domain.Polygon) (domain.Polygon, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if !e.session.Editing() {
		return ErrNotEditing
	}
	id, ok := e.session.Selected()
	if !ok {
		return ErrNoSelection
	}

	e.syncFromOverlayLocked(id)
	path, ok := e.store.Get(id)
	if !ok {
		return ErrUnknownPolygon
	}
	next, err := fn(path)
	if err != nil {
		return err
	}
	e.store.Set(id, next)
	if ov := e.overlays[id]; ov != nil {
		ov.SetPath(next.Clone())
	}
	e.touchLocked()
	return nil
}

// DeleteSelected deletes the selected polygon. See DeletePolygon.
func (e *MapEditor) DeleteSelected(ctx context.Context) error {
	e.mu.Lock()
	id, ok := e.session.Selected()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !ok {
		return ErrNoSelection
	}
	return e.DeletePolygon(ctx, id)
}

// DeletePolygon sends the collection without id to the remote store and only
// removes id locally once the write succeeded. The selection is reset after a
// successful delete.
func (e *MapEditor) DeletePolygon(ctx context.Context, id PolygonID) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.store.IndexOf(id) < 0 || e.pendingDelete[id] {
		e.mu.Unlock()
		return ErrUnknownPolygon
	}
	e.pendingDelete[id] = true
	e.mu.Unlock()

	err := e.push(ctx, func() []domain.Polygon {
		return e.snapshotLocked(id, nil)
	}, func(clean bool) {
		e.store.Remove(id)
		if ov := e.overlays[id]; ov != nil {
			ov.Remove()
			delete(e.overlays, id)
		}
		e.session.ClearSelection()
		e.restyleLocked()
		if clean {
			e.dirty = false
		}
	}, func() {
		delete(e.pendingDelete, id)
	})
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		e.log.Error("delete polygon failed", "polygon", id, "error", err)
		e.notify.Error("Error deleting polygon.")
		return fmt.Errorf("delete polygon: %w", err)
	}
	e.notify.Success("Polygon deleted.")
	return nil
}

// Save sends the complete collection to the remote store. While editing,
// the geometry currently shown by the surface is what gets sent; it is
// written back into the store only once the remote store has accepted it,
// so a failed save leaves local state exactly as it was.
func (e *MapEditor) Save(ctx context.Context) error {
	var synced map[PolygonID]domain.Polygon
	err := e.push(ctx, func() []domain.Polygon {
		synced = nil
		if e.session.Editing() {
			synced = e.surfacePathsLocked()
		}
		return e.snapshotLocked("", synced)
	}, func(clean bool) {
		for id, p := range synced {
			e.store.Set(id, p)
		}
		if clean {
			e.dirty = false
		}
	}, nil)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		e.log.Error("save polygons failed", "error", err)
		e.notify.Error("Error sending polygon data.")
		return fmt.Errorf("save polygons: %w", err)
	}
	e.notify.Success("Polygon data sent successfully.")
	return nil
}

// push sends the collection produced by build. build and the callbacks run
// under the state lock. onSuccess gets clean set when nothing changed
// locally while the request was in flight; always runs whatever the
// outcome. Neither callback runs after Close.
func (e *MapEditor) push(ctx context.Context, build func() []domain.Polygon, onSuccess func(clean bool), always func()) error {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	snapshot := build()
	rev := e.revision
	e.mu.Unlock()

	err := e.gateway.PushPolygons(ctx, e.landID, snapshot)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if always != nil {
		always()
	}
	if err == nil {
		onSuccess(e.revision == rev)
	}
	return err
}

// Recenter asks the surface for the device position once. On success the
// map is centred there and the position remembered; otherwise the map falls
// back to the default centre.
func (e *MapEditor) Recenter() {
	e.surface.WatchPosition(func(c domain.Coordinate) {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		e.current = &c
		e.mu.Unlock()
		e.surface.SetCenter(c)
	}, func(err error) {
		e.mu.Lock()
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}
		e.log.Warn("geolocation unavailable, using default center", "error", err)
		e.surface.SetCenter(e.defaultCenter)
	})
}

// CurrentLocation returns the last known device position.
func (e *MapEditor) CurrentLocation() (domain.Coordinate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return domain.Coordinate{}, false
	}
	return *e.current, true
}

// MarkLocation remembers a user-chosen point.
func (e *MapEditor) MarkLocation(c domain.Coordinate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marked = &c
}

// MarkedLocation returns the user-chosen point, if any.
func (e *MapEditor) MarkedLocation() (domain.Coordinate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.marked == nil {
		return domain.Coordinate{}, false
	}
	return *e.marked, true
}

// Polygons returns the collection in order.
func (e *MapEditor) Polygons() []PolygonEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Entries()
}

// Collection returns the polygon paths in order, as they would be saved.
func (e *MapEditor) Collection() []domain.Polygon {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot("")
}

// Mode returns the edit session state.
func (e *MapEditor) Mode() EditMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Mode()
}

// Selected returns the selected polygon, if any.
func (e *MapEditor) Selected() (PolygonID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Selected()
}

// Dirty reports whether there are local changes the remote store has not
// acknowledged.
func (e *MapEditor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Area returns the geodesic area of a polygon in square meters.
func (e *MapEditor) Area(id PolygonID) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	path, ok := e.store.Get(id)
	if !ok {
		return 0, ErrUnknownPolygon
	}
	return geospatial.Area(path), nil
}

// TotalArea returns the combined area of every polygon in square meters.
func (e *MapEditor) TotalArea() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return geospatial.TotalArea(e.store.Snapshot(""))
}

// Close removes every overlay. Results of requests still in flight are
// dropped and further calls return ErrClosed.
func (e *MapEditor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ov := range e.overlays {
		ov.Remove()
		delete(e.overlays, id)
	}
	e.surface.SetDrawingEnabled(false)
}

func (e *MapEditor) touchLocked() {
	e.revision++
	e.dirty = true
}

// reconcileLocked copies the surface geometry of every overlay into the store.
func (e *MapEditor) reconcileLocked() {
	for _, id := range e.store.IDs() {
		e.syncFromOverlayLocked(id)
	}
}

func (e *MapEditor) syncFromOverlayLocked(id PolygonID) {
	ov := e.overlays[id]
	if ov == nil {
		return
	}
	current, ok := e.store.Get(id)
	if !ok {
		return
	}
	if surface := ov.Path(); !surface.Equal(current) {
		e.store.Set(id, surface)
		e.touchLocked()
	}
}

// surfacePathsLocked returns the overlay geometry of every polygon whose
// surface path differs from the store.
func (e *MapEditor) surfacePathsLocked() map[PolygonID]domain.Polygon {
	out := make(map[PolygonID]domain.Polygon)
	for _, entry := range e.store.Entries() {
		ov := e.overlays[entry.ID]
		if ov == nil {
			continue
		}
		if surface := ov.Path(); !surface.Equal(entry.Path) {
			out[entry.ID] = surface.Clone()
		}
	}
	return out
}

// snapshotLocked returns the collection in order without exclude, with
// override substituted for the stored paths it names.
func (e *MapEditor) snapshotLocked(exclude PolygonID, override map[PolygonID]domain.Polygon) []domain.Polygon {
	if len(override) == 0 {
		return e.store.Snapshot(exclude)
	}
	out := make([]domain.Polygon, 0, e.store.Len())
	for _, entry := range e.store.Entries() {
		if entry.ID == exclude {
			continue
		}
		if p, ok := override[entry.ID]; ok {
			out = append(out, p.Clone())
			continue
		}
		if entry.Path == nil {
			entry.Path = domain.Polygon{}
		}
		out = append(out, entry.Path)
	}
	return out
}

func (e *MapEditor) styleLocked(id PolygonID) ports.OverlayStyle {
	editing := e.session.Editing()
	sel, ok := e.session.Selected()
	return ports.OverlayStyle{
		Editable:  editing,
		Draggable: editing,
		Selected:  ok && sel == id,
	}
}

func (e *MapEditor) restyleLocked() {
	for id, ov := range e.overlays {
		ov.SetStyle(e.styleLocked(id))
	}
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
