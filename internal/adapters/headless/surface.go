// Package headless provides an in-process map surface. It renders nothing;
// it records overlays, viewport changes and drawing state so that the editor
// can be driven from a terminal or a test.
package headless

import (
	"errors"
	"sync"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/core/ports"
)

// ErrPositionUnavailable is reported when no position has been configured.
var ErrPositionUnavailable = errors.New("position unavailable")

// Option configures a Surface.
type Option func(*Surface)

// WithPosition makes WatchPosition succeed with c.
func WithPosition(c domain.Coordinate) Option {
	return func(s *Surface) {
		s.position = &c
		s.positionErr = nil
	}
}

// WithPositionError makes WatchPosition fail with err.
func WithPositionError(err error) Option {
	return func(s *Surface) {
		s.position = nil
		s.positionErr = err
	}
}

// Surface implements ports.MapProvider.
type Surface struct {
	mu          sync.Mutex
	overlays    []*Overlay
	center      *domain.Coordinate
	bounds      *domain.Bounds
	drawing     bool
	position    *domain.Coordinate
	positionErr error
	positionReq int
}

// New creates a surface. Without options geolocation fails with
// ErrPositionUnavailable.
func New(opts ...Option) *Surface {
	s := &Surface{positionErr: ErrPositionUnavailable}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ ports.MapProvider = (*Surface)(nil)

func (s *Surface) CreateOverlay(path domain.Polygon, style ports.OverlayStyle) ports.Overlay {
	return s.add(path, style)
}

// Draw simulates the drawing tool finishing a shape and returns the
// drawing-layer overlay that the tool hands over.
func (s *Surface) Draw(path domain.Polygon) *Overlay {
	return s.add(path, ports.OverlayStyle{Editable: true})
}

func (s *Surface) add(path domain.Polygon, style ports.OverlayStyle) *Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	ov := &Overlay{surface: s, path: path.Clone(), style: style}
	s.overlays = append(s.overlays, ov)
	return ov
}

func (s *Surface) FitBounds(b domain.Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = &b
	c := b.Center()
	s.center = &c
}

func (s *Surface) SetCenter(c domain.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = &c
}

func (s *Surface) SetDrawingEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = enabled
}

// WatchPosition answers synchronously.
func (s *Surface) WatchPosition(onSuccess func(domain.Coordinate), onError func(error)) {
	s.mu.Lock()
	s.positionReq++
	pos, err := s.position, s.positionErr
	s.mu.Unlock()

	if pos != nil {
		onSuccess(*pos)
		return
	}
	onError(err)
}

// Overlays returns the overlays currently on the surface, in creation order.
func (s *Surface) Overlays() []*Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Overlay, len(s.overlays))
	copy(out, s.overlays)
	return out
}

// Center returns the current viewport centre, if one was set.
func (s *Surface) Center() (domain.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.center == nil {
		return domain.Coordinate{}, false
	}
	return *s.center, true
}

// Bounds returns the last fitted bounds, if any.
func (s *Surface) Bounds() (domain.Bounds, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bounds == nil {
		return domain.Bounds{}, false
	}
	return *s.bounds, true
}

// DrawingEnabled reports whether the drawing tool is on.
func (s *Surface) DrawingEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawing
}

// PositionRequests counts WatchPosition calls.
func (s *Surface) PositionRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionReq
}

func (s *Surface) remove(ov *Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.overlays {
		if o == ov {
			s.overlays = append(s.overlays[:i], s.overlays[i+1:]...)
			return
		}
	}
}

// Overlay implements ports.Overlay.
type Overlay struct {
	surface *Surface

	mu      sync.Mutex
	path    domain.Polygon
	style   ports.OverlayStyle
	removed bool
}

func (o *Overlay) Path() domain.Polygon {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.path.Clone()
}

func (o *Overlay) SetPath(path domain.Polygon) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.path = path.Clone()
}

func (o *Overlay) SetStyle(style ports.OverlayStyle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.style = style
}

func (o *Overlay) Remove() {
	o.mu.Lock()
	if o.removed {
		o.mu.Unlock()
		return
	}
	o.removed = true
	o.mu.Unlock()
	o.surface.remove(o)
}

// Style returns the overlay's current style.
func (o *Overlay) Style() ports.OverlayStyle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.style
}

// Removed reports whether the overlay has been taken off the surface.
func (o *Overlay) Removed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.removed
}

// DragVertex moves vertex i the way a user dragging its handle would. It is
// a no-op unless the overlay is editable.
func (o *Overlay) DragVertex(i int, to domain.Coordinate) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.style.Editable || i < 0 || i >= len(o.path) {
		return false
	}
	o.path[i] = to
	return true
}
