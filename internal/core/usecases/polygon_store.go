package usecases

import (
	"github.com/google/uuid"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// PolygonID identifies a polygon inside one editor for its whole lifetime.
// It is never sent to the remote store.
type PolygonID string

// PolygonEntry pairs a polygon with its identity.
type PolygonEntry struct {
	ID   PolygonID
	Path domain.Polygon
}

// PolygonStore is the ordered, in-memory polygon collection of a single land
// record. It is not safe for concurrent use; MapEditor serializes access.
type PolygonStore struct {
	items []PolygonEntry
	newID func() PolygonID
}

// NewPolygonStore returns an empty store.
func NewPolygonStore() *PolygonStore {
	return &PolygonStore{newID: func() PolygonID { return PolygonID(uuid.NewString()) }}
}

// Replace discards the current collection and hydrates it from polys,
// assigning fresh IDs in order.
func (s *PolygonStore) Replace(polys []domain.Polygon) []PolygonID {
	s.items = make([]PolygonEntry, 0, len(polys))
	ids := make([]PolygonID, 0, len(polys))
	for _, p := range polys {
		ids = append(ids, s.Append(p))
	}
	return ids
}

// Append adds a polygon at the end and returns its new ID.
func (s *PolygonStore) Append(path domain.Polygon) PolygonID {
	id := s.newID()
	s.items = append(s.items, PolygonEntry{ID: id, Path: path.Clone()})
	return id
}

// Get returns a copy of the polygon's path.
func (s *PolygonStore) Get(id PolygonID) (domain.Polygon, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return s.items[i].Path.Clone(), true
}

// Set overwrites the path of an existing polygon.
func (s *PolygonStore) Set(id PolygonID, path domain.Polygon) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.items[i].Path = path.Clone()
	return true
}

// Remove deletes a polygon, preserving the relative order of the rest.
func (s *PolygonStore) Remove(id PolygonID) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// IndexOf returns the current position of id, or -1.
func (s *PolygonStore) IndexOf(id PolygonID) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of polygons.
func (s *PolygonStore) Len() int { return len(s.items) }

// IDs returns the polygon IDs in order.
func (s *PolygonStore) IDs() []PolygonID {
	ids := make([]PolygonID, len(s.items))
	for i := range s.items {
		ids[i] = s.items[i].ID
	}
	return ids
}

// Entries returns a deep copy of the collection.
func (s *PolygonStore) Entries() []PolygonEntry {
	out := make([]PolygonEntry, len(s.items))
	for i, e := range s.items {
		out[i] = PolygonEntry{ID: e.ID, Path: e.Path.Clone()}
	}
	return out
}

// Snapshot returns the paths in order, skipping exclude if it is non-empty.
func (s *PolygonStore) Snapshot(exclude PolygonID) []domain.Polygon {
	out := make([]domain.Polygon, 0, len(s.items))
	for _, e := range s.items {
		if exclude != "" && e.ID == exclude {
			continue
		}
		p := e.Path.Clone()
		if p == nil {
			p = domain.Polygon{}
		}
		out = append(out, p)
	}
	return out
}
