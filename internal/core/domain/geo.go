package domain

// Coordinate is a WGS 84 point as exchanged with the map surface and the
// remote store. Values are accepted as given; no normalization is applied.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within latitude and longitude range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Polygon is an ordered ring of coordinates. The ring is open: the last point
// is not a repeat of the first.
type Polygon []Coordinate

// Clone returns an independent copy of the path.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Equal reports whether two paths hold the same points in the same order.
func (p Polygon) Equal(o Polygon) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Bounds returns the bounding box of the path. ok is false for an empty path.
func (p Polygon) Bounds() (b Bounds, ok bool) {
	if len(p) == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinLat: p[0].Lat, MinLng: p[0].Lng, MaxLat: p[0].Lat, MaxLng: p[0].Lng}
	for _, c := range p[1:] {
		b = b.Extend(c)
	}
	return b, true
}

// ClonePolygons deep-copies a polygon collection.
func ClonePolygons(polys []Polygon) []Polygon {
	out := make([]Polygon, len(polys))
	for i, p := range polys {
		out[i] = p.Clone()
		if out[i] == nil {
			out[i] = Polygon{}
		}
	}
	return out
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Extend grows the box to include c.
func (b Bounds) Extend(c Coordinate) Bounds {
	if c.Lat < b.MinLat {
		b.MinLat = c.Lat
	}
	if c.Lat > b.MaxLat {
		b.MaxLat = c.Lat
	}
	if c.Lng < b.MinLng {
		b.MinLng = c.Lng
	}
	if c.Lng > b.MaxLng {
		b.MaxLng = c.Lng
	}
	return b
}

// Union returns the smallest box containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	b = b.Extend(Coordinate{Lat: o.MinLat, Lng: o.MinLng})
	return b.Extend(Coordinate{Lat: o.MaxLat, Lng: o.MaxLng})
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Coordinate {
	return Coordinate{Lat: (b.MinLat + b.MaxLat) / 2, Lng: (b.MinLng + b.MaxLng) / 2}
}
