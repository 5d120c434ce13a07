package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// Ring converts a path into a closed orb ring (lon/lat order).
func Ring(p domain.Polygon) orb.Ring {
	ring := make(orb.Ring, 0, len(p)+1)
	for _, c := range p {
		ring = append(ring, orb.Point{c.Lng, c.Lat})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// Area returns the geodesic area of p in square meters. Paths with fewer
// than three points have no area.
func Area(p domain.Polygon) float64 {
	if len(p) < 3 {
		return 0
	}
	return math.Abs(geo.Area(Ring(p)))
}

// TotalArea sums the area of every polygon in the collection.
func TotalArea(polys []domain.Polygon) float64 {
	var total float64
	for _, p := range polys {
		total += Area(p)
	}
	return total
}

// FeatureCollection renders a land's polygons as GeoJSON, one feature per
// polygon carrying its index and area.
func FeatureCollection(land *domain.Land) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, p := range land.Polygons {
		f := geojson.NewFeature(orb.Polygon{Ring(p)})
		f.Properties["land_id"] = land.ID
		f.Properties["index"] = i
		f.Properties["area_m2"] = Area(p)
		fc.Append(f)
	}
	return fc
}
