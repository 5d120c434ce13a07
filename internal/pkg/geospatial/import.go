package geospatial

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// ParsePolygons reads polygons from a GeoJSON FeatureCollection, Feature or
// bare geometry. Only outer rings are kept and the closing point of each
// ring is dropped. Non-polygon geometries are skipped.
func ParsePolygons(data []byte) ([]domain.Polygon, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	case "":
		return nil, fmt.Errorf("geojson: missing type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	out := []domain.Polygon{}
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			if len(v) > 0 {
				out = append(out, fromRing(v[0]))
			}
		case orb.MultiPolygon:
			for _, p := range v {
				if len(p) > 0 {
					out = append(out, fromRing(p[0]))
				}
			}
		}
	}
	return out, nil
}

func fromRing(r orb.Ring) domain.Polygon {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		r = r[:len(r)-1]
	}
	p := make(domain.Polygon, len(r))
	for i, pt := range r {
		p[i] = domain.Coordinate{Lat: pt.Lat(), Lng: pt.Lon()}
	}
	return p
}
