package geospatial

import (
	"encoding/json"
	"testing"

	"github.com/samirrijal/landplot/internal/core/domain"
)

func square(size float64) domain.Polygon {
	return domain.Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: size},
		{Lat: size, Lng: size},
		{Lat: size, Lng: 0},
	}
}

func TestArea_Square(t *testing.T) {
	// 0.01° x 0.01° at the equator is roughly 1113 m x 1113 m.
	a := Area(square(0.01))
	if a < 1.2e6 || a > 1.28e6 {
		t.Errorf("expected ~1.24e6 m², got %f", a)
	}
}

func TestArea_WindingIndependent(t *testing.T) {
	p := square(0.01)
	rev := make(domain.Polygon, len(p))
	for i := range p {
		rev[i] = p[len(p)-1-i]
	}
	if a, b := Area(p), Area(rev); a != b {
		t.Errorf("expected equal areas, got %f and %f", a, b)
	}
}

func TestArea_Degenerate(t *testing.T) {
	if a := Area(domain.Polygon{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}); a != 0 {
		t.Errorf("expected 0 for two points, got %f", a)
	}
}

func TestRing_ClosesOnce(t *testing.T) {
	r := Ring(square(1))
	if len(r) != 5 {
		t.Fatalf("expected 5 points, got %d", len(r))
	}
	if r[0] != r[4] {
		t.Error("ring not closed")
	}

	closed := append(square(1), domain.Coordinate{Lat: 0, Lng: 0})
	if got := len(Ring(closed)); got != 5 {
		t.Errorf("already closed path should not gain a point, got %d", got)
	}
}

func TestPerimeter(t *testing.T) {
	p := Perimeter(square(0.01))
	if p < 4400 || p > 4500 {
		t.Errorf("expected ~4450 m, got %f", p)
	}
	if Perimeter(domain.Polygon{{Lat: 1, Lng: 1}}) != 0 {
		t.Error("single point should have zero perimeter")
	}
}

func TestFeatureCollection(t *testing.T) {
	land := &domain.Land{ID: 7, Polygons: []domain.Polygon{square(0.01), square(0.02)}}
	fc := FeatureCollection(land)
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}

	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %s", decoded.Type)
	}
	if decoded.Features[1].Geometry.Type != "Polygon" {
		t.Errorf("expected Polygon geometry, got %s", decoded.Features[1].Geometry.Type)
	}
	if decoded.Features[1].Properties["index"] != float64(1) {
		t.Errorf("expected index 1, got %v", decoded.Features[1].Properties["index"])
	}
}
