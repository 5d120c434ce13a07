package ingest

import (
	"strings"
	"testing"

	"github.com/samirrijal/landplot/internal/core/domain"
)

func TestReadLands(t *testing.T) {
	doc := "\xef\xbb\xbftitle,owner,marketValue,polygons\n" +
		"North field,Ana,\"$12,000\",\"[[{\"\"lat\"\":43,\"\"lng\"\":-2},{\"\"lat\"\":43,\"\"lng\"\":-1.99},{\"\"lat\"\":43.01,\"\"lng\"\":-1.99}]]\"\n" +
		"River plot,Luis,50000,\"{\"\"type\"\":\"\"Polygon\"\",\"\"coordinates\"\":[[[1,2],[3,2],[3,4],[1,2]]]}\"\n" +
		",Nobody,1,\n" +
		"Bad shape,Ana,1,\"[[{\"\"lat\"\":95,\"\"lng\"\":0}]]\"\n" +
		"Hill,Ana,9000,\n"

	lands, skipped, err := ReadLands(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(lands) != 3 {
		t.Fatalf("expected 3 lands, got %d: %+v", len(lands), lands)
	}
	if lands[0].Title != "North field" || lands[0].MarketValue != "$12,000" || len(lands[0].Polygons) != 1 || len(lands[0].Polygons[0]) != 3 {
		t.Errorf("unexpected first land %+v", lands[0])
	}
	if got := lands[1].Polygons[0][0]; got != (domain.Coordinate{Lat: 2, Lng: 1}) {
		t.Errorf("expected GeoJSON cell in lat/lng order, got %v", got)
	}
	if lands[2].Polygons == nil || len(lands[2].Polygons) != 0 {
		t.Errorf("expected empty polygon collection, got %v", lands[2].Polygons)
	}

	if len(skipped) != 2 || skipped[0].Line != 4 || skipped[1].Line != 5 {
		t.Errorf("unexpected skipped rows %v", skipped)
	}
}

func TestReadLands_RequiresTitleColumn(t *testing.T) {
	if _, _, err := ReadLands(strings.NewReader("name,owner\nA,B\n")); err == nil {
		t.Error("expected error for missing title column")
	}
	if _, _, err := ReadLands(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}
