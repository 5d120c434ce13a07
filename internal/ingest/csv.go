// Package ingest reads land records from CSV exports for bulk loading.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samirrijal/landplot/internal/core/domain"
	"github.com/samirrijal/landplot/internal/pkg/geospatial"
)

// RowError describes a skipped CSV row. Line counts the header as line 1.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

// ReadLands parses a CSV whose header uses the API field names: title,
// name, location, size, owner, landType, marketValue, notes and polygons.
// Only title is required. The polygons cell holds either the API's JSON
// polygon array or a GeoJSON document. Rows that cannot be read are skipped
// and reported.
func ReadLands(r io.Reader) ([]domain.Land, []RowError, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols["title"]; !ok {
		return nil, nil, errors.New("header has no title column")
	}

	var (
		lands   []domain.Land
		skipped []RowError
	)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}

		l := domain.Land{
			Title:       getField(record, cols, "title"),
			Name:        getField(record, cols, "name"),
			Location:    getField(record, cols, "location"),
			Size:        getField(record, cols, "size"),
			Owner:       getField(record, cols, "owner"),
			LandType:    getField(record, cols, "landType"),
			MarketValue: getField(record, cols, "marketValue"),
			Notes:       getField(record, cols, "notes"),
		}
		if l.Title == "" {
			skipped = append(skipped, RowError{Line: line, Err: errors.New("empty title")})
			continue
		}
		l.Polygons, err = parsePolygonsCell(getField(record, cols, "polygons"))
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}
		lands = append(lands, l)
	}
	return lands, skipped, nil
}

func parsePolygonsCell(cell string) ([]domain.Polygon, error) {
	if cell == "" {
		return []domain.Polygon{}, nil
	}
	var (
		polys []domain.Polygon
		err   error
	)
	if strings.HasPrefix(cell, "[") {
		err = json.Unmarshal([]byte(cell), &polys)
	} else {
		polys, err = geospatial.ParsePolygons([]byte(cell))
	}
	if err != nil {
		return nil, fmt.Errorf("polygons: %w", err)
	}
	for i, p := range polys {
		for _, c := range p {
			if !c.Valid() {
				return nil, fmt.Errorf("polygon %d: coordinate %v out of range", i, c)
			}
		}
	}
	if polys == nil {
		polys = []domain.Polygon{}
	}
	return polys, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.TrimSpace(col)] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
