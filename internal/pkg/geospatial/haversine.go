package geospatial

import (
	"math"

	"github.com/samirrijal/landplot/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Perimeter returns the length in meters of the closed boundary of p.
func Perimeter(p domain.Polygon) float64 {
	if len(p) < 2 {
		return 0
	}
	var total float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		total += Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
