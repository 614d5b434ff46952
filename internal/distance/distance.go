// Package distance estimates distances between geographic points.
package distance

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/s2"

	"github.com/householdpro/backend/internal/geocode"
)

const EarthRadiusKm = 6371.0

// Estimator returns the non-negative distance in kilometers between two points.
type Estimator interface {
	Kilometers(a, b geocode.Point) float64
}

const (
	BackendGeodesic  = "geodesic"
	BackendHaversine = "haversine"
)

// New returns the estimator for the named backend. An empty name selects geodesic.
func New(backend string) (Estimator, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendGeodesic:
		return Geodesic{}, nil
	case BackendHaversine:
		return Haversine{}, nil
	default:
		return nil, fmt.Errorf("unknown distance backend %q", backend)
	}
}

// Geodesic measures the great-circle angle with the s2 geometry library.
type Geodesic struct{}

func (Geodesic) Kilometers(a, b geocode.Point) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return math.Abs(angle.Radians()) * EarthRadiusKm
}

type Haversine struct{}

func (Haversine) Kilometers(a, b geocode.Point) float64 {
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	lat1R := degreesToRadians(lat1)
	lat2R := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1R)*math.Cos(lat2R)
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
