package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("geocode not found")

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Point, string, float64, error)
}

// Resolver turns free-text locations into coordinates. Resolution is best effort:
// a false result means "unknown", never an error.
type Resolver interface {
	Resolve(ctx context.Context, text string) (Point, bool)
}

func BuildGeocodeQuery(country string, locality string) string {
	country = strings.TrimSpace(country)
	locality = strings.TrimSpace(locality)
	parts := []string{}
	if locality != "" {
		parts = append(parts, locality)
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

// GeocoderResolver adapts a Geocoder to the Resolver contract.
type GeocoderResolver struct {
	Geocoder      Geocoder
	Country       string
	MinConfidence float64
	Logger        zerolog.Logger
}

func (r GeocoderResolver) Resolve(ctx context.Context, text string) (Point, bool) {
	if strings.TrimSpace(text) == "" {
		return Point{}, false
	}
	p, _, confidence, err := r.Geocoder.Geocode(ctx, BuildGeocodeQuery(r.Country, text))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.Logger.Warn().Err(err).Str("query", text).Msg("geocode lookup failed")
		}
		return Point{}, false
	}
	if confidence < r.MinConfidence {
		return Point{}, false
	}
	return p, true
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, text string) (Point, bool) {
	for _, r := range c {
		if p, ok := r.Resolve(ctx, text); ok {
			return p, true
		}
	}
	return Point{}, false
}
