package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/householdpro/backend/internal/geocode"
)

var (
	mumbai = geocode.Point{Lat: 19.0760, Lon: 72.8777}
	pune   = geocode.Point{Lat: 18.5204, Lon: 73.8567}
)

func TestHaversineKnownDistance(t *testing.T) {
	d := Haversine{}.Kilometers(mumbai, pune)
	assert.InDelta(t, 120.15, d, 0.5)
}

func TestGeodesicMatchesHaversine(t *testing.T) {
	h := Haversine{}.Kilometers(mumbai, pune)
	g := Geodesic{}.Kilometers(mumbai, pune)
	assert.InDelta(t, h, g, 0.01)
}

func TestSamePointIsZero(t *testing.T) {
	for _, est := range []Estimator{Geodesic{}, Haversine{}} {
		assert.InDelta(t, 0, est.Kilometers(pune, pune), 1e-9)
	}
}

func TestAntipodesStayFinite(t *testing.T) {
	a := geocode.Point{Lat: 0, Lon: 0}
	b := geocode.Point{Lat: 0, Lon: 180}
	d := Haversine{}.Kilometers(a, b)
	assert.InDelta(t, 3.14159265*EarthRadiusKm, d, 1)
}

func TestNewBackends(t *testing.T) {
	est, err := New("")
	require.NoError(t, err)
	assert.IsType(t, Geodesic{}, est)

	est, err = New("Haversine")
	require.NoError(t, err)
	assert.IsType(t, Haversine{}, est)

	_, err = New("manhattan")
	assert.Error(t, err)
}
