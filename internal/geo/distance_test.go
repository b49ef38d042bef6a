package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/carless/internal/geo"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	p := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	assert.Zero(t, geo.Distance(p, p))
}

func TestDistance_KnownPair(t *testing.T) {
	// San Francisco to Los Angeles is roughly 559 km.
	sf := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	la := geo.Point{Latitude: 34.0522, Longitude: -118.2437}

	assert.InDelta(t, 559_000, geo.Distance(sf, la), 2_000)
}

func TestOffset_RoundTrips(t *testing.T) {
	origin := geo.Point{Latitude: 40.0, Longitude: -75.0}
	for _, m := range []float64{1, 120, 350, 10_000} {
		assert.InDelta(t, m, geo.Distance(origin, geo.Offset(origin, m)), 1e-6*m+1e-6)
	}
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, geo.Point{Latitude: 90, Longitude: 180}.Valid())
	assert.False(t, geo.Point{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, geo.Point{Latitude: 0, Longitude: -181}.Valid())
}
