package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// milesPerDegreeLat is the haversine length of one degree of latitude.
const milesPerDegreeLat = EarthRadiusMiles * math.Pi / 180

var (
	newYork     = Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	losAngeles  = Coordinate{Latitude: 34.0522, Longitude: -118.2437}
	london      = Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	sydney      = Coordinate{Latitude: -33.8688, Longitude: 151.2093}
	fijiWest    = Coordinate{Latitude: -17.0, Longitude: 179.9}
	fijiEast    = Coordinate{Latitude: -17.0, Longitude: -179.9}
	northPole   = Coordinate{Latitude: 90, Longitude: 0}
	southPole   = Coordinate{Latitude: -90, Longitude: 0}
	testSamples = []Coordinate{newYork, losAngeles, london, sydney, fijiWest, fijiEast, northPole, southPole}
)

func TestDistanceMiles_IdenticalPointsIsZero(t *testing.T) {
	for _, p := range testSamples {
		assert.Zero(t, DistanceMiles(p, p), "distance from %s to itself", p)
	}
}

func TestDistanceMiles_Symmetric(t *testing.T) {
	for _, a := range testSamples {
		for _, b := range testSamples {
			assert.InDelta(t, DistanceMiles(a, b), DistanceMiles(b, a), 1e-9, "%s <-> %s", a, b)
		}
	}
}

func TestDistanceMiles_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Coordinate
		expected float64
		delta    float64
	}{
		{"new york to los angeles", newYork, losAngeles, 2445, 5},
		{"new york to london", newYork, london, 3461, 5},
		{"one degree of latitude", Coordinate{Latitude: 10}, Coordinate{Latitude: 11}, milesPerDegreeLat, 1e-6},
		{"antipodal poles", northPole, southPole, math.Pi * EarthRadiusMiles, 1e-6},
		{"antipodal equator", Coordinate{Longitude: 0}, Coordinate{Longitude: 180}, math.Pi * EarthRadiusMiles, 1e-6},
		{"across the date line", fijiWest, fijiEast, 13.2, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistanceMiles(tt.a, tt.b)
			assert.False(t, math.IsNaN(d))
			assert.InDelta(t, tt.expected, d, tt.delta)
		})
	}
}

func TestWithinRadius_MonotonicInRadius(t *testing.T) {
	center := newYork
	radii := []float64{0, 1, 5, 10, 100, 1000, 2500, 5000, 13000}

	for _, p := range testSamples {
		included := false
		for _, r := range radii {
			in := WithinRadius(center, p, r)
			if included {
				assert.True(t, in, "%s dropped when radius grew to %v", p, r)
			}
			included = included || in
		}
	}
}

func TestWithinRadius_BoundaryIsInclusive(t *testing.T) {
	a := Coordinate{Latitude: 10}
	b := Coordinate{Latitude: 11}
	d := DistanceMiles(a, b)

	assert.True(t, WithinRadius(a, b, d))
	assert.False(t, WithinRadius(a, b, d-1e-9))
}

func TestFilterWithinRadius_PreservesOrder(t *testing.T) {
	center := Coordinate{Latitude: 40.0, Longitude: -75.0}
	fiveMiles := Coordinate{Latitude: 40.0 + 5/milesPerDegreeLat, Longitude: -75.0}
	fifteenMiles := Coordinate{Latitude: 40.0 - 15/milesPerDegreeLat, Longitude: -75.0}
	nineMiles := Coordinate{Latitude: 40.0 - 9/milesPerDegreeLat, Longitude: -75.0}

	deals := []Deal{
		{ID: "a", Location: nineMiles},
		{ID: "b", Location: fifteenMiles},
		{ID: "c", Location: center},
		{ID: "d", Location: fiveMiles},
	}

	got := FilterWithinRadius(deals, center, NearbyRadiusMiles)

	ids := make([]string, 0, len(got))
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "c", "d"}, ids)
}

func TestFilterWithinRadius_Empty(t *testing.T) {
	assert.Empty(t, FilterWithinRadius(nil, newYork, NearbyRadiusMiles))
}
