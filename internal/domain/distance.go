package domain

import (
	"math"

	"github.com/samber/lo"
)

const (
	// EarthRadiusMiles is the mean Earth radius used for haversine distances.
	EarthRadiusMiles = 3959.0

	// NearbyRadiusMiles is the fixed radius for location-filtered listings.
	NearbyRadiusMiles = 10.0
)

// DistanceMiles returns the great-circle distance between a and b in miles.
func DistanceMiles(a, b Coordinate) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Rounding can push h a hair outside [0, 1] for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether point lies at most radiusMiles from center.
func WithinRadius(center, point Coordinate, radiusMiles float64) bool {
	return DistanceMiles(center, point) <= radiusMiles
}

// FilterWithinRadius keeps the deals located within radiusMiles of center,
// preserving their relative order.
func FilterWithinRadius(deals []Deal, center Coordinate, radiusMiles float64) []Deal {
	return lo.Filter(deals, func(d Deal, _ int) bool {
		return WithinRadius(center, d.Location, radiusMiles)
	})
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
