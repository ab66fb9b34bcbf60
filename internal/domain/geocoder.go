package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Coordinate Coordinate
	Label      string  // full display label, e.g. "123 Main St, Springfield, Illinois, United States"
	PlaceName  string  // short name of the matched feature
	Confidence float64 // 0.0–1.0 provider relevance score
}

// Empty reports whether the provider returned no match.
func (r GeocodingResult) Empty() bool {
	return r.Label == ""
}

// ForwardGeocoder resolves free-text addresses to coordinates.
type ForwardGeocoder interface {
	ForwardGeocode(ctx context.Context, address string) (GeocodingResult, error)
}

// ReverseGeocoder resolves coordinates to place details.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinate) (GeocodingResult, error)
}

// Geocoder supports both directions.
type Geocoder interface {
	ForwardGeocoder
	ReverseGeocoder
}
