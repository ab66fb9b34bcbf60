// Package domain models advertised deals captured from user photos and the
// values that flow between the photo intake pipeline and the deal query engine.
//
// # Coordinates
//
// All coordinates are WGS-84 signed decimal degrees: latitude in [-90, 90]
// (negative is south), longitude in [-180, 180] (negative is west). Image
// geotags store unsigned magnitudes plus a hemisphere reference ("N"/"S",
// "E"/"W"); the sign is applied by the geotag extractor before a Coordinate
// is ever built.
//
// # Location precedence
//
// An uploaded photo's coordinate is resolved in this order:
//
//	geotag   the photo's own EXIF GPS block, when present and in range
//	hint     the coordinate the client sent with the upload, when in range
//	fallback the configured default coordinate
//
// The chosen source travels with the queued message as [LocationSource].
//
// # Distances
//
// Distances are great-circle miles from the haversine formula with an Earth
// radius of 3959 miles. Location-filtered listings use a fixed 10 mile radius.
//
// # Expiration
//
// A deal is active when its expiration is absent or strictly after the query
// time. Expiry is always derived from the stored instant at query time and is
// never persisted as a flag.
//
// # Address labels
//
// Listed deals carry a display address from reverse geocoding. When that call
// fails or exceeds its time bound the label falls back to the coordinate text
// "<lat>, <lng>" and the outcome is marked unresolved; a deal is never dropped
// because its address could not be resolved.
package domain
