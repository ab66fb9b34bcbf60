// Package geotag reads the capture location embedded in a photo's EXIF GPS
// block and resolves the coordinate an upload should be filed under.
package geotag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNoGeotag is returned by Read when the photo carries no usable GPS fields.
var ErrNoGeotag = errors.New("no geotag")

// Extractor resolves photo coordinates with the precedence
// geotag > client hint > configured fallback. It never fails.
type Extractor struct {
	fallback domain.Coordinate
}

// NewExtractor creates an Extractor that falls back to the given coordinate.
func NewExtractor(fallback domain.Coordinate) *Extractor {
	return &Extractor{fallback: fallback}
}

// Fallback returns the configured default coordinate.
func (e *Extractor) Fallback() domain.Coordinate {
	return e.fallback
}

// Extract returns the coordinate for a photo and where it came from. A hint
// outside the valid coordinate range is ignored.
func (e *Extractor) Extract(data []byte, hint *domain.Coordinate) (domain.Coordinate, domain.LocationSource) {
	if c, err := Read(data); err == nil {
		return c, domain.LocationGeotag
	}
	if hint != nil && hint.Valid() {
		return *hint, domain.LocationHint
	}
	return e.fallback, domain.LocationFallback
}

// Read parses the GPS latitude/longitude from the photo's EXIF block and
// applies the hemisphere references. Missing, corrupt, or out-of-range
// fields yield an error wrapping ErrNoGeotag.
func Read(data []byte) (domain.Coordinate, error) {
	if len(data) == 0 {
		return domain.Coordinate{}, ErrNoGeotag
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: decode exif: %v", ErrNoGeotag, err)
	}

	fields, err := readGPSFields(x)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: %v", ErrNoGeotag, err)
	}

	c := fields.coordinate()
	if !c.Valid() {
		return domain.Coordinate{}, fmt.Errorf("%w: out of range %s", ErrNoGeotag, c)
	}
	return c, nil
}

// gpsFields holds the unsigned magnitudes and hemisphere references as stored.
type gpsFields struct {
	latitude     float64
	longitude    float64
	latitudeRef  string // "N" or "S", may be empty
	longitudeRef string // "E" or "W", may be empty
}

// coordinate applies the hemisphere sign correction.
func (g gpsFields) coordinate() domain.Coordinate {
	c := domain.Coordinate{Latitude: g.latitude, Longitude: g.longitude}
	if strings.EqualFold(strings.TrimSpace(g.latitudeRef), "S") {
		c.Latitude = -c.Latitude
	}
	if strings.EqualFold(strings.TrimSpace(g.longitudeRef), "W") {
		c.Longitude = -c.Longitude
	}
	return c
}

func readGPSFields(x *exif.Exif) (gpsFields, error) {
	latTag, err := x.Get(exif.GPSLatitude)
	if err != nil {
		return gpsFields{}, fmt.Errorf("latitude: %w", err)
	}
	lonTag, err := x.Get(exif.GPSLongitude)
	if err != nil {
		return gpsFields{}, fmt.Errorf("longitude: %w", err)
	}

	lat, err := decimalDegrees(latTag)
	if err != nil {
		return gpsFields{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := decimalDegrees(lonTag)
	if err != nil {
		return gpsFields{}, fmt.Errorf("longitude: %w", err)
	}

	return gpsFields{
		latitude:     lat,
		longitude:    lon,
		latitudeRef:  optionalString(x, exif.GPSLatitudeRef),
		longitudeRef: optionalString(x, exif.GPSLongitudeRef),
	}, nil
}

// decimalDegrees folds a degrees[, minutes[, seconds]] rational triple into
// decimal degrees.
func decimalDegrees(tag *tiff.Tag) (float64, error) {
	if tag.Count == 0 {
		return 0, errors.New("empty value")
	}

	divisors := []float64{1, 60, 3600}
	n := min(int(tag.Count), len(divisors))

	var total float64
	for i := range n {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, err
		}
		if den == 0 {
			return 0, fmt.Errorf("zero denominator at component %d", i)
		}
		total += float64(num) / float64(den) / divisors[i]
	}
	return total, nil
}

func optionalString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}
