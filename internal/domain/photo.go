package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// LocationSource records where an uploaded photo's coordinate came from.
type LocationSource string

const (
	LocationGeotag   LocationSource = "geotag"
	LocationHint     LocationSource = "hint"
	LocationFallback LocationSource = "fallback"
)

// UploadedPhoto is the transient input of one enrichment run.
type UploadedPhoto struct {
	ID   string
	Data []byte
	Hint *Coordinate // client-supplied coordinate, optional
}

// ImageRef points at a stored photo.
type ImageRef struct {
	Bucket string
	Key    string
}

// Granularity is the unit of an OCR detection.
type Granularity string

const (
	GranularityLine Granularity = "LINE"
	GranularityWord Granularity = "WORD"
)

// TextDetection is one detection returned by the OCR capability.
type TextDetection struct {
	Granularity Granularity
	Text        string
}

// EnrichmentResult holds the facts derived from one uploaded photo. It is
// built once per successful run and handed to the queue.
type EnrichmentResult struct {
	PhotoID        string
	PhotoKey       string
	Location       Coordinate
	LocationSource LocationSource
	DetectedText   string
	Timestamp      time.Time
}

// ProcessingMessage is the queued wire form of an EnrichmentResult.
type ProcessingMessage struct {
	PhotoID        string         `json:"photoId"`
	PhotoKey       string         `json:"photoKey"`
	Location       Coordinate     `json:"location"`
	LocationSource LocationSource `json:"locationSource"`
	DetectedText   string         `json:"detectedText"`
	Timestamp      string         `json:"timestamp"`
}

// TimestampLayout is the ISO-8601 form used for message timestamps
// (millisecond precision, always UTC, e.g. "2024-11-19T20:00:00.000Z").
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Message converts the result to its wire form.
func (r EnrichmentResult) Message() ProcessingMessage {
	return ProcessingMessage{
		PhotoID:        r.PhotoID,
		PhotoKey:       r.PhotoKey,
		Location:       r.Location,
		LocationSource: r.LocationSource,
		DetectedText:   r.DetectedText,
		Timestamp:      r.Timestamp.UTC().Format(TimestampLayout),
	}
}

// MarshalMessage serializes the result's wire form as JSON.
func MarshalMessage(r EnrichmentResult) ([]byte, error) {
	data, err := json.Marshal(r.Message())
	if err != nil {
		return nil, fmt.Errorf("serialize processing message: %w", err)
	}
	return data, nil
}
