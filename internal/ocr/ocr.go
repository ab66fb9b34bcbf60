// Package ocr reduces raw text detections to the single string stored with a
// deal photo.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/deal-discovery/internal/domain"
)

// Detector is the OCR capability: it returns every detection found in a stored image.
type Detector interface {
	DetectText(ctx context.Context, image domain.ImageRef) ([]domain.TextDetection, error)
}

// Adapter wraps a Detector and keeps only line-granularity text.
type Adapter struct {
	detector Detector
}

// NewAdapter creates an Adapter over the given detector.
func NewAdapter(detector Detector) *Adapter {
	return &Adapter{detector: detector}
}

// DetectText returns the joined line text of the image. An image with no
// lines yields "" and no error; a detector failure is returned as-is.
func (a *Adapter) DetectText(ctx context.Context, image domain.ImageRef) (string, error) {
	detections, err := a.detector.DetectText(ctx, image)
	if err != nil {
		return "", fmt.Errorf("detect text in %s: %w", image.Key, err)
	}
	return JoinLines(detections), nil
}

// JoinLines joins the text of line detections with single spaces, in order.
// Word detections duplicate the lines they belong to and are dropped.
func JoinLines(detections []domain.TextDetection) string {
	lines := make([]string, 0, len(detections))
	for _, d := range detections {
		if d.Granularity != domain.GranularityLine {
			continue
		}
		lines = append(lines, d.Text)
	}
	return strings.Join(lines, " ")
}
