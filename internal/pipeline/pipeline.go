// Package pipeline runs the photo intake enrichment: persist the upload,
// resolve its location, read its text, and queue the result for cataloguing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ObjectStore writes photo bytes to durable storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (domain.ImageRef, error)
}

// Locator resolves the coordinate a photo is filed under. It never fails.
type Locator interface {
	Extract(data []byte, hint *domain.Coordinate) (domain.Coordinate, domain.LocationSource)
}

// TextDetector reads the text printed in a stored photo.
type TextDetector interface {
	DetectText(ctx context.Context, image domain.ImageRef) (string, error)
}

// Publisher hands an enrichment result to the processing queue.
type Publisher interface {
	Publish(ctx context.Context, result domain.EnrichmentResult) error
}

// ErrEmptyPhoto is returned when an upload carries no bytes.
var ErrEmptyPhoto = errors.New("photo is empty")

// Pipeline orchestrates one enrichment run per upload. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	store     ObjectStore
	locator   Locator
	detector  TextDetector
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	newID     func() string
	maxBytes  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for result timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithIDGenerator replaces the UUID generator used to mint photo ids.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// WithMaxPhotoBytes rejects uploads larger than n bytes. Zero disables the check.
func WithMaxPhotoBytes(n int) Option {
	return func(p *Pipeline) { p.maxBytes = n }
}

// New creates a Pipeline over the given collaborators.
func New(store ObjectStore, locator Locator, detector TextDetector, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		locator:   locator,
		detector:  detector,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.clock = domain.ClockOrReal(p.clock)
	return p
}

// Process runs validate, persist, locate, detect and publish for one upload
// and returns the queued result. The first failing step ends the run with a
// classified *domain.Error. Nothing is retried, and a stored photo is not
// removed when a later step fails.
func (p *Pipeline) Process(ctx context.Context, data []byte, hint *domain.Coordinate) (domain.EnrichmentResult, error) {
	start := p.clock.Now()
	p.metrics.PhotosReceived.Inc()

	result, err := p.process(ctx, data, hint)
	if err != nil {
		kind := domain.KindOf(err)
		p.metrics.PhotoFailures.WithLabelValues(string(kind)).Inc()
		p.logger.Error("photo enrichment failed", "photo_id", result.PhotoID, "kind", kind, "error", err)
		return domain.EnrichmentResult{}, err
	}

	p.metrics.PhotosEnriched.WithLabelValues(string(result.LocationSource)).Inc()
	p.metrics.PipelineDuration.Observe(p.clock.Since(start).Seconds())
	p.logger.Info("photo enriched",
		"photo_id", result.PhotoID,
		"photo_key", result.PhotoKey,
		"location_source", result.LocationSource,
		"text_length", len(result.DetectedText),
	)
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, data []byte, hint *domain.Coordinate) (domain.EnrichmentResult, error) {
	if len(data) == 0 {
		return domain.EnrichmentResult{}, domain.NewError(domain.KindBadInput, "validate photo", ErrEmptyPhoto)
	}
	if p.maxBytes > 0 && len(data) > p.maxBytes {
		return domain.EnrichmentResult{}, domain.NewError(domain.KindBadInput, "validate photo",
			fmt.Errorf("photo is %d bytes, limit is %d", len(data), p.maxBytes))
	}

	photo := domain.UploadedPhoto{ID: p.newID(), Data: data, Hint: hint}
	result := domain.EnrichmentResult{PhotoID: photo.ID}

	contentType := sniffContentType(photo.Data)
	key := StorageKey(photo.ID, contentType)
	ref, err := p.store.Put(ctx, key, photo.Data, contentType)
	if err != nil {
		return result, domain.NewError(domain.KindStorageUnavailable, "store photo", err)
	}
	result.PhotoKey = ref.Key

	result.Location, result.LocationSource = p.locator.Extract(photo.Data, photo.Hint)
	if result.LocationSource != domain.LocationGeotag {
		p.logger.Debug("photo has no geotag",
			"photo_id", photo.ID,
			"location_source", result.LocationSource,
			"lat", result.Location.Latitude,
			"lon", result.Location.Longitude,
		)
	}

	result.DetectedText, err = p.detector.DetectText(ctx, ref)
	if err != nil {
		return result, domain.NewError(domain.KindDetectionFailed, "detect text", err)
	}

	result.Timestamp = p.clock.Now().UTC()
	if err := p.publisher.Publish(ctx, result); err != nil {
		return result, domain.NewError(domain.KindQueuePublishFailed, "publish result", err)
	}
	return result, nil
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// StorageKey returns the object key for a photo: photos/<id>.<ext>.
func StorageKey(id, contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = "jpg"
	}
	return "photos/" + id + "." + ext
}

// sniffContentType detects the image type, defaulting to image/jpeg for
// anything that is not a recognised image.
func sniffContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if _, ok := extensions[ct]; ok && strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}
