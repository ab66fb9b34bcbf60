package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/geotag"
	"github.com/couchcryptid/deal-discovery/internal/geotag/exiftest"
	"github.com/couchcryptid/deal-discovery/internal/observability"
	"github.com/couchcryptid/deal-discovery/internal/ocr"
	"github.com/couchcryptid/deal-discovery/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testFallback = domain.Coordinate{Latitude: 37.89197, Longitude: -76.44494}
	testNow      = time.Date(2024, 11, 19, 20, 0, 0, 0, time.UTC)
)

// --- mocks ---

type putCall struct {
	key         string
	contentType string
	size        int
}

type mockStore struct {
	calls []putCall
	err   error
}

func (m *mockStore) Put(_ context.Context, key string, data []byte, contentType string) (domain.ImageRef, error) {
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, size: len(data)})
	if m.err != nil {
		return domain.ImageRef{}, m.err
	}
	return domain.ImageRef{Bucket: "deal-photos", Key: key}, nil
}

type mockOCR struct {
	detections []domain.TextDetection
	err        error
	calls      int
}

func (m *mockOCR) DetectText(_ context.Context, _ domain.ImageRef) ([]domain.TextDetection, error) {
	m.calls++
	return m.detections, m.err
}

type mockPublisher struct {
	published []domain.EnrichmentResult
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, r domain.EnrichmentResult) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, r)
	return nil
}

type harness struct {
	store     *mockStore
	ocr       *mockOCR
	publisher *mockPublisher
	metrics   *observability.Metrics
	pipeline  *pipeline.Pipeline
}

func newHarness(opts ...pipeline.Option) *harness {
	h := &harness{
		store: &mockStore{},
		ocr: &mockOCR{detections: []domain.TextDetection{
			{Granularity: domain.GranularityLine, Text: "Joe's Pizza"},
			{Granularity: domain.GranularityWord, Text: "Joe's"},
			{Granularity: domain.GranularityLine, Text: "$5 slices"},
		}},
		publisher: &mockPublisher{},
		metrics:   observability.NewMetricsForTesting(),
	}
	base := []pipeline.Option{
		pipeline.WithClock(clockwork.NewFakeClockAt(testNow)),
		pipeline.WithIDGenerator(func() string { return "photo-1" }),
	}
	h.pipeline = pipeline.New(
		h.store,
		geotag.NewExtractor(testFallback),
		ocr.NewAdapter(h.ocr),
		h.publisher,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		h.metrics,
		append(base, opts...)...,
	)
	return h
}

// --- tests ---

func TestProcess_GeotaggedPhoto(t *testing.T) {
	h := newHarness()
	data := exiftest.GPS(40.7128, -74.0060)

	result, err := h.pipeline.Process(context.Background(), data, nil)
	require.NoError(t, err)

	assert.Equal(t, "photo-1", result.PhotoID)
	assert.Equal(t, "photos/photo-1.jpg", result.PhotoKey)
	assert.InDelta(t, 40.7128, result.Location.Latitude, 1e-6)
	assert.InDelta(t, -74.0060, result.Location.Longitude, 1e-6)
	assert.Equal(t, domain.LocationGeotag, result.LocationSource)
	assert.Equal(t, "Joe's Pizza $5 slices", result.DetectedText)
	assert.Equal(t, testNow, result.Timestamp)

	require.Len(t, h.publisher.published, 1)
	if diff := cmp.Diff(result, h.publisher.published[0]); diff != "" {
		t.Errorf("published result mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, h.store.calls, 1)
	assert.Equal(t, putCall{key: "photos/photo-1.jpg", contentType: "image/jpeg", size: len(data)}, h.store.calls[0])
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.PhotosEnriched.WithLabelValues("geotag")), 0)
}

func TestProcess_NoGeotagUsesFallback(t *testing.T) {
	h := newHarness()

	result, err := h.pipeline.Process(context.Background(), []byte("\xFF\xD8\xFF\xE0 plain jpeg"), nil)
	require.NoError(t, err)

	assert.Equal(t, testFallback, result.Location)
	assert.Equal(t, domain.LocationFallback, result.LocationSource)
	require.Len(t, h.publisher.published, 1)
	assert.Equal(t, testFallback, h.publisher.published[0].Location)
}

func TestProcess_HintBeatsFallback(t *testing.T) {
	h := newHarness()
	hint := &domain.Coordinate{Latitude: 34.0522, Longitude: -118.2437}

	result, err := h.pipeline.Process(context.Background(), []byte("no exif"), hint)
	require.NoError(t, err)

	assert.Equal(t, *hint, result.Location)
	assert.Equal(t, domain.LocationHint, result.LocationSource)
}

func TestProcess_GeotagBeatsHint(t *testing.T) {
	h := newHarness()
	hint := &domain.Coordinate{Latitude: 34.0522, Longitude: -118.2437}

	result, err := h.pipeline.Process(context.Background(), exiftest.GPS(40.7128, -74.0060), hint)
	require.NoError(t, err)

	assert.Equal(t, domain.LocationGeotag, result.LocationSource)
	assert.InDelta(t, 40.7128, result.Location.Latitude, 1e-6)
}

func TestProcess_NoLinesPublishesEmptyText(t *testing.T) {
	h := newHarness()
	h.ocr.detections = []domain.TextDetection{{Granularity: domain.GranularityWord, Text: "lonely"}}

	result, err := h.pipeline.Process(context.Background(), []byte("photo"), nil)
	require.NoError(t, err)
	assert.Empty(t, result.DetectedText)
	require.Len(t, h.publisher.published, 1)
}

func TestProcess_PNGKeepsExtension(t *testing.T) {
	h := newHarness()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	result, err := h.pipeline.Process(context.Background(), png, nil)
	require.NoError(t, err)
	assert.Equal(t, "photos/photo-1.png", result.PhotoKey)
	assert.Equal(t, "image/png", h.store.calls[0].contentType)
}

func TestProcess_EmptyPhoto(t *testing.T) {
	h := newHarness()

	_, err := h.pipeline.Process(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindBadInput))
	assert.ErrorIs(t, err, pipeline.ErrEmptyPhoto)
	assert.Empty(t, h.store.calls, "nothing stored for rejected input")
	assert.Empty(t, h.publisher.published)
}

func TestProcess_OversizedPhoto(t *testing.T) {
	h := newHarness(pipeline.WithMaxPhotoBytes(4))

	_, err := h.pipeline.Process(context.Background(), []byte("12345"), nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindBadInput))
	assert.Empty(t, h.store.calls)
}

func TestProcess_FailuresAreTerminal(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name         string
		setup        func(h *harness)
		expectedKind domain.ErrorKind
		expectedPuts int
		expectedOCR  int
	}{
		{
			name:         "storage",
			setup:        func(h *harness) { h.store.err = cause },
			expectedKind: domain.KindStorageUnavailable,
			expectedPuts: 1,
			expectedOCR:  0,
		},
		{
			name:         "detection",
			setup:        func(h *harness) { h.ocr.err = cause },
			expectedKind: domain.KindDetectionFailed,
			expectedPuts: 1,
			expectedOCR:  1,
		},
		{
			name:         "publish",
			setup:        func(h *harness) { h.publisher.err = cause },
			expectedKind: domain.KindQueuePublishFailed,
			expectedPuts: 1,
			expectedOCR:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			result, err := h.pipeline.Process(context.Background(), []byte("photo"), nil)
			require.Error(t, err)
			assert.Equal(t, tt.expectedKind, domain.KindOf(err))
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, domain.EnrichmentResult{}, result)
			assert.Len(t, h.store.calls, tt.expectedPuts, "no retry and no rollback")
			assert.Equal(t, tt.expectedOCR, h.ocr.calls)
			assert.Empty(t, h.publisher.published)
			assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.PhotoFailures.WithLabelValues(string(tt.expectedKind))), 0)
		})
	}
}

func TestProcess_MintsNewIDPerRun(t *testing.T) {
	h := &harness{store: &mockStore{}, ocr: &mockOCR{}, publisher: &mockPublisher{}}
	p := pipeline.New(h.store, geotag.NewExtractor(testFallback), ocr.NewAdapter(h.ocr), h.publisher,
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	first, err := p.Process(context.Background(), []byte("photo"), nil)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), []byte("photo"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.PhotoID, second.PhotoID)
	assert.Len(t, first.PhotoID, 36)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "photos/abc.jpg", pipeline.StorageKey("abc", "image/jpeg"))
	assert.Equal(t, "photos/abc.png", pipeline.StorageKey("abc", "image/png"))
	assert.Equal(t, "photos/abc.jpg", pipeline.StorageKey("abc", "application/octet-stream"))
}
