package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/observability"
	"golang.org/x/sync/errgroup"
)

// DefaultAddressTimeout bounds each reverse-geocoding call.
const DefaultAddressTimeout = 5 * time.Second

// AddressEnricher resolves deal coordinates to display labels. Every call
// yields a label: when the geocoder fails, times out, or finds nothing, the
// label is the coordinate itself.
type AddressEnricher struct {
	geocoder domain.ReverseGeocoder
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAddressEnricher creates an enricher. A nil geocoder disables resolution
// and every outcome is a fallback with reason "disabled". A non-positive
// timeout means DefaultAddressTimeout.
func NewAddressEnricher(geocoder domain.ReverseGeocoder, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *AddressEnricher {
	if timeout <= 0 {
		timeout = DefaultAddressTimeout
	}
	return &AddressEnricher{
		geocoder: geocoder,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

type lookup struct {
	result domain.GeocodingResult
	err    error
}

// Resolve returns the address outcome for a single coordinate. It waits at
// most the configured timeout; a call still running after that is abandoned
// and its result discarded.
func (e *AddressEnricher) Resolve(ctx context.Context, c domain.Coordinate) domain.AddressOutcome {
	if e.geocoder == nil {
		return e.fallback(c, domain.FallbackDisabled, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan lookup, 1)
	go func() {
		res, err := e.geocoder.ReverseGeocode(ctx, c)
		done <- lookup{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return e.fallback(c, domain.FallbackTimeout, ctx.Err())
	case l := <-done:
		switch {
		case errors.Is(l.err, context.DeadlineExceeded):
			return e.fallback(c, domain.FallbackTimeout, l.err)
		case l.err != nil:
			return e.fallback(c, domain.FallbackError, l.err)
		case l.result.Empty():
			return e.fallback(c, domain.FallbackEmpty, nil)
		default:
			return domain.ResolvedAddress(l.result.Label)
		}
	}
}

// ResolveAll resolves every coordinate concurrently. The result has one
// outcome per input, in input order, regardless of individual failures.
func (e *AddressEnricher) ResolveAll(ctx context.Context, coords []domain.Coordinate) []domain.AddressOutcome {
	outcomes := make([]domain.AddressOutcome, len(coords))

	var g errgroup.Group
	for i, c := range coords {
		g.Go(func() error {
			outcomes[i] = e.Resolve(ctx, c)
			return nil
		})
	}
	_ = g.Wait() // outcomes never fail

	return outcomes
}

func (e *AddressEnricher) fallback(c domain.Coordinate, reason domain.FallbackReason, err error) domain.AddressOutcome {
	e.metrics.AddressFallbacks.WithLabelValues(string(reason)).Inc()
	if reason != domain.FallbackDisabled {
		e.logger.Warn("address resolution degraded",
			"lat", c.Latitude,
			"lon", c.Longitude,
			"reason", reason,
			"error", err,
		)
	}
	return domain.FallbackAddress(c, reason)
}
