// Package query serves the deal discovery read path: listing catalogued
// deals, resolving their addresses, and filtering them by proximity.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

// Listing limits.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ErrGeocodingDisabled is the cause of AddressNotFound when no forward
// geocoder is configured.
var ErrGeocodingDisabled = errors.New("address lookup is disabled")

// DealStore reads catalogued deals.
type DealStore interface {
	SelectDeals(ctx context.Context, q domain.DealQuery) ([]domain.Deal, error)
	SelectDealByID(ctx context.Context, id string) (domain.Deal, error)
}

// NearOptions tunes a location-filtered listing.
type NearOptions struct {
	Limit      int
	ActiveOnly bool

	// IgnoreUnresolved lists deals unfiltered when the address cannot be
	// resolved, instead of failing with AddressNotFound.
	IgnoreUnresolved bool
}

// Engine answers deal queries. It is stateless across requests.
type Engine struct {
	store    DealStore
	enricher *AddressEnricher
	forward  domain.ForwardGeocoder
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewEngine creates an Engine. forward may be nil, in which case near
// queries cannot resolve addresses.
func NewEngine(store DealStore, enricher *AddressEnricher, forward domain.ForwardGeocoder, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:    store,
		enricher: enricher,
		forward:  forward,
		clock:    domain.ClockOrReal(clock),
		logger:   logger,
		metrics:  metrics,
	}
}

// ListDeals returns up to limit deals, newest first, each with a resolved
// address. With activeOnly, deals expired at query time are left out.
func (e *Engine) ListDeals(ctx context.Context, limit int, activeOnly bool) (deals []domain.EnrichedDeal, err error) {
	defer e.observe("list", &err)

	now := e.clock.Now()
	rows, err := e.selectDeals(ctx, limit, activeOnly, now)
	if err != nil {
		return nil, err
	}
	return e.enrich(ctx, rows, now), nil
}

// GetDeal returns a single deal by id.
func (e *Engine) GetDeal(ctx context.Context, id string) (deal domain.EnrichedDeal, err error) {
	defer e.observe("get", &err)

	const op = "get deal"
	if strings.TrimSpace(id) == "" {
		return domain.EnrichedDeal{}, domain.NewError(domain.KindBadInput, op, errors.New("id is required"))
	}

	row, err := e.store.SelectDealByID(ctx, id)
	if errors.Is(err, domain.ErrDealNotFound) {
		return domain.EnrichedDeal{}, domain.NewError(domain.KindNotFound, op, fmt.Errorf("deal %s: %w", id, err))
	}
	if err != nil {
		return domain.EnrichedDeal{}, domain.NewError(domain.KindUnavailable, op, err)
	}

	return e.enrich(ctx, []domain.Deal{row}, e.clock.Now())[0], nil
}

// ListDealsNear resolves address to a coordinate and returns the listed
// deals within NearbyRadiusMiles of it, keeping listing order. Each result
// carries its distance from the resolved coordinate.
func (e *Engine) ListDealsNear(ctx context.Context, address string, opts NearOptions) (deals []domain.EnrichedDeal, err error) {
	defer e.observe("near", &err)

	center, err := e.ResolveAddress(ctx, address)
	if err != nil {
		if !opts.IgnoreUnresolved || domain.KindOf(err) != domain.KindAddressNotFound {
			return nil, err
		}
		e.logger.Warn("address unresolved, listing unfiltered", "address", address, "error", err)
		return e.ListDeals(ctx, opts.Limit, opts.ActiveOnly)
	}

	now := e.clock.Now()
	rows, err := e.selectDeals(ctx, opts.Limit, opts.ActiveOnly, now)
	if err != nil {
		return nil, err
	}

	nearby := domain.FilterWithinRadius(rows, center.Coordinate, domain.NearbyRadiusMiles)
	enriched := e.enrich(ctx, nearby, now)
	for i := range enriched {
		d := domain.DistanceMiles(center.Coordinate, enriched[i].Location)
		enriched[i].DistanceMiles = &d
	}
	return enriched, nil
}

// ResolveAddress forward-geocodes a free-text address. Blank input is
// BadInput; lookup failures and empty matches are AddressNotFound.
func (e *Engine) ResolveAddress(ctx context.Context, address string) (domain.GeocodingResult, error) {
	const op = "resolve address"

	address = strings.TrimSpace(address)
	if address == "" {
		return domain.GeocodingResult{}, domain.NewError(domain.KindBadInput, op, errors.New("address is required"))
	}
	if e.forward == nil {
		return domain.GeocodingResult{}, domain.NewError(domain.KindAddressNotFound, op, ErrGeocodingDisabled)
	}

	res, err := e.forward.ForwardGeocode(ctx, address)
	if err != nil {
		return domain.GeocodingResult{}, domain.NewError(domain.KindAddressNotFound, op, err)
	}
	if res.Empty() {
		return domain.GeocodingResult{}, domain.NewError(domain.KindAddressNotFound, op, fmt.Errorf("no match for %q", address))
	}
	return res, nil
}

func (e *Engine) selectDeals(ctx context.Context, limit int, activeOnly bool, now time.Time) ([]domain.Deal, error) {
	q := domain.DealQuery{Limit: ClampLimit(limit)}
	if activeOnly {
		q.ActiveAt = &now
	}

	rows, err := e.store.SelectDeals(ctx, q)
	if err != nil {
		return nil, domain.NewError(domain.KindUnavailable, "list deals", err)
	}

	if activeOnly {
		rows = lo.Filter(rows, func(d domain.Deal, _ int) bool { return d.IsActive(now) })
	}
	return rows, nil
}

// enrich evaluates expiry at now and resolves every address concurrently.
func (e *Engine) enrich(ctx context.Context, rows []domain.Deal, now time.Time) []domain.EnrichedDeal {
	coords := lo.Map(rows, func(d domain.Deal, _ int) domain.Coordinate { return d.Location })
	addresses := e.enricher.ResolveAll(ctx, coords)

	return lo.Map(rows, func(d domain.Deal, i int) domain.EnrichedDeal {
		return domain.EnrichedDeal{
			Deal:      d,
			Address:   addresses[i],
			IsExpired: d.IsExpired(now),
		}
	})
}

func (e *Engine) observe(operation string, err *error) {
	outcome := "success"
	if *err != nil {
		outcome = "error"
	}
	e.metrics.QueryRequests.WithLabelValues(operation, outcome).Inc()
}

// ClampLimit maps a requested listing size into [1, MaxLimit], with
// DefaultLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
