package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode resolves a free-text address to the best matching point.
// A match without a center is reported as empty.
func (c *Client) ForwardGeocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	res, err := c.geocode(ctx, lookup{
		method: "forward",
		query:  url.PathEscape(address),
		params: url.Values{
			"types":        {"address,poi,place,postcode,locality,neighborhood"},
			"autocomplete": {"false"},
		},
	})
	if err == nil && !res.hasCenter {
		return domain.GeocodingResult{}, nil
	}
	return res.GeocodingResult, err
}

// ReverseGeocode labels a deal coordinate, preferring street addresses and
// points of interest over coarser areas.
func (c *Client) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.GeocodingResult, error) {
	res, err := c.geocode(ctx, lookup{
		method: "reverse",
		// Mapbox uses lon,lat order.
		query:  fmt.Sprintf("%.6f,%.6f", coord.Longitude, coord.Latitude),
		params: url.Values{"types": {"address,poi,place"}},
	})
	return res.GeocodingResult, err
}

type lookup struct {
	method string // "forward" or "reverse", used as the metric label
	query  string
	params url.Values
}

type match struct {
	domain.GeocodingResult
	hasCenter bool
}

func (c *Client) geocode(ctx context.Context, l lookup) (match, error) {
	l.params.Set("access_token", c.token)
	l.params.Set("limit", "1")

	res, err := c.get(ctx, fmt.Sprintf("%s/%s.json?%s", c.baseURL, l.query, l.params.Encode()), l.method)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		c.logger.Debug("mapbox request failed", "method", l.method, "error", err)
	case res.Empty():
		outcome = "empty"
	}
	c.metrics.GeocodeRequests.WithLabelValues(l.method, outcome).Inc()

	return res, err
}

func (c *Client) get(ctx context.Context, fullURL, method string) (match, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return match{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return match{}, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return match{}, fmt.Errorf("mapbox %s geocode: status %d: %s", method, resp.StatusCode, body)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return match{}, fmt.Errorf("decode %s geocode response: %w", method, err)
	}
	if len(body.Features) == 0 {
		return match{}, nil
	}

	f := body.Features[0]
	m := match{GeocodingResult: domain.GeocodingResult{
		Label:      f.PlaceName,
		PlaceName:  f.Text,
		Confidence: f.Relevance,
	}}
	if len(f.Center) == 2 {
		m.Coordinate = domain.Coordinate{Latitude: f.Center[1], Longitude: f.Center[0]}
		m.hasCenter = true
	}
	return m, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
