package httpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	"github.com/couchcryptid/deal-discovery/internal/query"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// PhotoProcessor runs the intake pipeline for one upload.
type PhotoProcessor interface {
	Process(ctx context.Context, data []byte, hint *domain.Coordinate) (domain.EnrichmentResult, error)
}

// DealQuerier answers deal queries.
type DealQuerier interface {
	ListDeals(ctx context.Context, limit int, activeOnly bool) ([]domain.EnrichedDeal, error)
	GetDeal(ctx context.Context, id string) (domain.EnrichedDeal, error)
	ListDealsNear(ctx context.Context, address string, opts query.NearOptions) ([]domain.EnrichedDeal, error)
	ResolveAddress(ctx context.Context, address string) (domain.GeocodingResult, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type handlers struct {
	photos       PhotoProcessor
	deals        DealQuerier
	logger       *slog.Logger
	maxBodyBytes int64
}

// handle adapts an error-returning handler, rendering errors with writeError.
func (h *handlers) handle(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			h.writeError(w, r, err)
		}
	}
}

type uploadRequest struct {
	Photo    string          `json:"photo" validate:"required"`
	Metadata *uploadMetadata `json:"metadata"`
}

type uploadMetadata struct {
	Location *locationHint `json:"location"`
}

type locationHint struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type uploadResponse struct {
	PhotoID string `json:"photoId"`
	Message string `json:"message"`
}

func (h *handlers) uploadPhoto(w http.ResponseWriter, r *http.Request) error {
	var req uploadRequest
	if err := h.read(w, r, &req); err != nil {
		return err
	}

	data, err := decodePhoto(req.Photo)
	if err != nil {
		return domain.NewError(domain.KindBadInput, "decode photo", err)
	}

	var hint *domain.Coordinate
	if req.Metadata != nil && req.Metadata.Location != nil {
		hint = &domain.Coordinate{Latitude: *req.Metadata.Location.Latitude, Longitude: *req.Metadata.Location.Longitude}
	}

	result, err := h.photos.Process(r.Context(), data, hint)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		PhotoID: result.PhotoID,
		Message: "Photo uploaded and queued for processing",
	})
	return nil
}

// decodePhoto accepts raw base64 or a data URL.
func decodePhoto(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ";base64,"); i >= 0 {
			s = s[i+len(";base64,"):]
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("photo is not valid base64: %w", err)
	}
	return data, nil
}

type geocodeRequest struct {
	Address string `json:"address" validate:"required,max=512"`
}

type geocodeResponse struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (h *handlers) geocode(w http.ResponseWriter, r *http.Request) error {
	var req geocodeRequest
	if err := h.read(w, r, &req); err != nil {
		return err
	}

	res, err := h.deals.ResolveAddress(r.Context(), req.Address)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, geocodeResponse{
		Latitude:   res.Coordinate.Latitude,
		Longitude:  res.Coordinate.Longitude,
		Label:      res.Label,
		Confidence: res.Confidence,
	})
	return nil
}

func (h *handlers) listDeals(w http.ResponseWriter, r *http.Request) error {
	limit, activeOnly, err := listParams(r)
	if err != nil {
		return err
	}

	deals, err := h.deals.ListDeals(r.Context(), limit, activeOnly)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, listResponse{Deals: toDealResponses(deals)})
	return nil
}

func (h *handlers) listDealsNear(w http.ResponseWriter, r *http.Request) error {
	limit, activeOnly, err := listParams(r)
	if err != nil {
		return err
	}
	ignoreUnresolved, err := boolParam(r, "ignoreUnresolved", false)
	if err != nil {
		return err
	}

	deals, err := h.deals.ListDealsNear(r.Context(), r.URL.Query().Get("address"), query.NearOptions{
		Limit:            limit,
		ActiveOnly:       activeOnly,
		IgnoreUnresolved: ignoreUnresolved,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, listResponse{Deals: toDealResponses(deals)})
	return nil
}

func (h *handlers) getDeal(w http.ResponseWriter, r *http.Request) error {
	deal, err := h.deals.GetDeal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, toDealResponse(deal))
	return nil
}

// read decodes and validates a JSON body into dest.
func (h *handlers) read(w http.ResponseWriter, r *http.Request, dest any) error {
	const op = "read request"

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewError(domain.KindBadInput, op, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return domain.NewError(domain.KindBadInput, op, fmt.Errorf("invalid JSON: %w", err))
	}
	if err := validate.StructCtx(r.Context(), dest); err != nil {
		return domain.NewError(domain.KindBadInput, op, err)
	}
	return nil
}

func listParams(r *http.Request) (limit int, activeOnly bool, err error) {
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 {
			return 0, false, domain.NewError(domain.KindBadInput, "parse query", fmt.Errorf("limit must be a positive integer, got %q", s))
		}
	}
	activeOnly, err = boolParam(r, "active", true)
	return limit, activeOnly, err
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, domain.NewError(domain.KindBadInput, "parse query", fmt.Errorf("%s must be true or false, got %q", name, s))
	}
	return v, nil
}
