package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/deal-discovery/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
)

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Action string `json:"action"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindBadInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAddressNotFound:
		return http.StatusUnprocessableEntity
	case domain.KindDetectionFailed:
		return http.StatusBadGateway
	case domain.KindStorageUnavailable, domain.KindQueuePublishFailed, domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	msg := http.StatusText(status)
	var de *domain.Error
	if errors.As(err, &de) && kind == domain.KindBadInput && de.Err != nil {
		msg = de.Err.Error()
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"kind", kind,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, errorResponse{
		Error:  msg,
		Kind:   string(kind),
		Action: string(kind.Action()),
	})
}

type listResponse struct {
	Deals []dealResponse `json:"deals"`
}

type dealResponse struct {
	ID              string   `json:"id"`
	BusinessName    string   `json:"businessName"`
	DisplayName     string   `json:"displayName"`
	DealText        string   `json:"dealText"`
	Price           float64  `json:"price"`
	HasPrice        bool     `json:"hasPrice"`
	ExpiresAt       *string  `json:"expiresAt"`
	IsExpired       bool     `json:"isExpired"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	Address         string   `json:"address"`
	AddressResolved bool     `json:"addressResolved"`
	CreatedAt       string   `json:"createdAt"`
	DistanceMiles   *float64 `json:"distanceMiles,omitempty"`
}

func toDealResponse(d domain.EnrichedDeal) dealResponse {
	resp := dealResponse{
		ID:              d.ID,
		BusinessName:    d.BusinessName,
		DisplayName:     d.DisplayName(),
		DealText:        d.DealText,
		Price:           d.Price,
		HasPrice:        d.HasPrice(),
		IsExpired:       d.IsExpired,
		Latitude:        d.Location.Latitude,
		Longitude:       d.Location.Longitude,
		Address:         d.Address.Label,
		AddressResolved: d.Address.Resolved,
		CreatedAt:       d.CreatedAt.UTC().Format(time.RFC3339),
		DistanceMiles:   d.DistanceMiles,
	}
	if d.ExpiresAt != nil {
		resp.ExpiresAt = lo.ToPtr(d.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return resp
}

func toDealResponses(deals []domain.EnrichedDeal) []dealResponse {
	return lo.Map(deals, func(d domain.EnrichedDeal, _ int) dealResponse { return toDealResponse(d) })
}
