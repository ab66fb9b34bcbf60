package domain

import (
	"errors"
	"strings"
	"time"
)

// UnknownBusiness is shown when a deal has no extracted business name.
const UnknownBusiness = "Unknown Business"

// ErrDealNotFound is returned by stores when no deal has the requested id.
var ErrDealNotFound = errors.New("deal not found")

// Deal is a catalogued deal as stored by the upstream cataloguing process.
type Deal struct {
	ID           string
	BusinessName string
	DealText     string
	Price        float64    // 0 means no price was shown
	ExpiresAt    *time.Time // nil means the deal never expires
	Location     Coordinate
	CreatedAt    time.Time
}

// DisplayName returns the business name, or UnknownBusiness when it is blank.
func (d Deal) DisplayName() string {
	if strings.TrimSpace(d.BusinessName) == "" {
		return UnknownBusiness
	}
	return d.BusinessName
}

// HasPrice reports whether the deal advertised a price.
func (d Deal) HasPrice() bool {
	return d.Price > 0
}

// IsActive reports whether the deal has no expiration or expires strictly after now.
func (d Deal) IsActive(now time.Time) bool {
	return d.ExpiresAt == nil || d.ExpiresAt.After(now)
}

// IsExpired is the negation of IsActive.
func (d Deal) IsExpired(now time.Time) bool {
	return !d.IsActive(now)
}

// EnrichedDeal is a Deal prepared for display: its expiry evaluated at query
// time and its coordinate resolved to an address label.
type EnrichedDeal struct {
	Deal
	Address   AddressOutcome
	IsExpired bool

	// DistanceMiles is set only for location-filtered listings.
	DistanceMiles *float64
}

// DealQuery selects rows for a listing, newest first.
type DealQuery struct {
	Limit int

	// ActiveAt, when set, restricts rows to deals active at that instant.
	ActiveAt *time.Time
}
