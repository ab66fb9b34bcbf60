package domain

// FallbackReason explains why an address label was derived from the coordinate.
type FallbackReason string

const (
	FallbackNone     FallbackReason = ""
	FallbackTimeout  FallbackReason = "timeout"
	FallbackError    FallbackReason = "error"
	FallbackEmpty    FallbackReason = "empty"
	FallbackDisabled FallbackReason = "disabled"
)

// AddressOutcome is the result of resolving one coordinate to a display label.
// It always carries a label; Resolved is false when the label is the
// coordinate-derived fallback.
type AddressOutcome struct {
	Label    string
	Resolved bool
	Reason   FallbackReason
}

// ResolvedAddress builds a successful outcome.
func ResolvedAddress(label string) AddressOutcome {
	return AddressOutcome{Label: label, Resolved: true}
}

// FallbackAddress builds the deterministic coordinate-derived outcome.
func FallbackAddress(c Coordinate, reason FallbackReason) AddressOutcome {
	return AddressOutcome{Label: c.String(), Reason: reason}
}
