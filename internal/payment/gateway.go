// Package payment contains the gateway-specific halves of payment
// reconciliation: signed redirect URLs and callback verification. The
// settlement logic itself is gateway-agnostic and lives in the service layer.
package payment

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"carpool/internal/domain"
)

// ErrInvalidSignature is returned when a callback's signature does not match
// the recomputed one.
var ErrInvalidSignature = errors.New("invalid gateway signature")

// ErrUnknownGateway is returned for a gateway name with no registered adapter.
var ErrUnknownGateway = errors.New("unknown payment gateway")

// CallbackResult is the decoded, verified content of a gateway callback.
type CallbackResult struct {
	// OrderID is the gateway's own order identifier; it keys the ledger.
	OrderID   string
	BookingID string
	Amount    float64
	Success   bool
	Code      string
}

// AckStatus classifies the settlement outcome for the gateway-specific
// IPN acknowledgement. Gateways expect their own protocol shape back, never
// a generic failure that would make them retry forever.
type AckStatus int

const (
	AckOK AckStatus = iota
	AckInvalidSignature
	AckOrderNotFound
	AckAmountMismatch
	AckAlreadyConfirmed
	AckError
)

// Gateway is one payment gateway integration.
type Gateway interface {
	// Name is the lowercase route segment identifying the gateway.
	Name() string

	// BuildRedirectURL returns the signed URL the rider is sent to in order
	// to pay for the booking. orderID becomes the gateway order identifier.
	BuildRedirectURL(booking *domain.Booking, orderID string) (string, error)

	// VerifyCallback checks the callback signature over the canonicalized,
	// alphabetically sorted parameters and decodes the result. Returns
	// ErrInvalidSignature on mismatch.
	VerifyCallback(params url.Values) (*CallbackResult, error)

	// IPNAck returns the HTTP status and body shape this gateway expects as
	// webhook acknowledgement for the given outcome.
	IPNAck(status AckStatus) (int, any)
}

// Registry holds the configured gateways by name.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry creates a Registry from the given gateways.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

// Get returns the gateway registered under name.
func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownGateway
	}
	return g, nil
}

// sortedKeys returns the parameter names in alphabetical order, skipping the
// given exclusions and empty values.
func sortedKeys(params url.Values, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if skip[k] || params.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
