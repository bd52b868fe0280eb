// Package pricing converts distance and passenger count into a fare using
// an explicit rate-parameter snapshot.
package pricing

import (
	"errors"

	"carpool/internal/domain"
)

// ErrConfigMissing is returned when a required rate parameter is absent.
var ErrConfigMissing = errors.New("pricing config missing required rate parameter")

// Quote is the result of one fare calculation.
type Quote struct {
	Base              float64
	Fee               float64
	Tax               float64
	PerPassengerPrice float64
	TotalPrice        float64
}

// Price computes the fare for the given distance and passenger count.
// base = km * rate, floored at the minimum fare; fee and tax are applied on
// top; the total is linear in passengers.
func Price(cfg domain.PricingConfig, distanceMeters float64, passengers int) (Quote, error) {
	if cfg.RatePerKm <= 0 || cfg.MinFare <= 0 || cfg.TaxRate < 0 || cfg.FeeRate < 0 {
		return Quote{}, ErrConfigMissing
	}

	base := (distanceMeters / 1000) * cfg.RatePerKm
	if base < cfg.MinFare {
		base = cfg.MinFare
	}

	fee := base * cfg.FeeRate
	tax := base * cfg.TaxRate
	per := base + fee + tax

	return Quote{
		Base:              base,
		Fee:               fee,
		Tax:               tax,
		PerPassengerPrice: per,
		TotalPrice:        per * float64(passengers),
	}, nil
}
