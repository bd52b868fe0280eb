package domain

import "time"

// PricingConfig is an immutable snapshot of the externally stored rate
// parameters. It is loaded once per pricing calculation and passed
// explicitly; nothing mutates it mid-calculation.
type PricingConfig struct {
	RatePerKm float64
	MinFare   float64
	TaxRate   float64
	FeeRate   float64
	LoadedAt  time.Time
}
