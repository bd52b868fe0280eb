package repository

import (
	"context"

	"carpool/internal/domain"
)

// PricingConfigRepository loads the externally stored rate parameters.
type PricingConfigRepository interface {
	// Get returns the current rate-parameter snapshot. Returns ErrNotFound
	// if any required parameter is absent.
	Get(ctx context.Context) (domain.PricingConfig, error)
}
