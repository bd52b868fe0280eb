package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// Rate parameter keys in the pricing_config table.
const (
	configKeyStandardPrice = "standard_price"
	configKeyMinPrice      = "min_price"
	configKeyTax           = "tax"
	configKeyAppFee        = "app_fee"
)

// PricingConfigRepository reads rate parameters from a key/value table.
type PricingConfigRepository struct {
	q Querier
}

// NewPricingConfigRepository creates a new PostgreSQL pricing config repository.
func NewPricingConfigRepository(db *sql.DB) *PricingConfigRepository {
	return &PricingConfigRepository{q: db}
}

// Get returns the current rate-parameter snapshot. Returns
// repository.ErrNotFound if any required key is absent.
func (r *PricingConfigRepository) Get(ctx context.Context) (domain.PricingConfig, error) {
	query := `SELECT key, value FROM pricing_config WHERE key = ANY($1)`

	rows, err := r.q.QueryContext(ctx, query, pq.Array([]string{
		configKeyStandardPrice, configKeyMinPrice, configKeyTax, configKeyAppFee,
	}))
	if err != nil {
		return domain.PricingConfig{}, err
	}
	defer rows.Close()

	values := make(map[string]float64, 4)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return domain.PricingConfig{}, err
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return domain.PricingConfig{}, err
	}

	for _, key := range []string{configKeyStandardPrice, configKeyMinPrice, configKeyTax, configKeyAppFee} {
		if _, ok := values[key]; !ok {
			return domain.PricingConfig{}, repository.ErrNotFound
		}
	}

	return domain.PricingConfig{
		RatePerKm: values[configKeyStandardPrice],
		MinFare:   values[configKeyMinPrice],
		TaxRate:   values[configKeyTax],
		FeeRate:   values[configKeyAppFee],
		LoadedAt:  time.Now(),
	}, nil
}

// Ensure PricingConfigRepository implements repository.PricingConfigRepository.
var _ repository.PricingConfigRepository = (*PricingConfigRepository)(nil)
