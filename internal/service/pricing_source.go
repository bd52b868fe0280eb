package service

import (
	"context"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/pricing"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// PricingSource loads rate-parameter snapshots for the pricing engine,
// read-through a short-TTL Redis cache. Each caller receives an immutable
// copy; configuration changes never reach a calculation in flight.
type PricingSource struct {
	configRepo repository.PricingConfigRepository
	cache      redis.CacheStoreInterface
}

// NewPricingSource creates a new PricingSource. cache may be nil.
func NewPricingSource(configRepo repository.PricingConfigRepository, cache redis.CacheStoreInterface) *PricingSource {
	return &PricingSource{
		configRepo: configRepo,
		cache:      cache,
	}
}

// Snapshot returns the current rate-parameter snapshot.
func (s *PricingSource) Snapshot(ctx context.Context) (domain.PricingConfig, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPricingConfig(ctx)
		if err == nil && cached != nil {
			return *cached, nil
		}
		if err != nil {
			// A payload that no longer decodes would shadow the repository
			// until its TTL expires; drop it and fall through.
			_ = s.cache.InvalidatePricingConfig(ctx)
		}
	}

	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PricingConfig{}, pricing.ErrConfigMissing
		}
		return domain.PricingConfig{}, err
	}

	if s.cache != nil {
		_ = s.cache.SetPricingConfig(ctx, cfg)
	}

	return cfg, nil
}
