package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"carpool/internal/domain"
)

const (
	pricingConfigKey = "config:pricing"
	pricingConfigTTL = 30 * time.Second
)

// CacheStore caches read-mostly data in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetPricingConfig returns the cached rate-parameter snapshot, or nil on a
// cache miss.
func (s *CacheStore) GetPricingConfig(ctx context.Context) (*domain.PricingConfig, error) {
	data, err := s.client.Get(ctx, pricingConfigKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cfg domain.PricingConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetPricingConfig caches a rate-parameter snapshot with a short TTL so
// administrative rate changes surface quickly.
func (s *CacheStore) SetPricingConfig(ctx context.Context, cfg domain.PricingConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, pricingConfigKey, data, pricingConfigTTL).Err()
}

// InvalidatePricingConfig drops the cached snapshot.
func (s *CacheStore) InvalidatePricingConfig(ctx context.Context) error {
	return s.client.Del(ctx, pricingConfigKey).Err()
}
