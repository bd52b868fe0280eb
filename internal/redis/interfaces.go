package redis

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	GetLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID string) error
}

// CacheStoreInterface defines the interface for the config snapshot cache.
type CacheStoreInterface interface {
	GetPricingConfig(ctx context.Context) (*domain.PricingConfig, error)
	SetPricingConfig(ctx context.Context, cfg domain.PricingConfig) error
	InvalidatePricingConfig(ctx context.Context) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
