package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// TripRepository defines the persistence operations for trips and their
// waypoint lists.
type TripRepository interface {
	// Create persists a new trip with its waypoints.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip with its ordered waypoints.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetByIDForUpdate retrieves a trip and row-locks it for the duration of
	// the enclosing transaction. Only meaningful on a transaction-scoped
	// repository.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error)

	// ListByDeparture retrieves trips in any of the given statuses departing
	// on the given calendar day.
	ListByDeparture(ctx context.Context, day time.Time, statuses []domain.TripStatus) ([]*domain.Trip, error)

	// UpdateRoute replaces the trip's waypoint list and aggregate
	// distance/duration.
	UpdateRoute(ctx context.Context, trip *domain.Trip) error

	// UpdateStatus updates a trip's status.
	UpdateStatus(ctx context.Context, id string, status domain.TripStatus) error
}
