package repository

import (
	"context"

	"carpool/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// ListByTripID retrieves all bookings on a trip.
	ListByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error)

	// ListActiveByTripID retrieves bookings still occupying seats
	// (status PENDING or PROCESS).
	ListActiveByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error)

	// UpdateStatus updates a booking's status.
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error

	// UpdatePayment updates a booking's payment state.
	UpdatePayment(ctx context.Context, id string, state domain.PaymentState) error

	// UpdateRating sets the rating and note on a booking.
	UpdateRating(ctx context.Context, id string, rating int, note string) error
}
