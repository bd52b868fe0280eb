package service

import (
	"context"
	"errors"
	"fmt"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// EventCoordinator handles the realtime events that carry side effects:
// driver position fixes and per-stop progress reports.
type EventCoordinator struct {
	locations   redis.LocationStoreInterface
	bookingRepo repository.BookingRepository
	settlement  *SettlementService
}

// NewEventCoordinator creates a new EventCoordinator.
func NewEventCoordinator(
	locations redis.LocationStoreInterface,
	bookingRepo repository.BookingRepository,
	settlement *SettlementService,
) *EventCoordinator {
	return &EventCoordinator{
		locations:   locations,
		bookingRepo: bookingRepo,
		settlement:  settlement,
	}
}

// DriverLocation stores a position fix in the geo index.
func (e *EventCoordinator) DriverLocation(ctx context.Context, driverID, tripID string, loc domain.Point) error {
	if !geo.Valid(loc) {
		return ErrInvalidGeometry
	}
	return e.locations.UpdateLocation(ctx, driverID, loc.Lat, loc.Lng)
}

// StopStatus reacts to a stop progress report. Only a dropoff completion
// carries state: it settles the rider's cash booking on the spot. All other
// statuses are informational and only get rebroadcast by the hub.
func (e *EventCoordinator) StopStatus(ctx context.Context, tripID, bookingID, waypointID string, status domain.StopStatus) error {
	switch status {
	case domain.StopStatusArrived, domain.StopStatusPicked, domain.StopStatusOngoing:
		return nil
	case domain.StopStatusDropped:
	default:
		return fmt.Errorf("unknown stop status %q", status)
	}

	booking, err := e.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return err
	}
	if booking.TripID != tripID {
		return ErrBookingNotFound
	}

	if booking.PaymentMethod != domain.PaymentMethodCash {
		// Electronic bookings settle when the gateway confirms.
		return nil
	}

	return e.settlement.SettleCash(ctx, bookingID)
}
