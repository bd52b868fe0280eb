package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carpool/internal/distance"
	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/lifecycle"
	"carpool/internal/pricing"
	"carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/repository/postgres"
	"carpool/internal/route"
)

// tripRouteLockTTL bounds how long a booking may hold a trip's route lock;
// it must outlive the slowest distance-service call.
const tripRouteLockTTL = 30 * time.Second

// BookingService coordinates route consolidation: inserting a rider's stops
// into a trip's route, recomputing authoritative distances, pricing, and
// committing everything as one storage transaction.
type BookingService struct {
	db          *sql.DB
	tripRepo    repository.TripRepository
	bookingRepo repository.BookingRepository
	sequencer   route.Sequencer
	matrix      distance.Matrix
	pricing     *PricingSource
	locks       redis.LockStoreInterface
}

// NewBookingService creates a new BookingService. locks may be nil.
func NewBookingService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	bookingRepo repository.BookingRepository,
	sequencer route.Sequencer,
	matrix distance.Matrix,
	pricing *PricingSource,
	locks redis.LockStoreInterface,
) *BookingService {
	return &BookingService{
		db:          db,
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		sequencer:   sequencer,
		matrix:      matrix,
		pricing:     pricing,
		locks:       locks,
	}
}

// CreateBookingRequest is the draft booking supplied by the rider.
type CreateBookingRequest struct {
	TripID        string
	RiderID       string
	Pickup        domain.Point
	Dropoff       domain.Point
	DepartureAt   time.Time
	Passengers    int
	PaymentMethod domain.PaymentMethod
	// PriceOverride, when set, replaces the computed per-passenger price.
	PriceOverride *float64
}

// CreateBooking inserts the rider's stops into the trip's route and persists
// the booking and the updated route atomically. Any failure, including the
// distance-service call, aborts the whole transaction; no partial waypoint
// or booking state survives.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (booking *domain.Booking, err error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.TripID == "" {
		return nil, ErrTripNotFound
	}
	if !geo.Valid(req.Pickup) || !geo.Valid(req.Dropoff) {
		return nil, ErrInvalidGeometry
	}
	if req.Passengers < 1 {
		return nil, ErrInvalidPassengerCount
	}
	if req.PaymentMethod == "" {
		return nil, ErrMissingPaymentMethod
	}

	// The SQL transaction is the correctness guard; the Redis lock just
	// keeps a concurrent loser from spending a distance-service call on a
	// route it will have to recompute.
	if s.locks != nil {
		locked, lockErr := s.locks.AcquireTripLock(ctx, req.TripID, tripRouteLockTTL)
		if lockErr != nil {
			return nil, lockErr
		}
		if !locked {
			return nil, ErrTripBusy
		}
		defer func() { _ = s.locks.ReleaseTripLock(ctx, req.TripID) }()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txTripRepo := postgres.NewTripRepositoryWithTx(tx)
	txBookingRepo := postgres.NewBookingRepositoryWithTx(tx)

	trip, err := txTripRepo.GetByIDForUpdate(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	if trip.Status != domain.TripStatusScheduled {
		return nil, ErrTripNotBookable
	}

	active, err := txBookingRepo.ListActiveByTripID(ctx, trip.ID)
	if err != nil {
		return nil, err
	}

	occupied := 0
	for _, b := range active {
		occupied += b.Passengers
	}
	if occupied+req.Passengers > trip.Seats {
		return nil, ErrInsufficientSeats
	}

	booking = &domain.Booking{
		ID:            uuid.New().String(),
		TripID:        trip.ID,
		RiderID:       req.RiderID,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		DepartureAt:   req.DepartureAt,
		Passengers:    req.Passengers,
		Status:        domain.BookingStatusPending,
		PaymentState:  domain.PaymentStatePending,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     time.Now(),
	}

	combined := append(append([]domain.Waypoint{}, trip.Waypoints...),
		domain.Waypoint{
			ID:        uuid.New().String(),
			TripID:    trip.ID,
			BookingID: booking.ID,
			Role:      domain.WaypointRolePickup,
			Point:     req.Pickup,
		},
		domain.Waypoint{
			ID:        uuid.New().String(),
			TripID:    trip.ID,
			BookingID: booking.ID,
			Role:      domain.WaypointRoleDropoff,
			Point:     req.Dropoff,
		},
	)

	ordered := s.sequencer.Sequence(trip.Start, trip.End, combined)

	destinations := make([]domain.Point, len(ordered))
	for i, wp := range ordered {
		destinations[i] = wp.Point
	}

	legs, err := s.matrix.Route(ctx, trip.Start, destinations)
	if err != nil {
		return nil, err
	}

	ordered, err = applyLegs(ordered, legs)
	if err != nil {
		return nil, err
	}

	meters, seconds, err := bookingSlice(ordered, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.DistanceMeters = meters
	booking.DurationSeconds = seconds

	if req.PriceOverride != nil {
		booking.Price = *req.PriceOverride
		booking.TotalPrice = booking.Price * float64(req.Passengers)
	} else {
		cfg, cfgErr := s.pricing.Snapshot(ctx)
		if cfgErr != nil {
			err = cfgErr
			return nil, err
		}
		quote, quoteErr := pricing.Price(cfg, meters, req.Passengers)
		if quoteErr != nil {
			err = quoteErr
			return nil, err
		}
		booking.Price = quote.PerPassengerPrice
		booking.TotalPrice = quote.TotalPrice
	}

	trip.Waypoints = ordered
	if len(ordered) > 0 {
		last := ordered[len(ordered)-1]
		trip.TotalMeters = last.CumulativeMeters
		trip.TotalSeconds = last.CumulativeSeconds
	}

	if err = txBookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}
	if err = txTripRepo.UpdateRoute(ctx, trip); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return booking, nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// CancelBooking cancels a booking, releasing its seats. The booking's
// waypoints stay in the route until the next consolidation; the driver
// simply has no one to collect there.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, riderID string) (*domain.Booking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.RiderID != riderID {
		return nil, ErrBookingNotFound
	}

	if err := lifecycle.BookingTransition(booking.Status, domain.BookingStatusCanceled); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBookingNotCancelable, err)
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, domain.BookingStatusCanceled); err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatusCanceled
	return booking, nil
}

// RateBooking records the rider's rating and note on a finished booking.
func (s *BookingService) RateBooking(ctx context.Context, bookingID, riderID string, rating int, note string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.RiderID != riderID {
		return ErrBookingNotFound
	}
	if booking.Status != domain.BookingStatusFinished {
		return ErrBookingNotFinished
	}

	return s.bookingRepo.UpdateRating(ctx, bookingID, rating, note)
}

// applyLegs writes the authoritative per-leg results onto the ordered
// waypoints as cumulative distance/duration from the trip start.
func applyLegs(ordered []domain.Waypoint, legs []distance.Leg) ([]domain.Waypoint, error) {
	if len(legs) != len(ordered) {
		return nil, fmt.Errorf("%w: %d legs for %d waypoints", distance.ErrUnavailable, len(legs), len(ordered))
	}

	var meters float64
	var seconds int64
	for i := range ordered {
		meters += legs[i].Meters
		seconds += legs[i].Seconds
		ordered[i].CumulativeMeters = meters
		ordered[i].CumulativeSeconds = seconds
	}

	return ordered, nil
}

// bookingSlice returns the distance and duration attributable to one
// booking: the cumulative totals between its pickup and dropoff stops.
func bookingSlice(ordered []domain.Waypoint, bookingID string) (float64, int64, error) {
	pickupIdx, dropoffIdx := -1, -1
	for i, wp := range ordered {
		if wp.BookingID != bookingID {
			continue
		}
		switch wp.Role {
		case domain.WaypointRolePickup:
			pickupIdx = i
		case domain.WaypointRoleDropoff:
			dropoffIdx = i
		}
	}

	if pickupIdx == -1 || dropoffIdx == -1 {
		return 0, 0, fmt.Errorf("booking %s missing pickup or dropoff in route", bookingID)
	}
	if pickupIdx > dropoffIdx {
		return 0, 0, fmt.Errorf("booking %s dropoff precedes pickup in route", bookingID)
	}

	meters := ordered[dropoffIdx].CumulativeMeters - ordered[pickupIdx].CumulativeMeters
	seconds := ordered[dropoffIdx].CumulativeSeconds - ordered[pickupIdx].CumulativeSeconds
	return meters, seconds, nil
}
