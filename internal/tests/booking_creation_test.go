package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/pricing"
	"carpool/internal/route"
	"carpool/internal/service"
)

// We can't use the real BookingService here as it requires *sql.DB for the
// enclosing transaction. These tests replicate its orchestration against
// mocks: lock, capacity check, stop insertion, sequencing, leg costing,
// pricing, then the atomic booking + route write.
func createBookingWithMocks(
	ctx context.Context,
	tripRepo *MockTripRepository,
	bookingRepo *MockBookingRepository,
	locks *MockLockStore,
	matrix *MockMatrix,
	req service.CreateBookingRequest,
) (*domain.Booking, error) {
	locked, err := locks.AcquireTripLock(ctx, req.TripID, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, service.ErrTripBusy
	}
	defer locks.ReleaseTripLock(ctx, req.TripID)

	trip, err := tripRepo.GetByIDForUpdate(ctx, req.TripID)
	if err != nil {
		return nil, service.ErrTripNotFound
	}
	if trip.Status != domain.TripStatusScheduled {
		return nil, service.ErrTripNotBookable
	}

	active, err := bookingRepo.ListActiveByTripID(ctx, trip.ID)
	if err != nil {
		return nil, err
	}
	occupied := 0
	for _, b := range active {
		occupied += b.Passengers
	}
	if occupied+req.Passengers > trip.Seats {
		return nil, service.ErrInsufficientSeats
	}

	booking := &domain.Booking{
		ID:            uuid.New().String(),
		TripID:        trip.ID,
		RiderID:       req.RiderID,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		Passengers:    req.Passengers,
		Status:        domain.BookingStatusPending,
		PaymentState:  domain.PaymentStatePending,
		PaymentMethod: req.PaymentMethod,
	}

	combined := append(append([]domain.Waypoint{}, trip.Waypoints...),
		domain.Waypoint{ID: uuid.New().String(), TripID: trip.ID, BookingID: booking.ID, Role: domain.WaypointRolePickup, Point: req.Pickup},
		domain.Waypoint{ID: uuid.New().String(), TripID: trip.ID, BookingID: booking.ID, Role: domain.WaypointRoleDropoff, Point: req.Dropoff},
	)

	sequencer := route.NewGreedySequencer()
	ordered := sequencer.Sequence(trip.Start, trip.End, combined)

	destinations := make([]domain.Point, len(ordered))
	for i, wp := range ordered {
		destinations[i] = wp.Point
	}
	legs, err := matrix.Route(ctx, trip.Start, destinations)
	if err != nil {
		return nil, err
	}

	var meters float64
	var seconds int64
	pickupIdx, dropoffIdx := -1, -1
	for i := range ordered {
		meters += legs[i].Meters
		seconds += legs[i].Seconds
		ordered[i].CumulativeMeters = meters
		ordered[i].CumulativeSeconds = seconds
		if ordered[i].BookingID == booking.ID {
			if ordered[i].Role == domain.WaypointRolePickup {
				pickupIdx = i
			} else {
				dropoffIdx = i
			}
		}
	}
	booking.DistanceMeters = ordered[dropoffIdx].CumulativeMeters - ordered[pickupIdx].CumulativeMeters
	booking.DurationSeconds = ordered[dropoffIdx].CumulativeSeconds - ordered[pickupIdx].CumulativeSeconds

	quote, err := pricing.Price(testPricingConfig, booking.DistanceMeters, req.Passengers)
	if err != nil {
		return nil, err
	}
	booking.Price = quote.PerPassengerPrice
	booking.TotalPrice = quote.TotalPrice

	trip.Waypoints = ordered
	trip.TotalMeters = ordered[len(ordered)-1].CumulativeMeters
	trip.TotalSeconds = ordered[len(ordered)-1].CumulativeSeconds

	if err := bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}
	if err := tripRepo.UpdateRoute(ctx, trip); err != nil {
		return nil, err
	}
	return booking, nil
}

func bookingRequest(tripID string, passengers int) service.CreateBookingRequest {
	return service.CreateBookingRequest{
		TripID:        tripID,
		RiderID:       "rider-1",
		Pickup:        riderPickup,
		Dropoff:       riderDropoff,
		Passengers:    passengers,
		PaymentMethod: domain.PaymentMethodCash,
	}
}

func TestBookingCreation_InsertsStopsAndPrices(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	bookingRepo := NewMockBookingRepository()
	locks := NewMockLockStore()
	matrix := NewMockMatrix(5000, 600)

	tripRepo.AddTrip(scheduledTrip("trip-1", 4))

	booking, err := createBookingWithMocks(ctx, tripRepo, bookingRepo, locks, matrix, bookingRequest("trip-1", 2))
	if err != nil {
		t.Fatalf("booking creation failed: %v", err)
	}

	if booking.Status != domain.BookingStatusPending {
		t.Errorf("expected PENDING booking, got %s", booking.Status)
	}
	if booking.PaymentState != domain.PaymentStatePending {
		t.Errorf("expected PENDING payment, got %s", booking.PaymentState)
	}

	// 5000 m at 9000/km: base 45000, fee 2250, tax 4500, 51750 each.
	if booking.DistanceMeters != 5000 {
		t.Errorf("expected booking slice of 5000 m, got %v", booking.DistanceMeters)
	}
	if booking.Price != 51750 {
		t.Errorf("expected per-passenger price 51750, got %v", booking.Price)
	}
	if booking.TotalPrice != 103500 {
		t.Errorf("expected total 103500, got %v", booking.TotalPrice)
	}

	trip := tripRepo.GetTrip("trip-1")
	if len(trip.Waypoints) != 2 {
		t.Fatalf("expected 2 route stops, got %d", len(trip.Waypoints))
	}
	if trip.Waypoints[0].Role != domain.WaypointRolePickup || trip.Waypoints[1].Role != domain.WaypointRoleDropoff {
		t.Errorf("expected pickup before dropoff, got %s then %s", trip.Waypoints[0].Role, trip.Waypoints[1].Role)
	}
	if trip.TotalMeters != 10000 {
		t.Errorf("expected trip total of 10000 m, got %v", trip.TotalMeters)
	}

	if locks.Held("trip-1") {
		t.Error("expected trip lock to be released")
	}
}

func TestBookingCreation_SecondBookingKeepsStopOrder(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	bookingRepo := NewMockBookingRepository()
	locks := NewMockLockStore()
	matrix := NewMockMatrix(3000, 360)

	tripRepo.AddTrip(scheduledTrip("trip-1", 4))

	first, err := createBookingWithMocks(ctx, tripRepo, bookingRepo, locks, matrix, bookingRequest("trip-1", 1))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	second := bookingRequest("trip-1", 1)
	second.RiderID = "rider-2"
	second.Pickup = domain.Point{Lat: 21.025, Lng: 105.84}
	second.Dropoff = domain.Point{Lat: 21.021, Lng: 105.848}

	secondBooking, err := createBookingWithMocks(ctx, tripRepo, bookingRepo, locks, matrix, second)
	if err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	trip := tripRepo.GetTrip("trip-1")
	if len(trip.Waypoints) != 4 {
		t.Fatalf("expected 4 route stops, got %d", len(trip.Waypoints))
	}

	// Every booking's pickup must precede its dropoff in the merged route.
	for _, id := range []string{first.ID, secondBooking.ID} {
		pickupIdx, dropoffIdx := -1, -1
		for i, wp := range trip.Waypoints {
			if wp.BookingID != id {
				continue
			}
			if wp.Role == domain.WaypointRolePickup {
				pickupIdx = i
			} else {
				dropoffIdx = i
			}
		}
		if pickupIdx == -1 || dropoffIdx == -1 {
			t.Fatalf("booking %s missing stops in route", id)
		}
		if pickupIdx > dropoffIdx {
			t.Errorf("booking %s dropoff before pickup (%d > %d)", id, pickupIdx, dropoffIdx)
		}
	}
}

func TestBookingCreation_RespectsCapacity(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	bookingRepo := NewMockBookingRepository()
	locks := NewMockLockStore()
	matrix := NewMockMatrix(5000, 600)

	tripRepo.AddTrip(scheduledTrip("trip-1", 2))
	bookingRepo.AddBooking(&domain.Booking{
		ID:         "existing",
		TripID:     "trip-1",
		Passengers: 1,
		Status:     domain.BookingStatusPending,
	})

	_, err := createBookingWithMocks(ctx, tripRepo, bookingRepo, locks, matrix, bookingRequest("trip-1", 2))
	if !errors.Is(err, service.ErrInsufficientSeats) {
		t.Fatalf("expected ErrInsufficientSeats, got %v", err)
	}
	if bookingRepo.CreateCallCount != 0 {
		t.Error("expected no booking to be written")
	}
	if tripRepo.UpdateRouteCallCount != 0 {
		t.Error("expected route to stay untouched")
	}
}

func TestBookingCreation_TripLockBlocksConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	bookingRepo := NewMockBookingRepository()
	locks := NewMockLockStore()
	matrix := NewMockMatrix(5000, 600)

	tripRepo.AddTrip(scheduledTrip("trip-1", 4))

	// A concurrent writer holds the route lock.
	if ok, _ := locks.AcquireTripLock(ctx, "trip-1", 30*time.Second); !ok {
		t.Fatal("setup: failed to take the lock")
	}

	_, err := createBookingWithMocks(ctx, tripRepo, bookingRepo, locks, matrix, bookingRequest("trip-1", 1))
	if !errors.Is(err, service.ErrTripBusy) {
		t.Fatalf("expected ErrTripBusy, got %v", err)
	}
	if int(matrix.RouteCallCount) != 0 {
		t.Error("expected no distance-service call while the trip is locked")
	}
}

func TestBookingCreation_ConcurrentRequestsNeverOverbook(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	bookingRepo := NewMockBookingRepository()
	locks := NewMockLockStore()
	matrix := NewMockMatrix(5000, 600)

	// Two riders race for the last two seats, each wanting both.
	tripRepo.AddTrip(scheduledTrip("trip-1", 2))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				_, err := createBookingWithMocks(ctx, tripRepo, bookingRepo, locks, matrix, bookingRequest("trip-1", 2))
				if errors.Is(err, service.ErrTripBusy) {
					time.Sleep(time.Millisecond)
					continue
				}
				results[i] = err
				return
			}
		}(i)
	}
	wg.Wait()

	committed, rejected := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, service.ErrInsufficientSeats):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if committed != 1 || rejected != 1 {
		t.Fatalf("expected one commit and one capacity rejection, got %d/%d", committed, rejected)
	}

	active, err := bookingRepo.ListActiveByTripID(ctx, "trip-1")
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	occupied := 0
	for _, b := range active {
		occupied += b.Passengers
	}
	if occupied > 2 {
		t.Fatalf("trip overbooked: %d passengers on 2 seats", occupied)
	}
}

func TestBookingCreation_RejectsStartedTrip(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	bookingRepo := NewMockBookingRepository()
	locks := NewMockLockStore()
	matrix := NewMockMatrix(5000, 600)

	trip := scheduledTrip("trip-1", 4)
	trip.Status = domain.TripStatusInProgress
	tripRepo.AddTrip(trip)

	_, err := createBookingWithMocks(ctx, tripRepo, bookingRepo, locks, matrix, bookingRequest("trip-1", 1))
	if !errors.Is(err, service.ErrTripNotBookable) {
		t.Fatalf("expected ErrTripNotBookable, got %v", err)
	}
}
