package service

import (
	"context"
	"sort"
	"time"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/pricing"
	"carpool/internal/repository"
)

const (
	// defaultMatchRadiusKm bounds how far a trip's route may lie from the
	// rider's points and still count as serving them.
	defaultMatchRadiusKm = 20.0

	departureDateLayout = "2006-01-02"
)

// MatchingService finds scheduled trips that can plausibly serve a rider's
// request. It is read-only; committing a booking is the coordinator's job.
type MatchingService struct {
	tripRepo    repository.TripRepository
	bookingRepo repository.BookingRepository
	pricing     *PricingSource
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(
	tripRepo repository.TripRepository,
	bookingRepo repository.BookingRepository,
	pricing *PricingSource,
) *MatchingService {
	return &MatchingService{
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		pricing:     pricing,
	}
}

// MatchRequest contains the rider's trip requirements.
type MatchRequest struct {
	Pickup        domain.Point
	Dropoff       domain.Point
	Passengers    int
	DepartureDate string  // YYYY-MM-DD
	RadiusKm      float64 // 0 uses the default
}

// Candidate is one trip that can serve the request, with provisional
// schedule and price estimates. Authoritative figures come from the
// distance service at booking time.
type Candidate struct {
	Trip               *domain.Trip
	SeatsLeft          int
	EstimatedPickupAt  time.Time
	EstimatedDropoffAt time.Time
	EstimatedPrice     float64
	EstimatedTotal     float64
}

// Match returns candidate trips sorted ascending by estimated price.
// Validation failures are rejected before any repository access.
func (s *MatchingService) Match(ctx context.Context, req MatchRequest) ([]Candidate, error) {
	if !geo.Valid(req.Pickup) || !geo.Valid(req.Dropoff) {
		return nil, ErrInvalidGeometry
	}
	if req.Passengers <= 0 {
		return nil, ErrInvalidPassengerCount
	}

	day, err := time.Parse(departureDateLayout, req.DepartureDate)
	if err != nil {
		return nil, ErrInvalidDate
	}

	radiusMeters := req.RadiusKm * 1000
	if radiusMeters <= 0 {
		radiusMeters = defaultMatchRadiusKm * 1000
	}

	trips, err := s.tripRepo.ListByDeparture(ctx, day, []domain.TripStatus{domain.TripStatusScheduled})
	if err != nil {
		return nil, err
	}

	// One snapshot for the whole ranking pass.
	cfg, err := s.pricing.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rideDistance := geo.Distance(req.Pickup, req.Dropoff)

	var candidates []Candidate
	for _, trip := range trips {
		seatsLeft, err := s.seatsLeft(ctx, trip)
		if err != nil {
			return nil, err
		}
		if seatsLeft < req.Passengers {
			continue
		}

		if !geo.WithinRadius(trip.Start, req.Pickup, radiusMeters) {
			continue
		}
		if !routeReaches(trip, req.Dropoff, radiusMeters) {
			continue
		}

		toPickup := geo.Distance(trip.Start, req.Pickup)
		pickupAt := trip.DepartureAt.Add(time.Duration(geo.EstimateTravelSeconds(toPickup)) * time.Second)
		dropoffAt := pickupAt.Add(time.Duration(geo.EstimateTravelSeconds(rideDistance)) * time.Second)

		quote, err := pricing.Price(cfg, rideDistance, req.Passengers)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, Candidate{
			Trip:               trip,
			SeatsLeft:          seatsLeft,
			EstimatedPickupAt:  pickupAt,
			EstimatedDropoffAt: dropoffAt,
			EstimatedPrice:     quote.PerPassengerPrice,
			EstimatedTotal:     quote.TotalPrice,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EstimatedPrice < candidates[j].EstimatedPrice
	})

	return candidates, nil
}

// seatsLeft subtracts active bookings' passengers from the vehicle capacity.
func (s *MatchingService) seatsLeft(ctx context.Context, trip *domain.Trip) (int, error) {
	active, err := s.bookingRepo.ListActiveByTripID(ctx, trip.ID)
	if err != nil {
		return 0, err
	}

	occupied := 0
	for _, b := range active {
		occupied += b.Passengers
	}

	return trip.Seats - occupied, nil
}

// routeReaches reports whether the trip's end point, or any vertex of its
// existing route, lies within the radius of the rider's dropoff.
func routeReaches(trip *domain.Trip, dropoff domain.Point, radiusMeters float64) bool {
	if geo.WithinRadius(trip.End, dropoff, radiusMeters) {
		return true
	}
	for _, wp := range trip.Waypoints {
		if geo.WithinRadius(wp.Point, dropoff, radiusMeters) {
			return true
		}
	}
	return false
}
