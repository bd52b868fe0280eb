package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// BookingHandler handles HTTP requests for matching and bookings.
type BookingHandler struct {
	matchingService *service.MatchingService
	bookingService  *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(matchingService *service.MatchingService, bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{
		matchingService: matchingService,
		bookingService:  bookingService,
	}
}

// MatchTripsRequest is the HTTP request body for searching trips.
type MatchTripsRequest struct {
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DropoffLat    float64 `json:"dropoff_lat"`
	DropoffLng    float64 `json:"dropoff_lng"`
	Passengers    int     `json:"passengers"`
	DepartureDate string  `json:"departure_date"` // YYYY-MM-DD
	RadiusKm      float64 `json:"radius_km,omitempty"`
}

// MatchTripsResponse is the search response envelope.
type MatchTripsResponse struct {
	Size  int                 `json:"size"`
	Trips []CandidateResponse `json:"trips"`
}

// CandidateResponse is one matched trip in the search response.
type CandidateResponse struct {
	TripID             string  `json:"trip_id"`
	DriverID           string  `json:"driver_id"`
	VehicleID          string  `json:"vehicle_id"`
	SeatsLeft          int     `json:"seats_left"`
	DepartureAt        string  `json:"departure_at"`
	EstimatedPickupAt  string  `json:"estimated_pickup_at"`
	EstimatedDropoffAt string  `json:"estimated_dropoff_at"`
	EstimatedPrice     float64 `json:"estimated_price"`
	EstimatedTotal     float64 `json:"estimated_total"`
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	TripID        string  `json:"trip_id"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DropoffLat    float64 `json:"dropoff_lat"`
	DropoffLng    float64 `json:"dropoff_lng"`
	DepartureAt   string  `json:"departure_at"`
	Passengers    int     `json:"passengers"`
	PaymentMethod string  `json:"payment_method"` // CASH, VNPAY, MOMO
	Price         float64 `json:"price,omitempty"`
}

// RateBookingRequest is the HTTP request body for rating a finished booking.
type RateBookingRequest struct {
	Rating int    `json:"rating"`
	Note   string `json:"note,omitempty"`
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	ID              string  `json:"id"`
	TripID          string  `json:"trip_id"`
	RiderID         string  `json:"rider_id"`
	PickupLat       float64 `json:"pickup_lat"`
	PickupLng       float64 `json:"pickup_lng"`
	DropoffLat      float64 `json:"dropoff_lat"`
	DropoffLng      float64 `json:"dropoff_lng"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int64   `json:"duration_seconds"`
	Price           float64 `json:"price"`
	TotalPrice      float64 `json:"total_price"`
	Passengers      int     `json:"passengers"`
	Status          string  `json:"status"`
	PaymentState    string  `json:"payment_state"`
	PaymentMethod   string  `json:"payment_method"`
	Rating          int     `json:"rating,omitempty"`
	Note            string  `json:"note,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// MatchTrips handles POST /v1/rider/booking/matching-trips
func (h *BookingHandler) MatchTrips(c *gin.Context) {
	var req MatchTripsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidGeometry)
		return
	}

	candidates, err := h.matchingService.Match(c.Request.Context(), service.MatchRequest{
		Pickup:        domain.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		Dropoff:       domain.Point{Lat: req.DropoffLat, Lng: req.DropoffLng},
		Passengers:    req.Passengers,
		DepartureDate: req.DepartureDate,
		RadiusKm:      req.RadiusKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	trips := make([]CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		trips = append(trips, CandidateResponse{
			TripID:             cand.Trip.ID,
			DriverID:           cand.Trip.DriverID,
			VehicleID:          cand.Trip.VehicleID,
			SeatsLeft:          cand.SeatsLeft,
			DepartureAt:        cand.Trip.DepartureAt.Format(time.RFC3339),
			EstimatedPickupAt:  cand.EstimatedPickupAt.Format(time.RFC3339),
			EstimatedDropoffAt: cand.EstimatedDropoffAt.Format(time.RFC3339),
			EstimatedPrice:     cand.EstimatedPrice,
			EstimatedTotal:     cand.EstimatedTotal,
		})
	}

	respondJSON(c, http.StatusOK, MatchTripsResponse{Size: len(trips), Trips: trips})
}

// CreateBooking handles POST /v1/rider/booking
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidGeometry)
		return
	}

	departureAt, err := time.Parse(time.RFC3339, req.DepartureAt)
	if err != nil {
		respondError(c, service.ErrInvalidDate)
		return
	}

	createReq := service.CreateBookingRequest{
		TripID:        req.TripID,
		RiderID:       middleware.UserID(c),
		Pickup:        domain.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		Dropoff:       domain.Point{Lat: req.DropoffLat, Lng: req.DropoffLng},
		DepartureAt:   departureAt,
		Passengers:    req.Passengers,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	}
	if req.Price > 0 {
		createReq.PriceOverride = &req.Price
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), createReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/rider/booking/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CancelBooking handles POST /v1/rider/booking/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// RateBooking handles POST /v1/rider/booking/:id/rate
func (h *BookingHandler) RateBooking(c *gin.Context) {
	var req RateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidRating)
		return
	}

	err := h.bookingService.RateBooking(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Rating, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		TripID:          b.TripID,
		RiderID:         b.RiderID,
		PickupLat:       b.Pickup.Lat,
		PickupLng:       b.Pickup.Lng,
		DropoffLat:      b.Dropoff.Lat,
		DropoffLng:      b.Dropoff.Lng,
		DistanceMeters:  b.DistanceMeters,
		DurationSeconds: b.DurationSeconds,
		Price:           b.Price,
		TotalPrice:      b.TotalPrice,
		Passengers:      b.Passengers,
		Status:          string(b.Status),
		PaymentState:    string(b.PaymentState),
		PaymentMethod:   string(b.PaymentMethod),
		Rating:          b.Rating,
		Note:            b.Note,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
}
