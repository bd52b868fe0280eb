package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/middleware"
	"carpool/internal/redis"
	"carpool/internal/service"
)

// TripHandler handles HTTP requests for the driver's trip lifecycle.
type TripHandler struct {
	tripService *service.TripService
	locations   redis.LocationStoreInterface
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService, locations redis.LocationStoreInterface) *TripHandler {
	return &TripHandler{tripService: tripService, locations: locations}
}

// WaypointResponse is one route stop in a trip response.
type WaypointResponse struct {
	ID               string  `json:"id"`
	BookingID        string  `json:"booking_id,omitempty"`
	Role             string  `json:"role"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	CumulativeMeters float64 `json:"cumulative_meters"`
	CumulativeSecs   int64   `json:"cumulative_seconds"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID           string             `json:"id"`
	DriverID     string             `json:"driver_id"`
	VehicleID    string             `json:"vehicle_id"`
	Seats        int                `json:"seats"`
	StartLat     float64            `json:"start_lat"`
	StartLng     float64            `json:"start_lng"`
	EndLat       float64            `json:"end_lat"`
	EndLng       float64            `json:"end_lng"`
	Waypoints    []WaypointResponse `json:"waypoints,omitempty"`
	TotalMeters  float64            `json:"total_meters"`
	TotalSeconds int64              `json:"total_seconds"`
	DepartureAt  string             `json:"departure_at"`
	Status       string             `json:"status"`
}

// LocationResponse is the last reported driver position.
type LocationResponse struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// StartTrip handles POST /v1/driver/trip/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	trip, err := h.tripService.StartTrip(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// FinishTrip handles POST /v1/driver/trip/:id/finish
func (h *TripHandler) FinishTrip(c *gin.Context) {
	trip, err := h.tripService.FinishTrip(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetTrip handles GET /v1/driver/trip/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// UpdateLocationRequest is the body for the REST location fallback.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation handles POST /v1/driver/trip/:id/location, the REST fallback
// for drivers without a websocket connection.
func (h *TripHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	if !geo.Valid(domain.Point{Lat: req.Lat, Lng: req.Lng}) {
		respondError(c, service.ErrInvalidGeometry)
		return
	}

	if err := h.locations.UpdateLocation(c.Request.Context(), middleware.UserID(c), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// GetLocation handles GET /v1/rider/trip/:id/location, the polling fallback
// for clients without a websocket connection.
func (h *TripHandler) GetLocation(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	loc, err := h.locations.GetLocation(c.Request.Context(), trip.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	if loc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no location reported"})
		return
	}

	respondJSON(c, http.StatusOK, LocationResponse{
		DriverID: trip.DriverID,
		Lat:      loc.Lat,
		Lng:      loc.Lng,
	})
}

func toTripResponse(t *domain.Trip) TripResponse {
	response := TripResponse{
		ID:           t.ID,
		DriverID:     t.DriverID,
		VehicleID:    t.VehicleID,
		Seats:        t.Seats,
		StartLat:     t.Start.Lat,
		StartLng:     t.Start.Lng,
		EndLat:       t.End.Lat,
		EndLng:       t.End.Lng,
		TotalMeters:  t.TotalMeters,
		TotalSeconds: t.TotalSeconds,
		DepartureAt:  t.DepartureAt.Format(time.RFC3339),
		Status:       string(t.Status),
	}

	for _, wp := range t.Waypoints {
		response.Waypoints = append(response.Waypoints, WaypointResponse{
			ID:               wp.ID,
			BookingID:        wp.BookingID,
			Role:             string(wp.Role),
			Lat:              wp.Point.Lat,
			Lng:              wp.Point.Lng,
			CumulativeMeters: wp.CumulativeMeters,
			CumulativeSecs:   wp.CumulativeSeconds,
		})
	}

	return response
}
