package realtime

import (
	"context"
	"encoding/json"

	"carpool/internal/domain"
)

// Event names exchanged over the websocket. Inbound names are sent by
// clients, outbound names by the server.
const (
	EventTripJoin             = "trip:join"
	EventDriverLocationUpdate = "location:driver:update"
	EventTripStatusUpdate     = "trip:status:update"

	EventShareDriverLocation = "share:location:driver"
	EventBookingStatusUpdate = "booking:status:update"
	EventBookingFinished     = "booking:finished"
	EventTripStartedSignal   = "trip:started:signal"
	EventError               = "error"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload subscribes the client to a trip room.
type JoinPayload struct {
	TripID string `json:"trip_id"`
}

// DriverLocationPayload carries a driver position fix.
type DriverLocationPayload struct {
	TripID string  `json:"trip_id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// StopStatusPayload reports progress at one route stop.
type StopStatusPayload struct {
	TripID     string `json:"trip_id"`
	BookingID  string `json:"booking_id"`
	WaypointID string `json:"waypoint_id"`
	Status     string `json:"status"`
}

// BookingEventPayload identifies a booking within its trip.
type BookingEventPayload struct {
	TripID    string `json:"trip_id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status,omitempty"`
}

// TripStartedPayload announces a departing trip to every connected client.
type TripStartedPayload struct {
	TripID   string `json:"trip_id"`
	DriverID string `json:"driver_id"`
}

// EventSink receives the inbound events that carry side effects. The hub
// stays a pure broadcaster; state changes happen behind this interface.
type EventSink interface {
	DriverLocation(ctx context.Context, driverID, tripID string, loc domain.Point) error
	StopStatus(ctx context.Context, tripID, bookingID, waypointID string, status domain.StopStatus) error
}

func marshalEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
