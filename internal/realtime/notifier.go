package realtime

import "carpool/internal/domain"

// Notifier publishes lifecycle events through the hub. It satisfies the
// notification interface the services expect.
type Notifier struct {
	hub *Hub
}

// NewNotifier creates a new Notifier.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// TripStarted announces a departure to every connected client so riders not
// yet in the room learn their trip left.
func (n *Notifier) TripStarted(trip *domain.Trip) {
	n.hub.BroadcastAll(EventTripStartedSignal, TripStartedPayload{
		TripID:   trip.ID,
		DriverID: trip.DriverID,
	})
}

// TripFinished tells the trip room the trip completed.
func (n *Notifier) TripFinished(trip *domain.Trip) {
	n.hub.BroadcastToTrip(trip.ID, EventBookingStatusUpdate, BookingEventPayload{
		TripID: trip.ID,
		Status: string(trip.Status),
	})
}

// BookingFinished tells the trip room a booking fully settled.
func (n *Notifier) BookingFinished(tripID, bookingID string) {
	n.hub.BroadcastToTrip(tripID, EventBookingFinished, BookingEventPayload{
		TripID:    tripID,
		BookingID: bookingID,
	})
}
