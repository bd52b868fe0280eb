package domain

import "time"

// TripStatus represents the current status of a scheduled trip.
type TripStatus string

const (
	TripStatusScheduled  TripStatus = "SCHEDULED"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
	TripStatusCompleted  TripStatus = "COMPLETED"
	TripStatusCancelled  TripStatus = "CANCELLED"
)

// WaypointRole tags what a stop in the route means.
type WaypointRole string

const (
	WaypointRolePickup   WaypointRole = "PICKUP"
	WaypointRoleDropoff  WaypointRole = "DROPOFF"
	WaypointRoleWaypoint WaypointRole = "WAYPOINT"
)

// StopStatus is per-stop progress reported over the realtime channel.
// It is not persisted; "dropped" on a booking's dropoff stop triggers
// settlement, "ongoing" signals trip start.
type StopStatus string

const (
	StopStatusArrived StopStatus = "arrived"
	StopStatusPicked  StopStatus = "picked"
	StopStatusDropped StopStatus = "dropped"
	StopStatusOngoing StopStatus = "ongoing"
)

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Waypoint is one stop within a trip's ordered route.
// BookingID is empty for trip-only stops.
type Waypoint struct {
	ID                string
	TripID            string
	BookingID         string
	Role              WaypointRole
	Point             Point
	CumulativeMeters  float64
	CumulativeSeconds int64
}

// Trip is a driver's pre-scheduled multi-stop run.
// Invariant: the sum of active bookings' passenger counts never exceeds Seats.
type Trip struct {
	ID           string
	DriverID     string
	VehicleID    string
	Seats        int
	Start        Point
	End          Point
	Waypoints    []Waypoint
	TotalMeters  float64
	TotalSeconds int64
	DepartureAt  time.Time
	Status       TripStatus
	CreatedAt    time.Time
}
