package domain

import "time"

// BookingStatus represents the current status of a rider's reservation.
type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "PENDING"
	BookingStatusProcess  BookingStatus = "PROCESS"
	BookingStatusEnding   BookingStatus = "ENDING"
	BookingStatusFinished BookingStatus = "FINISHED"
	BookingStatusCanceled BookingStatus = "CANCELED"
)

// PaymentState represents the settlement state of a booking's payment.
type PaymentState string

const (
	PaymentStatePending PaymentState = "PENDING"
	PaymentStateSuccess PaymentState = "SUCCESS"
	PaymentStateFailed  PaymentState = "FAILED"
)

// PaymentMethod represents how the rider pays.
// Cash settles synchronously on trip completion; electronic methods settle
// only through a verified gateway callback.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "CASH"
	PaymentMethodVNPay PaymentMethod = "VNPAY"
	PaymentMethodMoMo  PaymentMethod = "MOMO"
)

// Electronic reports whether settlement requires a gateway callback.
func (m PaymentMethod) Electronic() bool {
	return m != PaymentMethodCash
}

// Booking is one rider's reservation on a trip.
type Booking struct {
	ID              string
	TripID          string
	RiderID         string
	Pickup          Point
	Dropoff         Point
	DepartureAt     time.Time
	DistanceMeters  float64
	DurationSeconds int64
	// Price is the per-passenger fare; TotalPrice = Price * Passengers.
	Price         float64
	TotalPrice    float64
	Passengers    int
	Status        BookingStatus
	PaymentState  PaymentState
	PaymentMethod PaymentMethod
	Rating        int
	Note          string
	CreatedAt     time.Time
}

// Active reports whether the booking still occupies seats on its trip.
func (b *Booking) Active() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusProcess
}
