// Package lifecycle holds the legal status transitions for trips, bookings,
// and payment settlement. Transitions are checked centrally here rather than
// trusted to callers; statuses never regress.
package lifecycle

import (
	"errors"
	"fmt"

	"carpool/internal/domain"
)

// ErrIllegalTransition is returned for any transition not in the tables.
var ErrIllegalTransition = errors.New("illegal status transition")

var tripTransitions = map[domain.TripStatus][]domain.TripStatus{
	domain.TripStatusScheduled:  {domain.TripStatusInProgress, domain.TripStatusCancelled},
	domain.TripStatusInProgress: {domain.TripStatusCompleted},
	domain.TripStatusCompleted:  {},
	domain.TripStatusCancelled:  {},
}

var bookingTransitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingStatusPending:  {domain.BookingStatusProcess, domain.BookingStatusEnding, domain.BookingStatusFinished, domain.BookingStatusCanceled},
	domain.BookingStatusProcess:  {domain.BookingStatusEnding, domain.BookingStatusFinished, domain.BookingStatusCanceled},
	domain.BookingStatusEnding:   {domain.BookingStatusFinished},
	domain.BookingStatusFinished: {},
	domain.BookingStatusCanceled: {},
}

var paymentTransitions = map[domain.PaymentState][]domain.PaymentState{
	domain.PaymentStatePending: {domain.PaymentStateSuccess, domain.PaymentStateFailed},
	// A failed electronic payment may be retried and later succeed.
	domain.PaymentStateFailed:  {domain.PaymentStateSuccess},
	domain.PaymentStateSuccess: {},
}

// TripTransition validates a trip status change.
func TripTransition(from, to domain.TripStatus) error {
	return check("trip", string(from), string(to), contains(tripTransitions[from], to))
}

// BookingTransition validates a booking status change.
func BookingTransition(from, to domain.BookingStatus) error {
	return check("booking", string(from), string(to), contains(bookingTransitions[from], to))
}

// PaymentTransition validates a payment state change.
func PaymentTransition(from, to domain.PaymentState) error {
	return check("payment", string(from), string(to), contains(paymentTransitions[from], to))
}

func contains[T comparable](allowed []T, to T) bool {
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func check(kind, from, to string, ok bool) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s %s -> %s", ErrIllegalTransition, kind, from, to)
}
