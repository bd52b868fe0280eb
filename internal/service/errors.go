package service

import "errors"

var (
	// ErrTripNotFound is returned when the referenced trip does not exist.
	ErrTripNotFound = errors.New("trip not found")

	// ErrBookingNotFound is returned when the referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidGeometry is returned for malformed pickup/dropoff coordinates.
	ErrInvalidGeometry = errors.New("invalid coordinates")

	// ErrInvalidPassengerCount is returned for a non-positive passenger count.
	ErrInvalidPassengerCount = errors.New("invalid passenger count")

	// ErrInvalidDate is returned for an unparsable departure date.
	ErrInvalidDate = errors.New("invalid departure date")

	// ErrMissingPaymentMethod is returned when a booking draft has no payment method.
	ErrMissingPaymentMethod = errors.New("payment method is required")

	// ErrInvalidRiderID is returned when the rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrTripNotBookable is returned when booking onto a trip that is no
	// longer in the SCHEDULED state.
	ErrTripNotBookable = errors.New("trip is not accepting bookings")

	// ErrInsufficientSeats is returned when a booking would exceed the
	// vehicle's remaining capacity.
	ErrInsufficientSeats = errors.New("insufficient seats remaining")

	// ErrTripBusy is returned when another booking is concurrently mutating
	// the same trip's route. Safe to retry.
	ErrTripBusy = errors.New("trip route is being modified, retry")

	// ErrDriverNotOnTrip is returned when a driver acts on a trip that is
	// not theirs.
	ErrDriverNotOnTrip = errors.New("driver not assigned to this trip")

	// ErrAmountMismatch is returned when a gateway callback's amount
	// disagrees with the booking price beyond tolerance.
	ErrAmountMismatch = errors.New("callback amount does not match booking price")

	// ErrDuplicateCallback is returned when a ledger entry already exists
	// for the callback's gateway order id.
	ErrDuplicateCallback = errors.New("duplicate payment callback")

	// ErrNotElectronicPayment is returned when a redirect URL is requested
	// for a cash booking.
	ErrNotElectronicPayment = errors.New("booking does not use an electronic payment method")

	// ErrBookingNotFinished is returned when rating a booking that has not
	// finished.
	ErrBookingNotFinished = errors.New("booking is not finished")

	// ErrInvalidRating is returned for a rating outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrBookingNotCancelable is returned when the booking's state forbids
	// cancellation.
	ErrBookingNotCancelable = errors.New("booking cannot be canceled in current state")
)
