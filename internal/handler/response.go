package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/distance"
	"carpool/internal/lifecycle"
	"carpool/internal/payment"
	"carpool/internal/pricing"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidGeometry),
		errors.Is(err, service.ErrInvalidPassengerCount),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrMissingPaymentMethod),
		errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, payment.ErrUnknownGateway):
		return http.StatusBadRequest

	// Conflict errors - the request raced another writer or arrived in the
	// wrong lifecycle state
	case errors.Is(err, service.ErrTripNotBookable),
		errors.Is(err, service.ErrInsufficientSeats),
		errors.Is(err, service.ErrTripBusy),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrDuplicateCallback),
		errors.Is(err, service.ErrNotElectronicPayment),
		errors.Is(err, service.ErrBookingNotFinished),
		errors.Is(err, service.ErrBookingNotCancelable),
		errors.Is(err, lifecycle.ErrIllegalTransition):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrDriverNotOnTrip):
		return http.StatusForbidden

	// Upstream dependency failures
	case errors.Is(err, distance.ErrUnavailable),
		errors.Is(err, pricing.ErrConfigMissing):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
