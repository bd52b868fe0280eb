package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"carpool/internal/middleware"
	"carpool/internal/payment"
	"carpool/internal/service"
)

// PaymentHandler handles HTTP requests for gateway payments.
type PaymentHandler struct {
	settlement *service.SettlementService
	gateways   *payment.Registry
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlement *service.SettlementService, gateways *payment.Registry) *PaymentHandler {
	return &PaymentHandler{settlement: settlement, gateways: gateways}
}

// CreatePaymentRequest is the HTTP request body for creating a payment.
type CreatePaymentRequest struct {
	BookingID string `json:"booking_id"`
}

// CreatePaymentResponse carries the gateway redirect URL.
type CreatePaymentResponse struct {
	PayURL string `json:"pay_url"`
}

// CreatePayment handles POST /v1/rider/payment
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BookingID == "" {
		respondError(c, service.ErrBookingNotFound)
		return
	}

	payURL, err := h.settlement.CreatePayment(c.Request.Context(), req.BookingID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CreatePaymentResponse{PayURL: payURL})
}

// callbackParams merges query and form parameters. Gateways differ: some
// redirect with query strings, some post form-encoded bodies.
func callbackParams(c *gin.Context) url.Values {
	if err := c.Request.ParseForm(); err != nil {
		return c.Request.URL.Query()
	}
	return c.Request.Form
}

// Return handles GET /v1/rider/payment/:gateway/return, the browser redirect
// back from the gateway. It settles the booking if the IPN has not arrived
// yet; a duplicate here just means the IPN won the race.
func (h *PaymentHandler) Return(c *gin.Context) {
	status, err := h.settlement.HandleCallback(c.Request.Context(), c.Param("gateway"), callbackParams(c))
	switch status {
	case payment.AckOK, payment.AckAlreadyConfirmed:
		respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
	default:
		respondError(c, err)
	}
}

// IPN handles GET|POST /v1/rider/payment/:gateway/ipn, the server-to-server
// confirmation. The response body is always in the gateway's own shape so
// it stops retrying; failures surface only through the ack code.
func (h *PaymentHandler) IPN(c *gin.Context) {
	gatewayName := c.Param("gateway")

	gw, err := h.gateways.Get(gatewayName)
	if err != nil {
		respondError(c, err)
		return
	}

	status, _ := h.settlement.HandleCallback(c.Request.Context(), gatewayName, callbackParams(c))

	code, body := gw.IPNAck(status)
	c.JSON(code, body)
}
