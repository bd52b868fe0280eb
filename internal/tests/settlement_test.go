package tests

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/lifecycle"
	"carpool/internal/payment"
	"carpool/internal/repository"
	"carpool/internal/service"
)

const testVNPaySecret = "test-hash-secret"

func testVNPayGateway() *payment.VNPay {
	return payment.NewVNPay(payment.VNPayConfig{
		TmnCode:    "TESTCODE",
		HashSecret: testVNPaySecret,
		PayURL:     "https://sandbox.example/pay",
		ReturnURL:  "https://api.example/v1/rider/payment/vnpay/return",
	})
}

// signedVNPayCallback builds an IPN query string the way the gateway does:
// lowercase hex HMAC-SHA512 over the sorted, url-encoded parameters.
func signedVNPayCallback(bookingID, orderID string, amount float64, responseCode string) url.Values {
	params := url.Values{}
	params.Set("vnp_TmnCode", "TESTCODE")
	params.Set("vnp_TxnRef", orderID)
	params.Set("vnp_OrderInfo", bookingID)
	params.Set("vnp_Amount", strconv.FormatInt(int64(amount*100), 10))
	params.Set("vnp_ResponseCode", responseCode)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	mac := hmac.New(sha512.New, []byte(testVNPaySecret))
	mac.Write([]byte(b.String()))
	params.Set("vnp_SecureHash", hex.EncodeToString(mac.Sum(nil)))

	return params
}

// We can't use the real SettlementService here as it requires *sql.DB for
// the confirmation transaction. This replicates its callback flow: verify,
// look up, check the amount, write the ledger entry, then promote the
// booking.
func handleCallbackWithMocks(
	ctx context.Context,
	gw payment.Gateway,
	bookingRepo *MockBookingRepository,
	ledger *MockTransactionRepository,
	notifier *MockNotifier,
	params url.Values,
) (payment.AckStatus, error) {
	result, err := gw.VerifyCallback(params)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return payment.AckInvalidSignature, err
		}
		return payment.AckError, err
	}

	booking, err := bookingRepo.GetByID(ctx, result.BookingID)
	if err != nil {
		return payment.AckOrderNotFound, service.ErrBookingNotFound
	}

	if !result.Success {
		if lifecycle.PaymentTransition(booking.PaymentState, domain.PaymentStateFailed) != nil {
			return payment.AckOK, nil
		}
		if err := bookingRepo.UpdatePayment(ctx, booking.ID, domain.PaymentStateFailed); err != nil {
			return payment.AckError, err
		}
		return payment.AckOK, nil
	}

	if math.Abs(result.Amount-booking.TotalPrice) > 0.5 {
		return payment.AckAmountMismatch, service.ErrAmountMismatch
	}

	if lifecycle.PaymentTransition(booking.PaymentState, domain.PaymentStateSuccess) != nil {
		return payment.AckAlreadyConfirmed, service.ErrDuplicateCallback
	}

	err = ledger.Create(ctx, &domain.Transaction{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		Gateway:        gw.Name(),
		GatewayOrderID: result.OrderID,
		Amount:         result.Amount,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return payment.AckAlreadyConfirmed, service.ErrDuplicateCallback
		}
		return payment.AckError, err
	}

	if err := bookingRepo.UpdatePayment(ctx, booking.ID, domain.PaymentStateSuccess); err != nil {
		return payment.AckError, err
	}
	if booking.Status == domain.BookingStatusEnding {
		if err := bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingStatusFinished); err != nil {
			return payment.AckError, err
		}
		notifier.BookingFinished(booking.TripID, booking.ID)
	}

	return payment.AckOK, nil
}

func endingBooking(id string, total float64) *domain.Booking {
	return &domain.Booking{
		ID:            id,
		TripID:        "trip-1",
		RiderID:       "rider-1",
		Passengers:    1,
		TotalPrice:    total,
		Status:        domain.BookingStatusEnding,
		PaymentState:  domain.PaymentStatePending,
		PaymentMethod: domain.PaymentMethodVNPay,
	}
}

func TestSettlement_CallbackFinishesEndingBooking(t *testing.T) {
	ctx := context.Background()
	gw := testVNPayGateway()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	notifier := NewMockNotifier()

	bookingRepo.AddBooking(endingBooking("b1", 103500))
	params := signedVNPayCallback("b1", "order-1", 103500, "00")

	status, err := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if status != payment.AckOK {
		t.Fatalf("expected AckOK, got %v", status)
	}

	booking := bookingRepo.GetBooking("b1")
	if booking.Status != domain.BookingStatusFinished {
		t.Errorf("expected FINISHED booking, got %s", booking.Status)
	}
	if booking.PaymentState != domain.PaymentStateSuccess {
		t.Errorf("expected SUCCESS payment, got %s", booking.PaymentState)
	}
	if ledger.EntryCount() != 1 {
		t.Errorf("expected one ledger entry, got %d", ledger.EntryCount())
	}
	if len(notifier.FinishedBookings) != 1 {
		t.Errorf("expected one finish notification, got %d", len(notifier.FinishedBookings))
	}
}

func TestSettlement_DuplicateCallbackSettlesOnce(t *testing.T) {
	ctx := context.Background()
	gw := testVNPayGateway()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	notifier := NewMockNotifier()

	bookingRepo.AddBooking(endingBooking("b1", 103500))
	params := signedVNPayCallback("b1", "order-1", 103500, "00")

	if status, _ := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params); status != payment.AckOK {
		t.Fatalf("first callback: expected AckOK, got %v", status)
	}

	status, err := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params)
	if status != payment.AckAlreadyConfirmed {
		t.Fatalf("expected AckAlreadyConfirmed, got %v (err %v)", status, err)
	}
	if ledger.EntryCount() != 1 {
		t.Errorf("expected the replay to write nothing, got %d entries", ledger.EntryCount())
	}
	if len(notifier.FinishedBookings) != 1 {
		t.Errorf("expected one finish notification after replay, got %d", len(notifier.FinishedBookings))
	}
}

func TestSettlement_RejectsTamperedSignature(t *testing.T) {
	ctx := context.Background()
	gw := testVNPayGateway()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	notifier := NewMockNotifier()

	bookingRepo.AddBooking(endingBooking("b1", 103500))

	// Inflate the amount after signing.
	params := signedVNPayCallback("b1", "order-1", 103500, "00")
	params.Set("vnp_Amount", "99999900")

	status, err := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params)
	if status != payment.AckInvalidSignature {
		t.Fatalf("expected AckInvalidSignature, got %v (err %v)", status, err)
	}

	booking := bookingRepo.GetBooking("b1")
	if booking.Status != domain.BookingStatusEnding || booking.PaymentState != domain.PaymentStatePending {
		t.Error("expected tampered callback to leave the booking untouched")
	}
	if ledger.EntryCount() != 0 {
		t.Errorf("expected empty ledger, got %d entries", ledger.EntryCount())
	}
}

func TestSettlement_RejectsAmountMismatch(t *testing.T) {
	ctx := context.Background()
	gw := testVNPayGateway()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	notifier := NewMockNotifier()

	bookingRepo.AddBooking(endingBooking("b1", 103500))

	// Correctly signed, but for the wrong amount.
	params := signedVNPayCallback("b1", "order-1", 50000, "00")

	status, err := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params)
	if status != payment.AckAmountMismatch {
		t.Fatalf("expected AckAmountMismatch, got %v (err %v)", status, err)
	}
	if !errors.Is(err, service.ErrAmountMismatch) {
		t.Errorf("expected ErrAmountMismatch, got %v", err)
	}
	if ledger.EntryCount() != 0 {
		t.Errorf("expected empty ledger, got %d entries", ledger.EntryCount())
	}
}

func TestSettlement_FailureCodeMarksPaymentFailed(t *testing.T) {
	ctx := context.Background()
	gw := testVNPayGateway()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	notifier := NewMockNotifier()

	bookingRepo.AddBooking(endingBooking("b1", 103500))
	params := signedVNPayCallback("b1", "order-1", 103500, "24")

	status, err := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if status != payment.AckOK {
		t.Fatalf("expected AckOK for an acknowledged failure, got %v", status)
	}

	booking := bookingRepo.GetBooking("b1")
	if booking.PaymentState != domain.PaymentStateFailed {
		t.Errorf("expected FAILED payment, got %s", booking.PaymentState)
	}
	// The booking stays ENDING so a retried payment can still settle it.
	if booking.Status != domain.BookingStatusEnding {
		t.Errorf("expected booking to stay ENDING, got %s", booking.Status)
	}
	if ledger.EntryCount() != 0 {
		t.Errorf("expected no ledger entry for a failed payment, got %d", ledger.EntryCount())
	}
}

func TestSettlement_EarlyCallbackDoesNotFinishBooking(t *testing.T) {
	ctx := context.Background()
	gw := testVNPayGateway()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	notifier := NewMockNotifier()

	// The rider pays while the trip is still underway.
	booking := endingBooking("b1", 103500)
	booking.Status = domain.BookingStatusProcess
	bookingRepo.AddBooking(booking)

	params := signedVNPayCallback("b1", "order-1", 103500, "00")
	status, err := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if status != payment.AckOK {
		t.Fatalf("expected AckOK, got %v", status)
	}

	got := bookingRepo.GetBooking("b1")
	if got.PaymentState != domain.PaymentStateSuccess {
		t.Errorf("expected SUCCESS payment, got %s", got.PaymentState)
	}
	if got.Status != domain.BookingStatusProcess {
		t.Errorf("expected booking to stay PROCESS until the trip ends, got %s", got.Status)
	}
	if ledger.EntryCount() != 1 {
		t.Errorf("expected one ledger entry, got %d", ledger.EntryCount())
	}
}

// The failure branch and the already-settled guards never reach the
// confirmation transaction, so these two run against the real service.
func settledBooking(id string, total float64) *domain.Booking {
	b := endingBooking(id, total)
	b.Status = domain.BookingStatusFinished
	b.PaymentState = domain.PaymentStateSuccess
	return b
}

func TestSettlement_LateFailureKeepsSettledPayment(t *testing.T) {
	ctx := context.Background()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	gateways := payment.NewRegistry(testVNPayGateway())
	svc := service.NewSettlementService(nil, bookingRepo, ledger, gateways, nil)

	bookingRepo.AddBooking(settledBooking("b1", 103500))

	// A replayed or delayed failure IPN lands after the booking settled.
	params := signedVNPayCallback("b1", "order-2", 103500, "24")
	status, err := svc.HandleCallback(ctx, "vnpay", params)
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if status != payment.AckOK {
		t.Fatalf("expected AckOK so the gateway stops retrying, got %v", status)
	}

	got := bookingRepo.GetBooking("b1")
	if got.PaymentState != domain.PaymentStateSuccess {
		t.Errorf("payment state regressed from SUCCESS to %s", got.PaymentState)
	}
	if got.Status != domain.BookingStatusFinished {
		t.Errorf("expected booking to stay FINISHED, got %s", got.Status)
	}
}

func TestSettlement_FreshOrderCannotPayTwice(t *testing.T) {
	ctx := context.Background()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	gateways := payment.NewRegistry(testVNPayGateway())
	svc := service.NewSettlementService(nil, bookingRepo, ledger, gateways, nil)

	bookingRepo.AddBooking(settledBooking("b1", 103500))

	// Same booking, new order id: the ledger guard would not catch this.
	params := signedVNPayCallback("b1", "order-9", 103500, "00")
	status, err := svc.HandleCallback(ctx, "vnpay", params)
	if status != payment.AckAlreadyConfirmed {
		t.Fatalf("expected AckAlreadyConfirmed, got %v (err %v)", status, err)
	}
	if !errors.Is(err, service.ErrDuplicateCallback) {
		t.Errorf("expected ErrDuplicateCallback, got %v", err)
	}
	if ledger.EntryCount() != 0 {
		t.Errorf("expected no second ledger entry, got %d", ledger.EntryCount())
	}
}

func TestSettlement_UnknownOrderIsAcked(t *testing.T) {
	ctx := context.Background()
	gw := testVNPayGateway()
	bookingRepo := NewMockBookingRepository()
	ledger := NewMockTransactionRepository()
	notifier := NewMockNotifier()

	params := signedVNPayCallback("no-such-booking", "order-1", 103500, "00")

	status, err := handleCallbackWithMocks(ctx, gw, bookingRepo, ledger, notifier, params)
	if status != payment.AckOrderNotFound {
		t.Fatalf("expected AckOrderNotFound, got %v (err %v)", status, err)
	}
}
