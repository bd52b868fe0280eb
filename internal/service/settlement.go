package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/lifecycle"
	"carpool/internal/payment"
	"carpool/internal/repository"
	"carpool/internal/repository/postgres"
)

// amountTolerance absorbs gateway-side rounding on the wire amount.
const amountTolerance = 0.5

// SettlementService reconciles payments against the transaction ledger.
// Settlement is idempotent: the ledger's uniqueness guard on
// (gateway, order id) makes every path settle a booking at most once.
type SettlementService struct {
	db          *sql.DB
	bookingRepo repository.BookingRepository
	ledger      repository.TransactionRepository
	gateways    *payment.Registry
	notifier    Notifier
}

// NewSettlementService creates a new SettlementService. notifier may be nil.
func NewSettlementService(
	db *sql.DB,
	bookingRepo repository.BookingRepository,
	ledger repository.TransactionRepository,
	gateways *payment.Registry,
	notifier Notifier,
) *SettlementService {
	return &SettlementService{
		db:          db,
		bookingRepo: bookingRepo,
		ledger:      ledger,
		gateways:    gateways,
		notifier:    notifier,
	}
}

// CreatePayment builds a signed redirect URL for an electronic booking.
func (s *SettlementService) CreatePayment(ctx context.Context, bookingID, riderID string) (string, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if riderID != "" && booking.RiderID != riderID {
		return "", ErrBookingNotFound
	}
	if !booking.PaymentMethod.Electronic() {
		return "", ErrNotElectronicPayment
	}

	gw, err := s.gateways.Get(string(booking.PaymentMethod))
	if err != nil {
		return "", err
	}

	orderID := uuid.New().String()
	return gw.BuildRedirectURL(booking, orderID)
}

// SettleCash finishes a cash booking and records its ledger entry. Called
// when the driver marks the rider's dropoff stop as completed. Settling an
// already finished booking is a no-op.
func (s *SettlementService) SettleCash(ctx context.Context, bookingID string) (err error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status == domain.BookingStatusFinished {
		return nil
	}
	if booking.PaymentMethod != domain.PaymentMethodCash {
		return fmt.Errorf("booking %s does not pay cash", bookingID)
	}
	if err = lifecycle.BookingTransition(booking.Status, domain.BookingStatusFinished); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txBookingRepo := postgres.NewBookingRepositoryWithTx(tx)
	txLedger := postgres.NewTransactionRepositoryWithTx(tx)

	if err = createCashLedgerEntry(ctx, txLedger, booking); err != nil {
		return err
	}
	if err = txBookingRepo.UpdatePayment(ctx, bookingID, domain.PaymentStateSuccess); err != nil {
		return err
	}
	if err = txBookingRepo.UpdateStatus(ctx, bookingID, domain.BookingStatusFinished); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.BookingFinished(booking.TripID, bookingID)
	}

	return nil
}

// HandleCallback processes a gateway return or IPN call. The returned ack
// status tells the handler what to send back in the gateway's own shape;
// the error carries the failure for logging. Signature verification happens
// before any state is touched.
func (s *SettlementService) HandleCallback(ctx context.Context, gatewayName string, params url.Values) (payment.AckStatus, error) {
	gw, err := s.gateways.Get(gatewayName)
	if err != nil {
		return payment.AckError, err
	}

	result, err := gw.VerifyCallback(params)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return payment.AckInvalidSignature, err
		}
		return payment.AckError, err
	}

	booking, err := s.getBooking(ctx, result.BookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return payment.AckOrderNotFound, err
		}
		return payment.AckError, err
	}

	if !result.Success {
		// The rider abandoned or the gateway declined. Record the failure
		// so a retry can still follow; never touch the booking status. A
		// failure replayed after settlement must not regress SUCCESS, so
		// it is acknowledged without a write.
		if lifecycle.PaymentTransition(booking.PaymentState, domain.PaymentStateFailed) != nil {
			return payment.AckOK, nil
		}
		if err := s.bookingRepo.UpdatePayment(ctx, booking.ID, domain.PaymentStateFailed); err != nil {
			return payment.AckError, err
		}
		return payment.AckOK, nil
	}

	if math.Abs(result.Amount-booking.TotalPrice) > amountTolerance {
		return payment.AckAmountMismatch, ErrAmountMismatch
	}

	// A booking already paid cannot be paid again, even under a fresh
	// order id. Replays under the original order id hit the ledger's
	// uniqueness guard inside confirm as well.
	if lifecycle.PaymentTransition(booking.PaymentState, domain.PaymentStateSuccess) != nil {
		return payment.AckAlreadyConfirmed, ErrDuplicateCallback
	}

	if err := s.confirm(ctx, gw.Name(), result, booking); err != nil {
		if errors.Is(err, ErrDuplicateCallback) {
			return payment.AckAlreadyConfirmed, err
		}
		return payment.AckError, err
	}

	return payment.AckOK, nil
}

// confirm records the settlement atomically. The ledger insert is the
// idempotency gate: a replayed callback hits the uniqueness guard and no
// state is changed.
func (s *SettlementService) confirm(ctx context.Context, gateway string, result *payment.CallbackResult, booking *domain.Booking) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txBookingRepo := postgres.NewBookingRepositoryWithTx(tx)
	txLedger := postgres.NewTransactionRepositoryWithTx(tx)

	err = txLedger.Create(ctx, &domain.Transaction{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		Gateway:        gateway,
		GatewayOrderID: result.OrderID,
		Amount:         result.Amount,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDuplicateCallback
		}
		return err
	}

	if err = txBookingRepo.UpdatePayment(ctx, booking.ID, domain.PaymentStateSuccess); err != nil {
		return err
	}

	finished := false
	if booking.Status == domain.BookingStatusEnding {
		// The trip already finished while payment was pending; the gateway
		// confirmation is the last thing the booking was waiting on.
		if err = txBookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingStatusFinished); err != nil {
			return err
		}
		finished = true
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	if finished && s.notifier != nil {
		s.notifier.BookingFinished(booking.TripID, booking.ID)
	}

	return nil
}

func (s *SettlementService) getBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}
