package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/lifecycle"
	"carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/repository/postgres"
)

// Notifier publishes trip and booking events to connected clients. All
// methods are fire-and-forget; delivery is at-most-once.
type Notifier interface {
	TripStarted(trip *domain.Trip)
	TripFinished(trip *domain.Trip)
	BookingFinished(tripID, bookingID string)
}

// TripService drives the trip lifecycle and cascades booking status changes.
type TripService struct {
	db          *sql.DB
	tripRepo    repository.TripRepository
	bookingRepo repository.BookingRepository
	locations   redis.LocationStoreInterface
	notifier    Notifier
}

// NewTripService creates a new TripService. locations and notifier may be nil.
func NewTripService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	bookingRepo repository.BookingRepository,
	locations redis.LocationStoreInterface,
	notifier Notifier,
) *TripService {
	return &TripService{
		db:          db,
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
		locations:   locations,
		notifier:    notifier,
	}
}

// StartTrip moves a scheduled trip to IN_PROGRESS and every active booking
// to PROCESS, atomically.
func (s *TripService) StartTrip(ctx context.Context, tripID, driverID string) (trip *domain.Trip, err error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	trip, err = s.getDriverTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}

	if err = lifecycle.TripTransition(trip.Status, domain.TripStatusInProgress); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txTripRepo := postgres.NewTripRepositoryWithTx(tx)
	txBookingRepo := postgres.NewBookingRepositoryWithTx(tx)

	if err = txTripRepo.UpdateStatus(ctx, tripID, domain.TripStatusInProgress); err != nil {
		return nil, err
	}

	active, err := txBookingRepo.ListActiveByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	for _, booking := range active {
		if booking.Status != domain.BookingStatusPending {
			continue
		}
		if err = txBookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingStatusProcess); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatusInProgress

	if s.notifier != nil {
		s.notifier.TripStarted(trip)
	}

	return trip, nil
}

// FinishTrip completes an in-progress trip and settles every booking still
// active: cash bookings settle synchronously with one ledger entry;
// electronic bookings become FINISHED if the gateway already confirmed,
// otherwise ENDING until it does.
func (s *TripService) FinishTrip(ctx context.Context, tripID, driverID string) (trip *domain.Trip, err error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	trip, err = s.getDriverTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}

	if err = lifecycle.TripTransition(trip.Status, domain.TripStatusCompleted); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txTripRepo := postgres.NewTripRepositoryWithTx(tx)
	txBookingRepo := postgres.NewBookingRepositoryWithTx(tx)
	txLedger := postgres.NewTransactionRepositoryWithTx(tx)

	active, err := txBookingRepo.ListActiveByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	var finished []string
	for _, booking := range active {
		var next domain.BookingStatus

		switch {
		case booking.PaymentMethod == domain.PaymentMethodCash:
			if err = createCashLedgerEntry(ctx, txLedger, booking); err != nil {
				return nil, err
			}
			if err = txBookingRepo.UpdatePayment(ctx, booking.ID, domain.PaymentStateSuccess); err != nil {
				return nil, err
			}
			next = domain.BookingStatusFinished
		case booking.PaymentState == domain.PaymentStateSuccess:
			next = domain.BookingStatusFinished
		default:
			next = domain.BookingStatusEnding
		}

		if err = lifecycle.BookingTransition(booking.Status, next); err != nil {
			return nil, err
		}
		if err = txBookingRepo.UpdateStatus(ctx, booking.ID, next); err != nil {
			return nil, err
		}

		if next == domain.BookingStatusFinished {
			finished = append(finished, booking.ID)
		}
	}

	if err = txTripRepo.UpdateStatus(ctx, tripID, domain.TripStatusCompleted); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatusCompleted

	// The trip is over; stop sharing the driver's position. Best effort,
	// a stale entry only lingers until the driver's next trip.
	if s.locations != nil {
		_ = s.locations.RemoveLocation(ctx, trip.DriverID)
	}

	if s.notifier != nil {
		s.notifier.TripFinished(trip)
		for _, bookingID := range finished {
			s.notifier.BookingFinished(tripID, bookingID)
		}
	}

	return trip, nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

func (s *TripService) getDriverTrip(ctx context.Context, tripID, driverID string) (*domain.Trip, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != driverID {
		return nil, ErrDriverNotOnTrip
	}
	return trip, nil
}

// createCashLedgerEntry writes the single cash settlement entry for a
// booking. The synthetic order id makes re-settlement hit the ledger's
// uniqueness guard; a duplicate means the booking was already settled via
// the realtime dropped-stop path, which is fine.
func createCashLedgerEntry(ctx context.Context, ledger repository.TransactionRepository, booking *domain.Booking) error {
	err := ledger.Create(ctx, &domain.Transaction{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		Gateway:        "cash",
		GatewayOrderID: "cash-" + booking.ID,
		Amount:         booking.TotalPrice,
		CreatedAt:      time.Now(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}
