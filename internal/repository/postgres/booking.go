package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

const bookingColumns = `id, trip_id, rider_id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
		departure_at, distance_meters, duration_seconds, price, total_price, passengers,
		status, payment_state, payment_method, rating, note, created_at`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.TripID,
		booking.RiderID,
		booking.Pickup.Lat,
		booking.Pickup.Lng,
		booking.Dropoff.Lat,
		booking.Dropoff.Lng,
		booking.DepartureAt,
		booking.DistanceMeters,
		booking.DurationSeconds,
		booking.Price,
		booking.TotalPrice,
		booking.Passengers,
		booking.Status,
		booking.PaymentState,
		booking.PaymentMethod,
		booking.Rating,
		booking.Note,
		booking.CreatedAt,
	)

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return booking, nil
}

// ListByTripID retrieves all bookings on a trip.
func (r *BookingRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE trip_id = $1 ORDER BY created_at`
	return r.list(ctx, query, tripID)
}

// ListActiveByTripID retrieves bookings still occupying seats.
func (r *BookingRepository) ListActiveByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE trip_id = $1 AND status IN ($2, $3)
		ORDER BY created_at
	`
	return r.list(ctx, query, tripID, domain.BookingStatusPending, domain.BookingStatusProcess)
}

// UpdateStatus updates a booking's status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	return r.exec(ctx, `UPDATE bookings SET status = $1 WHERE id = $2`, status, id)
}

// UpdatePayment updates a booking's payment state.
func (r *BookingRepository) UpdatePayment(ctx context.Context, id string, state domain.PaymentState) error {
	return r.exec(ctx, `UPDATE bookings SET payment_state = $1 WHERE id = $2`, state, id)
}

// UpdateRating sets the rating and note on a booking.
func (r *BookingRepository) UpdateRating(ctx context.Context, id string, rating int, note string) error {
	return r.exec(ctx, `UPDATE bookings SET rating = $1, note = $2 WHERE id = $3`, rating, note, id)
}

func (r *BookingRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	var booking domain.Booking
	var rating sql.NullInt64
	var note sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.TripID,
		&booking.RiderID,
		&booking.Pickup.Lat,
		&booking.Pickup.Lng,
		&booking.Dropoff.Lat,
		&booking.Dropoff.Lng,
		&booking.DepartureAt,
		&booking.DistanceMeters,
		&booking.DurationSeconds,
		&booking.Price,
		&booking.TotalPrice,
		&booking.Passengers,
		&booking.Status,
		&booking.PaymentState,
		&booking.PaymentMethod,
		&rating,
		&note,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		booking.Rating = int(rating.Int64)
	}
	if note.Valid {
		booking.Note = note.String
	}

	return &booking, nil
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
