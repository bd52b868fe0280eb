package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `id, driver_id, vehicle_id, seats, start_lat, start_lng, end_lat, end_lng,
		total_meters, total_seconds, departure_at, status, created_at`

// Create persists a new trip with its waypoints.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.DriverID,
		trip.VehicleID,
		trip.Seats,
		trip.Start.Lat,
		trip.Start.Lng,
		trip.End.Lat,
		trip.End.Lng,
		trip.TotalMeters,
		trip.TotalSeconds,
		trip.DepartureAt,
		trip.Status,
		trip.CreatedAt,
	)
	if err != nil {
		return err
	}

	return r.replaceWaypoints(ctx, trip.ID, trip.Waypoints)
}

// GetByID retrieves a trip with its ordered waypoints.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a trip and row-locks it (SELECT ... FOR UPDATE).
// Concurrent booking writers on the same trip serialize here.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return r.getByID(ctx, id, true)
}

func (r *TripRepository) getByID(ctx context.Context, id string, forUpdate bool) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	trip.Waypoints, err = r.waypoints(ctx, id)
	if err != nil {
		return nil, err
	}

	return trip, nil
}

// ListByDeparture retrieves trips in any of the given statuses departing on
// the given calendar day.
func (r *TripRepository) ListByDeparture(ctx context.Context, day time.Time, statuses []domain.TripStatus) ([]*domain.Trip, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE departure_at >= $1 AND departure_at < $2 AND status = ANY($3)
		ORDER BY departure_at
	`

	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	rows, err := r.q.QueryContext(ctx, query, dayStart, dayEnd, pq.Array(statusStrings))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, trip := range trips {
		if trip.Waypoints, err = r.waypoints(ctx, trip.ID); err != nil {
			return nil, err
		}
	}

	return trips, nil
}

// UpdateRoute replaces the trip's waypoint list and aggregate totals.
func (r *TripRepository) UpdateRoute(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET total_meters = $1, total_seconds = $2
		WHERE id = $3
	`

	result, err := r.q.ExecContext(ctx, query, trip.TotalMeters, trip.TotalSeconds, trip.ID)
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

	return r.replaceWaypoints(ctx, trip.ID, trip.Waypoints)
}

// UpdateStatus updates a trip's status.
func (r *TripRepository) UpdateStatus(ctx context.Context, id string, status domain.TripStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE trips SET status = $1 WHERE id = $2`, status, id)
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

func (r *TripRepository) waypoints(ctx context.Context, tripID string) ([]domain.Waypoint, error) {
	query := `
		SELECT id, trip_id, booking_id, role, lat, lng, cumulative_meters, cumulative_seconds
		FROM trip_waypoints
		WHERE trip_id = $1
		ORDER BY position
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waypoints []domain.Waypoint
	for rows.Next() {
		var wp domain.Waypoint
		var bookingID sql.NullString

		if err := rows.Scan(
			&wp.ID,
			&wp.TripID,
			&bookingID,
			&wp.Role,
			&wp.Point.Lat,
			&wp.Point.Lng,
			&wp.CumulativeMeters,
			&wp.CumulativeSeconds,
		); err != nil {
			return nil, err
		}

		if bookingID.Valid {
			wp.BookingID = bookingID.String
		}
		waypoints = append(waypoints, wp)
	}

	return waypoints, rows.Err()
}

func (r *TripRepository) replaceWaypoints(ctx context.Context, tripID string, waypoints []domain.Waypoint) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM trip_waypoints WHERE trip_id = $1`, tripID); err != nil {
		return err
	}

	query := `
		INSERT INTO trip_waypoints (id, trip_id, booking_id, role, lat, lng, cumulative_meters, cumulative_seconds, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for i, wp := range waypoints {
		var bookingID sql.NullString
		if wp.BookingID != "" {
			bookingID = sql.NullString{String: wp.BookingID, Valid: true}
		}

		if _, err := r.q.ExecContext(ctx, query,
			wp.ID,
			tripID,
			bookingID,
			wp.Role,
			wp.Point.Lat,
			wp.Point.Lng,
			wp.CumulativeMeters,
			wp.CumulativeSeconds,
			i,
		); err != nil {
			return err
		}
	}

	return nil
}

func scanTrip(row interface{ Scan(...any) error }) (*domain.Trip, error) {
	var trip domain.Trip
	err := row.Scan(
		&trip.ID,
		&trip.DriverID,
		&trip.VehicleID,
		&trip.Seats,
		&trip.Start.Lat,
		&trip.Start.Lng,
		&trip.End.Lat,
		&trip.End.Lng,
		&trip.TotalMeters,
		&trip.TotalSeconds,
		&trip.DepartureAt,
		&trip.Status,
		&trip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
