package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

// TransactionRepository is a PostgreSQL implementation of
// repository.TransactionRepository. The ledger table carries a UNIQUE
// constraint on (gateway, gateway_order_id); the insert itself is the
// idempotency guard, never a separate existence check.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

// NewTransactionRepositoryWithTx creates a transaction repository using a transaction.
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create persists a new ledger entry. Returns repository.ErrDuplicate when
// the gateway order id has been recorded before.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, booking_id, gateway, gateway_order_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.BookingID,
		txn.Gateway,
		txn.GatewayOrderID,
		txn.Amount,
		txn.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// GetByOrderID retrieves a ledger entry by gateway order id.
func (r *TransactionRepository) GetByOrderID(ctx context.Context, gateway, orderID string) (*domain.Transaction, error) {
	query := `
		SELECT id, booking_id, gateway, gateway_order_id, amount, created_at
		FROM transactions
		WHERE gateway = $1 AND gateway_order_id = $2
	`

	var txn domain.Transaction
	err := r.q.QueryRowContext(ctx, query, gateway, orderID).Scan(
		&txn.ID,
		&txn.BookingID,
		&txn.Gateway,
		&txn.GatewayOrderID,
		&txn.Amount,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &txn, nil
}

// ListByBookingID retrieves all ledger entries for a booking.
func (r *TransactionRepository) ListByBookingID(ctx context.Context, bookingID string) ([]*domain.Transaction, error) {
	query := `
		SELECT id, booking_id, gateway, gateway_order_id, amount, created_at
		FROM transactions
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(
			&txn.ID,
			&txn.BookingID,
			&txn.Gateway,
			&txn.GatewayOrderID,
			&txn.Amount,
			&txn.CreatedAt,
		); err != nil {
			return nil, err
		}
		txns = append(txns, &txn)
	}

	return txns, rows.Err()
}

// Ensure TransactionRepository implements repository.TransactionRepository.
var _ repository.TransactionRepository = (*TransactionRepository)(nil)
