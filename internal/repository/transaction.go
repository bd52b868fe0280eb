package repository

import (
	"context"

	"carpool/internal/domain"
)

// TransactionRepository defines the persistence operations for the payment
// ledger. Entries are immutable once written.
type TransactionRepository interface {
	// Create persists a new ledger entry. Returns ErrDuplicate if an entry
	// for the same gateway order id already exists; the uniqueness check is
	// atomic with the insert.
	Create(ctx context.Context, txn *domain.Transaction) error

	// GetByOrderID retrieves a ledger entry by gateway order id.
	GetByOrderID(ctx context.Context, gateway, orderID string) (*domain.Transaction, error)

	// ListByBookingID retrieves all ledger entries for a booking.
	ListByBookingID(ctx context.Context, bookingID string) ([]*domain.Transaction, error)
}
