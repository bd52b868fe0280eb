package domain

import "time"

// Transaction is an immutable ledger entry recording one settled charge.
// GatewayOrderID is the gateway's own order identifier; the storage layer
// enforces its uniqueness, which is what makes settlement idempotent under
// at-least-once callback delivery.
type Transaction struct {
	ID             string
	BookingID      string
	Gateway        string
	GatewayOrderID string
	Amount         float64
	CreatedAt      time.Time
}
