package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, e.g. a second ledger entry for the same gateway order id.
	ErrDuplicate = errors.New("entity already exists")
)
