// Package distance wraps the external distance-computation service.
package distance

import (
	"context"
	"errors"

	"carpool/internal/domain"
)

// ErrUnavailable is returned when the distance service cannot answer.
// A caller holding a storage transaction must abort on it; nothing is
// partially committed.
var ErrUnavailable = errors.New("distance service unavailable")

// Leg is the authoritative distance and duration for one hop of a route.
type Leg struct {
	Meters  float64
	Seconds int64
}

// Matrix computes per-leg distance and duration along an ordered route
// starting at origin. The result has exactly one Leg per destination, in
// order: legs[0] is origin -> destinations[0], legs[i] is
// destinations[i-1] -> destinations[i].
type Matrix interface {
	Route(ctx context.Context, origin domain.Point, destinations []domain.Point) ([]Leg, error)
}
