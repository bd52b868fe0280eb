// Package route orders a trip's stop list.
package route

import (
	"carpool/internal/domain"
	"carpool/internal/geo"
)

// Sequencer orders a trip's waypoints between its start and end anchors.
// Implementations must be deterministic for identical input order and must
// keep every booking's pickup before its dropoff. The end anchor is
// informational; a smarter implementation may use it to bias the tour.
type Sequencer interface {
	Sequence(start, end domain.Point, waypoints []domain.Waypoint) []domain.Waypoint
}

// GreedySequencer is a nearest-neighbor heuristic: from a moving cursor
// starting at the trip start, repeatedly append the closest unvisited stop
// and advance the cursor to it. Ties break on input order (stable "<" scan).
// A repair pass afterwards enforces pickup-before-dropoff per booking.
type GreedySequencer struct{}

// NewGreedySequencer creates a new GreedySequencer.
func NewGreedySequencer() *GreedySequencer {
	return &GreedySequencer{}
}

// Sequence implements Sequencer.
func (s *GreedySequencer) Sequence(start, end domain.Point, waypoints []domain.Waypoint) []domain.Waypoint {
	ordered := make([]domain.Waypoint, 0, len(waypoints))
	remaining := make([]domain.Waypoint, len(waypoints))
	copy(remaining, waypoints)

	cursor := start
	for len(remaining) > 0 {
		best := 0
		bestDist := geo.Distance(cursor, remaining[0].Point)
		for i := 1; i < len(remaining); i++ {
			if d := geo.Distance(cursor, remaining[i].Point); d < bestDist {
				best = i
				bestDist = d
			}
		}

		next := remaining[best]
		ordered = append(ordered, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
		cursor = next.Point
	}

	return repairPickupOrder(ordered)
}

// repairPickupOrder moves any dropoff that ended up before its booking's
// pickup to the position directly after that pickup. Geometry usually yields
// the correct order already; this makes it a guarantee instead of luck.
func repairPickupOrder(ordered []domain.Waypoint) []domain.Waypoint {
	for changed := true; changed; {
		changed = false
		pickupAt := make(map[string]int, len(ordered))
		for i, wp := range ordered {
			if wp.Role == domain.WaypointRolePickup && wp.BookingID != "" {
				pickupAt[wp.BookingID] = i
			}
		}

		for i, wp := range ordered {
			if wp.Role != domain.WaypointRoleDropoff || wp.BookingID == "" {
				continue
			}
			p, ok := pickupAt[wp.BookingID]
			if !ok || i > p {
				continue
			}
			// Shift the block (i, p] left by one and put the dropoff
			// right behind its pickup.
			dropoff := ordered[i]
			copy(ordered[i:p], ordered[i+1:p+1])
			ordered[p] = dropoff
			changed = true
			break
		}
	}

	return ordered
}

var _ Sequencer = (*GreedySequencer)(nil)
