package route

import (
	"testing"

	"carpool/internal/domain"
)

func wp(bookingID string, role domain.WaypointRole, lat, lng float64) domain.Waypoint {
	return domain.Waypoint{
		BookingID: bookingID,
		Role:      role,
		Point:     domain.Point{Lat: lat, Lng: lng},
	}
}

func ids(wps []domain.Waypoint) []string {
	out := make([]string, len(wps))
	for i, w := range wps {
		out[i] = w.BookingID + ":" + string(w.Role)
	}
	return out
}

func TestSequence_NearestNeighborOrder(t *testing.T) {
	start := domain.Point{Lat: 21.00, Lng: 105.80}
	end := domain.Point{Lat: 21.10, Lng: 105.90}

	// Three stops laid out south to north; input deliberately shuffled.
	input := []domain.Waypoint{
		wp("c", domain.WaypointRoleWaypoint, 21.08, 105.80),
		wp("a", domain.WaypointRoleWaypoint, 21.02, 105.80),
		wp("b", domain.WaypointRoleWaypoint, 21.05, 105.80),
	}

	got := NewGreedySequencer().Sequence(start, end, input)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if got[i].BookingID != id {
			t.Fatalf("position %d = %s, want %s", i, got[i].BookingID, id)
		}
	}
}

func TestSequence_Idempotent(t *testing.T) {
	start := domain.Point{Lat: 21.00, Lng: 105.80}
	end := domain.Point{Lat: 21.10, Lng: 105.90}

	input := []domain.Waypoint{
		wp("b1", domain.WaypointRolePickup, 21.03, 105.81),
		wp("b1", domain.WaypointRoleDropoff, 21.07, 105.85),
		wp("b2", domain.WaypointRolePickup, 21.02, 105.83),
		wp("b2", domain.WaypointRoleDropoff, 21.09, 105.88),
	}

	seq := NewGreedySequencer()
	once := seq.Sequence(start, end, input)
	twice := seq.Sequence(start, end, once)

	if len(once) != len(twice) {
		t.Fatalf("length changed: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].BookingID != twice[i].BookingID || once[i].Role != twice[i].Role {
			t.Errorf("re-sequencing changed order: %v vs %v", ids(once), ids(twice))
			break
		}
	}
}

func TestSequence_DeterministicTieBreak(t *testing.T) {
	start := domain.Point{Lat: 21.00, Lng: 105.80}
	end := domain.Point{}

	// Two stops at the exact same coordinates: first in input order wins.
	input := []domain.Waypoint{
		wp("first", domain.WaypointRoleWaypoint, 21.01, 105.80),
		wp("second", domain.WaypointRoleWaypoint, 21.01, 105.80),
	}

	got := NewGreedySequencer().Sequence(start, end, input)
	if got[0].BookingID != "first" {
		t.Errorf("tie-break violated: got %s first", got[0].BookingID)
	}
}

func TestSequence_RepairsPickupBeforeDropoff(t *testing.T) {
	start := domain.Point{Lat: 21.00, Lng: 105.80}
	end := domain.Point{}

	// The dropoff is closer to the start than the pickup, so the greedy
	// scan visits it first; the repair pass must reorder.
	input := []domain.Waypoint{
		wp("b1", domain.WaypointRolePickup, 21.09, 105.80),
		wp("b1", domain.WaypointRoleDropoff, 21.01, 105.80),
	}

	got := NewGreedySequencer().Sequence(start, end, input)

	pickupIdx, dropoffIdx := -1, -1
	for i, w := range got {
		switch w.Role {
		case domain.WaypointRolePickup:
			pickupIdx = i
		case domain.WaypointRoleDropoff:
			dropoffIdx = i
		}
	}

	if pickupIdx == -1 || dropoffIdx == -1 {
		t.Fatal("lost a waypoint during sequencing")
	}
	if pickupIdx > dropoffIdx {
		t.Errorf("pickup at %d after dropoff at %d: %v", pickupIdx, dropoffIdx, ids(got))
	}
}

func TestSequence_RepairsInterleavedBookings(t *testing.T) {
	start := domain.Point{Lat: 21.00, Lng: 105.80}
	end := domain.Point{}

	input := []domain.Waypoint{
		wp("b1", domain.WaypointRoleDropoff, 21.01, 105.80),
		wp("b2", domain.WaypointRoleDropoff, 21.02, 105.80),
		wp("b1", domain.WaypointRolePickup, 21.03, 105.80),
		wp("b2", domain.WaypointRolePickup, 21.04, 105.80),
	}

	got := NewGreedySequencer().Sequence(start, end, input)

	seenPickup := map[string]bool{}
	for _, w := range got {
		switch w.Role {
		case domain.WaypointRolePickup:
			seenPickup[w.BookingID] = true
		case domain.WaypointRoleDropoff:
			if !seenPickup[w.BookingID] {
				t.Fatalf("dropoff for %s before its pickup: %v", w.BookingID, ids(got))
			}
		}
	}
}

func TestSequence_EmptyInput(t *testing.T) {
	got := NewGreedySequencer().Sequence(domain.Point{Lat: 1, Lng: 1}, domain.Point{}, nil)
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d waypoints", len(got))
	}
}
