package lifecycle

import (
	"errors"
	"testing"

	"carpool/internal/domain"
)

func TestTripTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.TripStatus
		legal    bool
	}{
		{domain.TripStatusScheduled, domain.TripStatusInProgress, true},
		{domain.TripStatusScheduled, domain.TripStatusCancelled, true},
		{domain.TripStatusInProgress, domain.TripStatusCompleted, true},
		{domain.TripStatusScheduled, domain.TripStatusCompleted, false},
		{domain.TripStatusInProgress, domain.TripStatusScheduled, false},
		{domain.TripStatusCompleted, domain.TripStatusInProgress, false},
		{domain.TripStatusCancelled, domain.TripStatusInProgress, false},
	}

	for _, tc := range cases {
		err := TripTransition(tc.from, tc.to)
		if tc.legal && err != nil {
			t.Errorf("%s -> %s should be legal: %v", tc.from, tc.to, err)
		}
		if !tc.legal && !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("%s -> %s should be illegal, got %v", tc.from, tc.to, err)
		}
	}
}

func TestBookingTransitions_NeverRegress(t *testing.T) {
	terminal := []domain.BookingStatus{domain.BookingStatusFinished, domain.BookingStatusCanceled}
	all := []domain.BookingStatus{
		domain.BookingStatusPending,
		domain.BookingStatusProcess,
		domain.BookingStatusEnding,
		domain.BookingStatusFinished,
		domain.BookingStatusCanceled,
	}

	for _, from := range terminal {
		for _, to := range all {
			if err := BookingTransition(from, to); !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("terminal %s -> %s should be illegal", from, to)
			}
		}
	}

	if err := BookingTransition(domain.BookingStatusEnding, domain.BookingStatusProcess); !errors.Is(err, ErrIllegalTransition) {
		t.Error("ending -> process should be illegal")
	}
}

func TestBookingTransitions_HappyPaths(t *testing.T) {
	chains := [][]domain.BookingStatus{
		// Cash booking finishing at trip completion.
		{domain.BookingStatusPending, domain.BookingStatusProcess, domain.BookingStatusFinished},
		// Electronic booking awaiting the gateway after trip completion.
		{domain.BookingStatusPending, domain.BookingStatusProcess, domain.BookingStatusEnding, domain.BookingStatusFinished},
		// Cancellation before the trip starts.
		{domain.BookingStatusPending, domain.BookingStatusCanceled},
	}

	for _, chain := range chains {
		for i := 0; i < len(chain)-1; i++ {
			if err := BookingTransition(chain[i], chain[i+1]); err != nil {
				t.Errorf("%s -> %s should be legal: %v", chain[i], chain[i+1], err)
			}
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	if err := PaymentTransition(domain.PaymentStatePending, domain.PaymentStateSuccess); err != nil {
		t.Errorf("pending -> success should be legal: %v", err)
	}
	if err := PaymentTransition(domain.PaymentStateFailed, domain.PaymentStateSuccess); err != nil {
		t.Errorf("failed -> success (retry) should be legal: %v", err)
	}
	if err := PaymentTransition(domain.PaymentStateSuccess, domain.PaymentStateFailed); !errors.Is(err, ErrIllegalTransition) {
		t.Error("success -> failed should be illegal")
	}
}
