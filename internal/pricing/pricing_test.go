package pricing

import (
	"errors"
	"math"
	"testing"

	"carpool/internal/domain"
)

func testConfig() domain.PricingConfig {
	return domain.PricingConfig{
		RatePerKm: 9000,
		MinFare:   15000,
		TaxRate:   0.1,
		FeeRate:   0.05,
	}
}

func TestPrice_Formula(t *testing.T) {
	cfg := testConfig()

	// 10 km at 9000/km = 90000 base, fee 4500, tax 9000.
	q, err := Price(cfg, 10000, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Base != 90000 {
		t.Errorf("base = %f, want 90000", q.Base)
	}
	if q.Fee != 4500 {
		t.Errorf("fee = %f, want 4500", q.Fee)
	}
	if q.Tax != 9000 {
		t.Errorf("tax = %f, want 9000", q.Tax)
	}
	if q.PerPassengerPrice != 103500 {
		t.Errorf("per passenger = %f, want 103500", q.PerPassengerPrice)
	}
	if q.TotalPrice != 207000 {
		t.Errorf("total = %f, want 207000", q.TotalPrice)
	}
}

func TestPrice_MinimumFareFloor(t *testing.T) {
	cfg := testConfig()

	// 500 m would be 4500 base; minimum fare applies instead.
	q, err := Price(cfg, 500, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Base != cfg.MinFare {
		t.Errorf("base = %f, want minimum fare %f", q.Base, cfg.MinFare)
	}
}

func TestPrice_MonotonicInDistance(t *testing.T) {
	cfg := testConfig()

	prev := 0.0
	for _, meters := range []float64{0, 100, 1000, 5000, 20000, 100000} {
		q, err := Price(cfg, meters, 1)
		if err != nil {
			t.Fatalf("unexpected error at %f: %v", meters, err)
		}
		if q.TotalPrice < prev {
			t.Errorf("price decreased at %fm: %f < %f", meters, q.TotalPrice, prev)
		}
		prev = q.TotalPrice
	}
}

func TestPrice_LinearInPassengers(t *testing.T) {
	cfg := testConfig()

	single, err := Price(cfg, 12000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for n := 1; n <= 6; n++ {
		q, err := Price(cfg, 12000, n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := single.TotalPrice * float64(n)
		if math.Abs(q.TotalPrice-want) > 1e-6 {
			t.Errorf("price(%d) = %f, want %f", n, q.TotalPrice, want)
		}
	}
}

func TestPrice_MissingConfigRejected(t *testing.T) {
	cases := []struct {
		name string
		cfg  domain.PricingConfig
	}{
		{"zero rate", domain.PricingConfig{MinFare: 1, TaxRate: 0.1, FeeRate: 0.1}},
		{"zero min fare", domain.PricingConfig{RatePerKm: 1, TaxRate: 0.1, FeeRate: 0.1}},
		{"negative tax", domain.PricingConfig{RatePerKm: 1, MinFare: 1, TaxRate: -1, FeeRate: 0.1}},
		{"negative fee", domain.PricingConfig{RatePerKm: 1, MinFare: 1, TaxRate: 0.1, FeeRate: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Price(tc.cfg, 1000, 1); !errors.Is(err, ErrConfigMissing) {
				t.Errorf("expected ErrConfigMissing, got %v", err)
			}
		})
	}
}
