package option

import (
	"errors"
	"math"
	"testing"

	"github.com/quantdesk/risk-engine/internal/model"
)

func TestImpliedVolatility_RoundTrip(t *testing.T) {
	// Price at a known σ, invert, recover σ. Covers the whole sane band
	// including seeds far from the 0.3 prior.
	s := Spec{
		Underlying:   100,
		Strike:       105,
		TimeToExpiry: 0.5,
		Rate:         0.04,
		Type:         Call,
		Style:        European,
	}
	for _, sigma := range []float64{0.05, 0.15, 0.3, 0.6, 1.0, 2.0} {
		spec := s
		spec.Volatility = sigma
		price, err := Price(spec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		iv, err := ImpliedVolatility(s, price)
		if err != nil {
			t.Fatalf("σ=%v: unexpected error: %v", sigma, err)
		}
		if math.Abs(iv-sigma) > 1e-4 {
			t.Errorf("σ=%v: recovered %v", sigma, iv)
		}
	}
}

func TestImpliedVolatility_RoundTripPut(t *testing.T) {
	s := Spec{
		Underlying:   100,
		Strike:       95,
		TimeToExpiry: 0.25,
		Rate:         0.03,
		Type:         Put,
		Style:        European,
	}
	spec := s
	spec.Volatility = 0.45
	price, err := Price(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	iv, err := ImpliedVolatility(s, price)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(iv-0.45) > 1e-4 {
		t.Errorf("recovered %v, want 0.45", iv)
	}
}

func TestImpliedVolatility_AmericanRoundTrip(t *testing.T) {
	// The american path inverts the lattice with finite-difference vega.
	s := Spec{
		Underlying:   100,
		Strike:       100,
		TimeToExpiry: 1,
		Rate:         0.05,
		Type:         Put,
		Style:        American,
	}
	spec := s
	spec.Volatility = 0.3
	price, err := Price(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	iv, err := ImpliedVolatility(s, price)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(iv-0.3) > 1e-4 {
		t.Errorf("recovered %v, want 0.3", iv)
	}
}

func TestImpliedVolatility_BisectionFallback(t *testing.T) {
	// Deep OTM near expiry: vega at the Newton seed is ~5e-11, below the
	// floor, so the solver must fall back to bisection and still recover
	// the generating volatility.
	s := Spec{
		Underlying:   100,
		Strike:       200,
		TimeToExpiry: 0.1,
		Rate:         0.02,
		Type:         Call,
		Style:        European,
	}
	iv, err := ImpliedVolatility(s, 0.033878890299474884) // price at σ=0.8
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(iv-0.8) > 1e-4 {
		t.Errorf("recovered %v, want 0.8", iv)
	}
}

func TestImpliedVolatility_UnreachableQuotes(t *testing.T) {
	s := Spec{
		Underlying:   100,
		Strike:       105,
		TimeToExpiry: 0.5,
		Rate:         0.04,
		Type:         Call,
		Style:        European,
	}

	// Above any price the volatility band can produce (call < spot).
	if _, err := ImpliedVolatility(s, 150); !errors.Is(err, ErrNoConvergence) {
		t.Errorf("expected ErrNoConvergence for unreachable quote, got %v", err)
	}

	// Below the arbitrage floor: a deep ITM call quoted under the
	// discounted forward value.
	itm := s
	itm.Strike = 50
	if _, err := ImpliedVolatility(itm, 50); !errors.Is(err, ErrNoConvergence) {
		t.Errorf("expected ErrNoConvergence for sub-intrinsic quote, got %v", err)
	}
}

func TestImpliedVolatility_InvalidMarketPrice(t *testing.T) {
	s := Spec{
		Underlying:   100,
		Strike:       105,
		TimeToExpiry: 0.5,
		Rate:         0.04,
		Type:         Call,
		Style:        European,
	}
	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		var invalid *model.InvalidInputError
		_, err := ImpliedVolatility(s, price)
		if !errors.As(err, &invalid) {
			t.Fatalf("price=%v: expected InvalidInputError, got %v", price, err)
		}
		if invalid.Field != "market_price" {
			t.Errorf("price=%v: field = %q, want \"market_price\"", price, invalid.Field)
		}
	}
}

func TestImpliedVolatility_IgnoresSpecVolatility(t *testing.T) {
	// The Volatility field is the unknown; whatever the caller left in it
	// must not affect the solution or trip validation.
	s := Spec{
		Underlying:   100,
		Strike:       105,
		TimeToExpiry: 0.5,
		Rate:         0.04,
		Volatility:   99, // out of band, deliberately
		Type:         Call,
		Style:        European,
	}
	iv, err := ImpliedVolatility(s, 7.188442647748161) // price at σ=0.3
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(iv-0.3) > 1e-4 {
		t.Errorf("recovered %v, want 0.3", iv)
	}
}
