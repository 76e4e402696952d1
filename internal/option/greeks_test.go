package option

import (
	"errors"
	"math"
	"testing"

	"github.com/quantdesk/risk-engine/internal/model"
)

func TestCompute_ReferenceCallGreeks(t *testing.T) {
	// Closed-form sensitivities for the reference call, independently
	// computed. Theta is per year, vega per unit vol, rho per unit rate.
	g, err := Compute(referenceCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Greeks{
		Delta: 0.3166568982053235,
		Gamma: 0.023735449037013634,
		Theta: -12.122016273712672,
		Vega:  17.801586777760225,
		Rho:   7.205321035282688,
	}
	assertGreeks(t, g, want, 1e-9)
}

func TestCompute_ReferencePutGreeks(t *testing.T) {
	put := referenceCall()
	put.Type = Put
	g, err := Compute(put)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Greeks{
		Delta: -0.6833431017946765,
		Gamma: 0.023735449037013634,
		Theta: -6.690338370996325,
		Vega:  17.801586777760225,
		Rho:   -19.95306847829905,
	}
	assertGreeks(t, g, want, 1e-9)
}

func TestCompute_DeltaBounds(t *testing.T) {
	for _, strike := range []float64{50, 90, 100, 110, 200} {
		call := atmCall()
		call.Strike = strike
		put := call
		put.Type = Put

		cg, err := Compute(call)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pg, err := Compute(put)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cg.Delta < 0 || cg.Delta > 1 {
			t.Errorf("call delta %v out of [0,1] at K=%v", cg.Delta, strike)
		}
		if pg.Delta < -1 || pg.Delta > 0 {
			t.Errorf("put delta %v out of [-1,0] at K=%v", pg.Delta, strike)
		}
		// Delta parity: Δ_call − Δ_put = 1 without dividends.
		if math.Abs((cg.Delta-pg.Delta)-1) > 1e-12 {
			t.Errorf("delta parity broken at K=%v: %v", strike, cg.Delta-pg.Delta)
		}
		// Gamma and vega are shared between the pair.
		if cg.Gamma != pg.Gamma || cg.Vega != pg.Vega {
			t.Errorf("gamma/vega differ between call and put at K=%v", strike)
		}
	}
}

func TestComputeWithSteps_AmericanCallMatchesAnalytic(t *testing.T) {
	// Without dividends the american call is the european call, so the
	// lattice sensitivities must land near the closed forms.
	amer := atmCall()
	amer.Style = American

	lattice, err := ComputeWithSteps(amer, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	analytic := analyticGreeks(atmCall())

	if math.Abs(lattice.Delta-analytic.Delta) > 5e-4 {
		t.Errorf("lattice delta %v vs analytic %v", lattice.Delta, analytic.Delta)
	}
	if math.Abs(lattice.Gamma-analytic.Gamma) > 5e-4 {
		t.Errorf("lattice gamma %v vs analytic %v", lattice.Gamma, analytic.Gamma)
	}
	if math.Abs(lattice.Theta-analytic.Theta) > 5e-2 {
		t.Errorf("lattice theta %v vs analytic %v", lattice.Theta, analytic.Theta)
	}
	if math.Abs(lattice.Vega-analytic.Vega) > 5e-1 {
		t.Errorf("lattice vega %v vs analytic %v", lattice.Vega, analytic.Vega)
	}
	if math.Abs(lattice.Rho-analytic.Rho) > 5e-1 {
		t.Errorf("lattice rho %v vs analytic %v", lattice.Rho, analytic.Rho)
	}
}

func TestComputeWithSteps_AmericanPutReference(t *testing.T) {
	// 200-step lattice sensitivities for the ATM american put,
	// independently computed against the same node/bump scheme.
	s := atmCall()
	s.Type = Put
	s.Style = American

	g, err := ComputeWithSteps(s, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Greeks{
		Delta: -0.4113350012188712,
		Gamma: 0.0230593277024691,
		Theta: -2.2493777647334845,
		Vega:  37.45628214435177,
		Rho:   -30.2331534461886,
	}
	assertGreeks(t, g, want, 1e-6)
}

func TestComputeWithSteps_AmericanPutShape(t *testing.T) {
	s := atmCall()
	s.Type = Put
	s.Style = American

	g, err := ComputeWithSteps(s, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Delta >= 0 || g.Delta <= -1 {
		t.Errorf("american put delta %v out of (-1,0)", g.Delta)
	}
	if g.Gamma <= 0 {
		t.Errorf("american put gamma %v not positive", g.Gamma)
	}
	if g.Theta >= 0 {
		t.Errorf("american put theta %v not negative", g.Theta)
	}
	if g.Vega <= 0 {
		t.Errorf("american put vega %v not positive", g.Vega)
	}
	if g.Rho >= 0 {
		t.Errorf("american put rho %v not negative", g.Rho)
	}
}

func TestComputeWithSteps_RejectsOneStep(t *testing.T) {
	// Node extraction needs two lattice levels.
	s := atmCall()
	s.Style = American

	var invalid *model.InvalidInputError
	_, err := ComputeWithSteps(s, 1)
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if invalid.Field != "steps" {
		t.Errorf("field = %q, want \"steps\"", invalid.Field)
	}
}

func TestCompute_InvalidSpec(t *testing.T) {
	s := referenceCall()
	s.Volatility = -0.1
	var invalid *model.InvalidInputError
	if _, err := Compute(s); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func assertGreeks(t *testing.T, got, want Greeks, tol float64) {
	t.Helper()
	checks := []struct {
		name      string
		got, want float64
	}{
		{"delta", got.Delta, want.Delta},
		{"gamma", got.Gamma, want.Gamma},
		{"theta", got.Theta, want.Theta},
		{"vega", got.Vega, want.Vega},
		{"rho", got.Rho, want.Rho},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > tol {
			t.Errorf("%s = %v, want %v (tol %v)", c.name, c.got, c.want, tol)
		}
	}
}
