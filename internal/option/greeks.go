package option

import (
	"math"

	"github.com/quantdesk/risk-engine/internal/model"
	"github.com/quantdesk/risk-engine/internal/numeric"
)

// Greeks is a snapshot of the five standard sensitivities for one Spec.
// Units follow the Spec's annualized conventions: theta is per year,
// vega per unit of volatility, rho per unit of rate.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// Bump sizes for the lattice sensitivities that need re-pricing. Delta,
// gamma, and theta come straight off the lattice nodes instead; bumping
// the spot re-seeds the whole tree and the CRR discretization error
// swamps the second difference.
const (
	volBump  = 0.01 // vega: ±1 vol point
	rateBump = 0.01 // rho: ±1 rate point
)

// Compute returns the Greeks for the contract: closed forms on the
// Black-Scholes path, lattice-derived sensitivities for american style.
func Compute(s Spec) (Greeks, error) {
	return ComputeWithSteps(s, DefaultSteps)
}

// ComputeWithSteps is Compute with an explicit lattice step count for the
// american path; the step count is ignored for european specs.
func ComputeWithSteps(s Spec, steps int) (Greeks, error) {
	if err := s.Validate(); err != nil {
		return Greeks{}, err
	}
	if s.Style == European {
		return analyticGreeks(s), nil
	}
	if err := validateSteps(s, steps); err != nil {
		return Greeks{}, err
	}
	if steps < 2 {
		return Greeks{}, model.Invalid("steps", "lattice sensitivities need at least 2 steps")
	}
	return latticeGreeks(s, steps), nil
}

// analyticGreeks evaluates the Black-Scholes closed forms. Exact, O(1),
// no numerical differencing.
func analyticGreeks(s Spec) Greeks {
	d1, d2 := d1d2(s)
	sqrtT := math.Sqrt(s.TimeToExpiry)
	discount := math.Exp(-s.Rate * s.TimeToExpiry)
	density := numeric.PDF(d1)

	g := Greeks{
		Gamma: density / (s.Underlying * s.Volatility * sqrtT),
		Vega:  s.Underlying * density * sqrtT,
	}

	if s.Type == Call {
		g.Delta = numeric.CDF(d1)
		g.Theta = -s.Underlying*density*s.Volatility/(2*sqrtT) -
			s.Rate*s.Strike*discount*numeric.CDF(d2)
		g.Rho = s.Strike * s.TimeToExpiry * discount * numeric.CDF(d2)
	} else {
		g.Delta = numeric.CDF(d1) - 1
		g.Theta = -s.Underlying*density*s.Volatility/(2*sqrtT) +
			s.Rate*s.Strike*discount*numeric.CDF(-d2)
		g.Rho = -s.Strike * s.TimeToExpiry * discount * numeric.CDF(-d2)
	}
	return g
}

// latticeGreeks derives delta, gamma, and theta from the node values of
// the first two lattice levels — the tree is its own difference grid, so
// these come at no extra pricing cost and sidestep the oscillating CRR
// discretization error that spot-bump differencing picks up. Vega and
// rho have no node representation and are re-priced with central bumps.
func latticeGreeks(s Spec, steps int) Greeks {
	tree := buildLattice(s, steps)
	price := func(spec Spec) float64 { return binomial(spec, steps) }

	dt := s.TimeToExpiry / float64(steps)
	u := math.Exp(s.Volatility * math.Sqrt(dt))
	d := 1 / u
	spotUp, spotDown := s.Underlying*u, s.Underlying*d
	spotUp2, spotDown2 := s.Underlying*u*u, s.Underlying*d*d

	deltaUp := (tree.level2[0] - tree.level2[1]) / (spotUp2 - s.Underlying)
	deltaDown := (tree.level2[1] - tree.level2[2]) / (s.Underlying - spotDown2)

	g := Greeks{
		Delta: (tree.level1[0] - tree.level1[1]) / (spotUp - spotDown),
		Gamma: (deltaUp - deltaDown) / ((spotUp2 - spotDown2) / 2),
		// The level-2 middle node recombines to the starting spot, so
		// its value against the root is a pure time difference.
		Theta: (tree.level2[1] - tree.price) / (2 * dt),
	}

	// Vega: central where the down-bump stays positive, else forward.
	volUp, volDown := s, s
	volUp.Volatility += volBump
	if s.Volatility > volBump {
		volDown.Volatility -= volBump
		g.Vega = (price(volUp) - price(volDown)) / (2 * volBump)
	} else {
		g.Vega = (price(volUp) - tree.price) / volBump
	}

	// Rho: central bump of the rate; negative rates are fine.
	rateUp, rateDown := s, s
	rateUp.Rate += rateBump
	rateDown.Rate -= rateBump
	g.Rho = (price(rateUp) - price(rateDown)) / (2 * rateBump)

	return g
}
