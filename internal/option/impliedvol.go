package option

import (
	"errors"
	"math"

	"github.com/quantdesk/risk-engine/internal/model"
)

// ErrNoConvergence is returned when the implied-volatility solver
// exhausts its iteration budget, or the market price is unreachable by
// any volatility in the bracket (an arbitrage-violating quote).
var ErrNoConvergence = errors.New("option: implied volatility did not converge")

// Solver tuning. Newton-Raphson converges in a handful of iterations for
// well-behaved quotes; bisection is the guaranteed fallback because the
// option price is strictly increasing in volatility wherever vega > 0.
const (
	ivSeed       = 0.3  // generic prior for equity vol
	ivPriceTol   = 1e-6 // convergence tolerance, currency units
	ivNewtonMax  = 50
	ivBisectMax  = 200
	ivBracketMin = 1e-4
	ivBracketMax = MaxVolatility
	ivVegaFloor  = 1e-10 // below this, Newton's step is meaningless
)

// ImpliedVolatility inverts the pricing model for the volatility that
// reproduces the observed market price. The spec's Volatility field is
// ignored; all other invariants are enforced.
func ImpliedVolatility(s Spec, marketPrice float64) (float64, error) {
	if err := s.validateExVolatility(); err != nil {
		return 0, err
	}
	if marketPrice <= 0 || math.IsNaN(marketPrice) || math.IsInf(marketPrice, 0) {
		return 0, model.Invalid("market_price", "must be a positive finite number")
	}

	priceAt := func(vol float64) float64 {
		spec := s
		spec.Volatility = vol
		if spec.Style == American {
			return binomial(spec, DefaultSteps)
		}
		return blackScholes(spec)
	}

	// Reject quotes outside the range any bracketed volatility can
	// produce: bisection would otherwise grind to a boundary and report
	// a misleading value.
	low, high := priceAt(ivBracketMin), priceAt(ivBracketMax)
	if marketPrice < low-ivPriceTol || marketPrice > high+ivPriceTol {
		return 0, ErrNoConvergence
	}

	if vol, ok := newtonSolve(s, priceAt, marketPrice); ok {
		return vol, nil
	}
	return bisectSolve(priceAt, marketPrice)
}

// newtonSolve runs Newton-Raphson with vega as the derivative:
//
//	σ_{n+1} = σ_n − (price(σ_n) − market) / vega(σ_n)
//
// Returns ok=false when vega collapses (deep ITM/OTM or near expiry) or
// an iterate escapes the volatility band — the caller falls back to
// bisection rather than failing.
func newtonSolve(s Spec, priceAt func(float64) float64, marketPrice float64) (float64, bool) {
	vol := ivSeed
	for i := 0; i < ivNewtonMax; i++ {
		diff := priceAt(vol) - marketPrice
		if math.Abs(diff) < ivPriceTol {
			return vol, true
		}

		vega := vegaAt(s, vol)
		if math.Abs(vega) < ivVegaFloor {
			return 0, false
		}

		vol -= diff / vega
		if vol < ivBracketMin || vol > ivBracketMax || math.IsNaN(vol) {
			return 0, false
		}
	}
	return 0, false
}

// vegaAt evaluates ∂price/∂σ at the given volatility: analytic for
// european specs, central difference over the lattice for american.
func vegaAt(s Spec, vol float64) float64 {
	spec := s
	spec.Volatility = vol
	if spec.Style == European {
		return analyticGreeks(spec).Vega
	}

	up, down := spec, spec
	up.Volatility += volBump
	bumpDown := math.Min(volBump, vol-ivBracketMin)
	down.Volatility -= bumpDown
	return (binomial(up, DefaultSteps) - binomial(down, DefaultSteps)) / (volBump + bumpDown)
}

// bisectSolve narrows [ivBracketMin, ivBracketMax] on the monotonic
// price-in-volatility curve. Convergence is guaranteed for any
// achievable price; the iteration cap is a hard bound, not a retry
// policy.
func bisectSolve(priceAt func(float64) float64, marketPrice float64) (float64, error) {
	lo, hi := ivBracketMin, ivBracketMax
	for i := 0; i < ivBisectMax; i++ {
		mid := (lo + hi) / 2
		diff := priceAt(mid) - marketPrice
		if math.Abs(diff) < ivPriceTol {
			return mid, nil
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	return 0, ErrNoConvergence
}
