package option

import (
	"math"

	"github.com/quantdesk/risk-engine/internal/numeric"
)

// d1d2 computes the Black-Scholes quantiles:
//
//	d1 = (ln(S/K) + (r + σ²/2)·T) / (σ√T)
//	d2 = d1 - σ√T
func d1d2(s Spec) (float64, float64) {
	sqrtT := math.Sqrt(s.TimeToExpiry)
	d1 := (math.Log(s.Underlying/s.Strike) + (s.Rate+0.5*s.Volatility*s.Volatility)*s.TimeToExpiry) /
		(s.Volatility * sqrtT)
	return d1, d1 - s.Volatility*sqrtT
}

// blackScholes prices a european contract in closed form. The spec must
// already be validated.
//
//	call = S·N(d1) − K·e^{−rT}·N(d2)
//	put  = K·e^{−rT}·N(−d2) − S·N(−d1)
func blackScholes(s Spec) float64 {
	d1, d2 := d1d2(s)
	discount := math.Exp(-s.Rate * s.TimeToExpiry)

	if s.Type == Call {
		return s.Underlying*numeric.CDF(d1) - s.Strike*discount*numeric.CDF(d2)
	}
	return s.Strike*discount*numeric.CDF(-d2) - s.Underlying*numeric.CDF(-d1)
}
