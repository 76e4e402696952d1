// Package bond computes present value, duration, and convexity for
// fixed-coupon instruments.
//
// All three metrics come out of a single pass over the cash-flow
// schedule, so they can never drift apart through recomputation. A
// zero-coupon bond is just the degenerate couponRate = 0 case; the
// formulas need no special-casing.
package bond

import (
	"math"

	"github.com/quantdesk/risk-engine/internal/model"
)

// Coupon payment frequencies per year.
const (
	Annual     = 1
	Semiannual = 2
)

// Spec is an immutable description of a fixed-coupon bond.
type Spec struct {
	FaceValue       float64 // redemption value, > 0
	CouponRate      float64 // annual coupon as a fraction of face, [0, 1]
	YearsToMaturity float64 // > 0
	Frequency       int     // coupons per year: 1 or 2
	Yield           float64 // annual yield to maturity, signed
}

// Analytics holds the derived metrics. Durations are in years; convexity
// is in years².
type Analytics struct {
	Price            float64
	MacaulayDuration float64
	ModifiedDuration float64
	Convexity        float64
}

// Validate checks every Spec invariant. Negative yields are allowed as
// long as the periodic discount factor stays positive.
func (s Spec) Validate() error {
	if s.FaceValue <= 0 || math.IsNaN(s.FaceValue) || math.IsInf(s.FaceValue, 0) {
		return model.Invalid("face_value", "must be a positive finite number")
	}
	if s.CouponRate < 0 || s.CouponRate > 1 || math.IsNaN(s.CouponRate) {
		return model.Invalid("coupon_rate", "must be in [0, 1]")
	}
	if s.YearsToMaturity <= 0 || math.IsNaN(s.YearsToMaturity) || math.IsInf(s.YearsToMaturity, 0) {
		return model.Invalid("years_to_maturity", "must be a positive finite number")
	}
	if s.Frequency != Annual && s.Frequency != Semiannual {
		return model.Invalid("frequency", "must be 1 (annual) or 2 (semiannual)")
	}
	if math.IsNaN(s.Yield) || math.IsInf(s.Yield, 0) {
		return model.Invalid("yield_to_maturity", "must be finite")
	}
	if 1+s.Yield/float64(s.Frequency) <= 0 {
		return model.Invalid("yield_to_maturity", "periodic discount factor must stay positive")
	}
	if s.periods() < 1 {
		return model.Invalid("years_to_maturity", "shorter than one coupon period")
	}
	return nil
}

// periods is the number of coupon periods n = frequency · yearsToMaturity,
// rounded to the nearest whole period.
func (s Spec) periods() int {
	return int(math.Round(float64(s.Frequency) * s.YearsToMaturity))
}

// Analyze prices the bond and derives Macaulay/modified duration and
// convexity from one amortized cash-flow walk:
//
//	price     = Σ CF_k/(1+y)^k
//	macaulay  = Σ k·CF_k/(1+y)^k / price / frequency
//	modified  = macaulay / (1 + y)
//	convexity = Σ k(k+1)·CF_k/(1+y)^{k+2} / price / frequency²
//
// where y is the periodic yield and CF_n includes the face value.
func Analyze(s Spec) (Analytics, error) {
	if err := s.Validate(); err != nil {
		return Analytics{}, err
	}

	freq := float64(s.Frequency)
	n := s.periods()
	coupon := s.FaceValue * s.CouponRate / freq
	y := s.Yield / freq

	// One discount walk: df is (1+y)^-k, advanced multiplicatively.
	base := 1 / (1 + y)
	df := 1.0
	var price, weighted, curvature float64
	for k := 1; k <= n; k++ {
		df *= base
		cf := coupon
		if k == n {
			cf += s.FaceValue
		}
		pv := cf * df
		price += pv
		weighted += float64(k) * pv
		curvature += float64(k) * float64(k+1) * pv
	}
	curvature *= base * base // the (1+y)^{k+2} denominator

	macaulay := weighted / price / freq
	return Analytics{
		Price:            price,
		MacaulayDuration: macaulay,
		ModifiedDuration: macaulay / (1 + y),
		Convexity:        curvature / price / (freq * freq),
	}, nil
}
