// Package numeric provides the shared numeric primitives for the risk
// engine: the standard normal distribution functions used by every pricer,
// and decimal-safe rounding for presenting currency and percentage values.
//
// All monetary values use shopspring/decimal at the engine boundary —
// never float64 for money. Transcendental math runs in float64 and is
// converted to decimal exactly once, at rounding time.
package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// PriceScale is the number of fractional digits for currency amounts.
	PriceScale int32 = 6

	// RateScale is the number of fractional digits for rates, yields and
	// volatilities expressed as decimal fractions.
	RateScale int32 = 4
)

// CDF is the standard normal cumulative distribution function N(x).
//
// Implemented via the complementary error function:
//
//	N(x) = erfc(-x / √2) / 2
//
// erfc avoids the catastrophic cancellation that 0.5*(1+erf(x/√2))
// suffers in the left tail, keeping absolute error below 1e-9 across
// x ∈ [-10, 10].
func CDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// PDF is the standard normal density n(x) = exp(-x²/2) / √(2π).
func PDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// RoundPrice rounds a currency amount to PriceScale digits using
// round-half-to-even, returning an exact decimal.
func RoundPrice(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).RoundBank(PriceScale)
}

// RoundRate rounds a rate/volatility fraction to RateScale digits using
// round-half-to-even, returning an exact decimal.
func RoundRate(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).RoundBank(RateScale)
}

// RoundTo rounds to an arbitrary number of fractional digits with
// round-half-to-even, for callers with presentation needs outside the
// two defaults.
func RoundTo(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).RoundBank(places)
}

// FormatPrice renders a currency amount with exactly PriceScale digits.
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixedBank(PriceScale)
}

// FormatRate renders a rate fraction with exactly RateScale digits.
func FormatRate(v float64) string {
	return decimal.NewFromFloat(v).StringFixedBank(RateScale)
}
