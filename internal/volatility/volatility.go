// Package volatility estimates annualized historical volatility from an
// ordered price series.
//
// The estimate is the sample standard deviation of logarithmic returns,
// scaled by the square root of the sampling frequency:
//
//	r_i = ln(P_i / P_{i-1})
//	σ   = stdev(r) · √annualizationFactor
//
// The series is caller-provided and read-only; this package is pure math
// with no retry or fetch semantics.
package volatility

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/quantdesk/risk-engine/internal/model"
)

// Standard annualization factors by sampling interval.
const (
	Daily   = 252.0 // trading days per year
	Weekly  = 52.0
	Monthly = 12.0
)

var (
	// ErrInsufficientData is returned when fewer than two price points are
	// supplied (no return can be computed).
	ErrInsufficientData = errors.New("volatility: need at least two price points")

	// ErrNonPositivePrice is returned when a zero or negative price is
	// encountered; the logarithm is undefined.
	ErrNonPositivePrice = errors.New("volatility: price must be positive")
)

// Historical computes the annualized historical volatility of the series.
// Points must be ordered by timestamp; the annualization factor is the
// number of sampling intervals per year (e.g. 252 for daily bars).
func Historical(points []model.PricePoint, annualizationFactor float64) (float64, error) {
	if len(points) < 2 {
		return 0, ErrInsufficientData
	}
	if annualizationFactor <= 0 || math.IsNaN(annualizationFactor) || math.IsInf(annualizationFactor, 0) {
		return 0, model.Invalid("annualization_factor", "must be a positive finite number")
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		if i > 0 && points[i].Timestamp.Before(points[i-1].Timestamp) {
			return 0, model.Invalid("series", "points must be ordered by timestamp")
		}
		if p.Price.LessThanOrEqual(decimal.Zero) {
			return 0, ErrNonPositivePrice
		}
		prices[i] = p.Price.InexactFloat64()
	}

	returns := make([]float64, len(prices)-1)
	var sum float64
	for i := 1; i < len(prices); i++ {
		r := math.Log(prices[i] / prices[i-1])
		returns[i-1] = r
		sum += r
	}

	mean := sum / float64(len(returns))
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}

	// Unbiased (n-1) sample variance. With exactly two points there is one
	// return and the variance is zero by definition.
	if len(returns) < 2 {
		return 0, nil
	}
	variance := ss / float64(len(returns)-1)

	return math.Sqrt(variance) * math.Sqrt(annualizationFactor), nil
}
