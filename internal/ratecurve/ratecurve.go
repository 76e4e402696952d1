// Package ratecurve interpolates a risk-free rate for an arbitrary horizon
// from discrete Treasury tenor points.
//
// Option maturities rarely align with published tenors (1mo/3mo/6mo/1y/2y/
// 5y/10y/30y), so the engine needs a consistent, reproducible rate for any
// horizon: linear interpolation between bracketing tenors, flat
// extrapolation beyond the ends.
//
// Curves are immutable model.RateCurve snapshots passed explicitly into
// every operation — no ambient mutable curve state, so concurrent callers
// never race on refresh.
package ratecurve

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/quantdesk/risk-engine/internal/model"
)

// ErrEmptyCurve is returned when a curve snapshot has no points.
var ErrEmptyCurve = errors.New("ratecurve: no rate points available")

// Validate checks a curve snapshot: at least one point, every tenor
// positive and finite, tenors strictly increasing with no duplicates.
func Validate(curve model.RateCurve) error {
	if len(curve.Points) == 0 {
		return ErrEmptyCurve
	}
	for i, p := range curve.Points {
		if p.TenorYears <= 0 || math.IsNaN(p.TenorYears) || math.IsInf(p.TenorYears, 0) {
			return model.Invalid("tenor_years", fmt.Sprintf("point %d: tenor must be a positive finite number", i))
		}
		if math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0) {
			return model.Invalid("rate", fmt.Sprintf("point %d: rate must be finite", i))
		}
		if i > 0 && p.TenorYears <= curve.Points[i-1].TenorYears {
			return model.Invalid("tenor_years", fmt.Sprintf("point %d: tenors must be strictly increasing", i))
		}
	}
	return nil
}

// Normalize returns a copy of the curve with points sorted by tenor, then
// validates it. Use when ingesting points from an external collaborator
// whose ordering is not guaranteed.
func Normalize(curve model.RateCurve) (model.RateCurve, error) {
	points := make([]model.RateCurvePoint, len(curve.Points))
	copy(points, curve.Points)
	sort.Slice(points, func(i, j int) bool { return points[i].TenorYears < points[j].TenorYears })

	normalized := model.RateCurve{AsOf: curve.AsOf, Points: points}
	if err := Validate(normalized); err != nil {
		return model.RateCurve{}, err
	}
	return normalized, nil
}

// Rate returns the risk-free rate for the given horizon.
//
// Below the shortest tenor or beyond the longest, the boundary rate is
// returned (flat extrapolation). Between two tenors:
//
//	rate = r0 + (r1-r0) · (t-t0)/(t1-t0)
func Rate(curve model.RateCurve, tenorYears float64) (float64, error) {
	if len(curve.Points) == 0 {
		return 0, ErrEmptyCurve
	}
	if tenorYears <= 0 || math.IsNaN(tenorYears) || math.IsInf(tenorYears, 0) {
		return 0, model.Invalid("tenor_years", "must be a positive finite number")
	}

	points := curve.Points
	if tenorYears <= points[0].TenorYears {
		return points[0].Rate, nil
	}
	last := points[len(points)-1]
	if tenorYears >= last.TenorYears {
		return last.Rate, nil
	}

	// Binary search for the first point at or beyond the query tenor.
	hi := sort.Search(len(points), func(i int) bool {
		return points[i].TenorYears >= tenorYears
	})
	p0, p1 := points[hi-1], points[hi]

	frac := (tenorYears - p0.TenorYears) / (p1.TenorYears - p0.TenorYears)
	return p0.Rate + (p1.Rate-p0.Rate)*frac, nil
}
