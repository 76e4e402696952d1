package option

import "math"

// lattice carries the rolled-back contract value plus the node values of
// the first two time steps, which the sensitivity code reads directly
// instead of re-pricing with bumped spots.
type lattice struct {
	price  float64
	level1 [2]float64 // values at t = Δt: up, down
	level2 [3]float64 // values at t = 2Δt: up-up, middle, down-down
}

// binomial prices a contract on a Cox-Ross-Rubinstein lattice. The spec
// must already be validated and steps must be in [1, MaxSteps].
func binomial(s Spec, steps int) float64 {
	return buildLattice(s, steps).price
}

// buildLattice runs the CRR backward induction.
//
// Up/down factors u = e^{σ√Δt}, d = 1/u; risk-neutral probability
// p = (e^{rΔt} − d)/(u − d). Terminal payoffs are rolled back one level
// at a time; american style takes max(continuation, intrinsic) at every
// interior node. One value slice is reused per level — O(steps²) time,
// O(steps) space, never the full tree.
func buildLattice(s Spec, steps int) lattice {
	dt := s.TimeToExpiry / float64(steps)
	u := math.Exp(s.Volatility * math.Sqrt(dt))
	d := 1 / u
	growth := math.Exp(s.Rate * dt)
	p := (growth - d) / (u - d)

	// With u = e^{σ√Δt} the CRR probability can only escape (0,1) when
	// |r|√Δt ≥ σ, i.e. extreme drift against tiny volatility. Clamping
	// would misprice silently, so collapse to the degenerate drift-only
	// value instead: the lattice is deterministic in that regime.
	if p <= 0 {
		p = 0
	} else if p >= 1 {
		p = 1
	}
	disc := 1 / growth

	var result lattice

	// Terminal payoffs, highest node first.
	values := make([]float64, steps+1)
	spot := s.Underlying * math.Pow(u, float64(steps))
	d2 := d * d
	for i := 0; i <= steps; i++ {
		values[i] = s.intrinsic(spot)
		spot *= d2
	}
	if steps == 2 {
		copy(result.level2[:], values[:3])
	}

	// Backward induction, reusing the same slice per level.
	for level := steps - 1; level >= 0; level-- {
		spot = s.Underlying * math.Pow(u, float64(level))
		for i := 0; i <= level; i++ {
			continuation := disc * (p*values[i] + (1-p)*values[i+1])
			if s.Style == American {
				if exercise := s.intrinsic(spot); exercise > continuation {
					continuation = exercise
				}
			}
			values[i] = continuation
			spot *= d2
		}
		switch level {
		case 2:
			copy(result.level2[:], values[:3])
		case 1:
			copy(result.level1[:], values[:2])
		}
	}

	result.price = values[0]
	return result
}
