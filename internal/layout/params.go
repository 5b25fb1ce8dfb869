package layout

// Params are the simulation tunables. All values pass through the same
// clamps whether they arrive via the constructor or a setter: Damping and
// Friction live in [0,1], the rest are non-negative. Out-of-range inputs
// are clamped silently, never rejected.
type Params struct {
	Damping           float64
	SpringConstant    float64
	RepulsionConstant float64
	IdealEdgeLength   float64
	TimeStep          float64
	Friction          float64
	Frozen            bool
}

// DefaultParams returns the tuning the product ships with.
func DefaultParams() Params {
	return Params{
		Damping:           0.55,
		SpringConstant:    0.3,
		RepulsionConstant: 18000.0,
		IdealEdgeLength:   180.0,
		TimeStep:          0.3,
		Friction:          0.4,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampMin0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// clamped returns a copy with every field forced into its valid range.
func (p Params) clamped() Params {
	p.Damping = clamp01(p.Damping)
	p.SpringConstant = clampMin0(p.SpringConstant)
	p.RepulsionConstant = clampMin0(p.RepulsionConstant)
	p.IdealEdgeLength = clampMin0(p.IdealEdgeLength)
	p.TimeStep = clampMin0(p.TimeStep)
	p.Friction = clamp01(p.Friction)
	return p
}
