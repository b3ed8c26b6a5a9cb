package dynamo

import "math"

const TwoPi = 2 * math.Pi

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Wrap folds every component into [0, 2π) in place.
func (s State) Wrap() {
	for i, v := range s {
		s[i] = WrapPhase(v)
	}
}

// WrapPhase maps an angle into [0, 2π).
func WrapPhase(v float64) float64 {
	v = math.Mod(v, TwoPi)
	if v < 0 {
		v += TwoPi
	}
	if v >= TwoPi {
		v = 0
	}
	return v
}

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// RateBounded is implemented by systems that can bound |dx/dt|. The
// simulator uses the bound to pick a step that resolves the fastest rotation.
type RateBounded interface {
	MaxRate() float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Config struct {
	Dt       float64
	Duration float64
	// Tolerance is the local error bound for adaptive stepping.
	Tolerance float64
	MaxDt     float64
	MinDt     float64
	Adaptive  bool
	// SamplesPerPeriod caps dt so that the fastest rotation reported by a
	// RateBounded system is sampled at least this many times per period.
	SamplesPerPeriod int
	// MaxSteps bounds the number of accepted steps. Zero means unbounded.
	MaxSteps int
	// RecordEvery stores every n-th state in Result.States. Zero keeps only
	// the final state.
	RecordEvery int
	// WrapPhases folds the state into [0, 2π) after every accepted step.
	WrapPhases bool
}

func DefaultConfig() Config {
	return Config{
		Dt:               0.01,
		Duration:         50.0,
		Tolerance:        1e-6,
		MaxDt:            0.1,
		MinDt:            1e-9,
		Adaptive:         false,
		SamplesPerPeriod: 20,
		WrapPhases:       true,
	}
}

type Result struct {
	Final      State
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	EndTime    float64
}
