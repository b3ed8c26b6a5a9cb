package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/primesync/internal/dynamo"
)

type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

// New returns a Simulator. The integrator may keep scratch state, so a
// Simulator must not run concurrently with itself.
func New(dyn dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// StepSize is the initial step for cfg: cfg.Dt, capped so that the fastest
// rotation of a RateBounded system is sampled SamplesPerPeriod times per
// period.
func (s *Simulator) StepSize(cfg dynamo.Config) float64 {
	dt := cfg.Dt
	if limit := s.rateLimit(cfg); limit > 0 {
		dt = math.Min(dt, limit)
	}
	return dt
}

func (s *Simulator) rateLimit(cfg dynamo.Config) float64 {
	rb, ok := s.dyn.(dynamo.RateBounded)
	if !ok || cfg.SamplesPerPeriod <= 0 {
		return 0
	}
	rate := rb.MaxRate()
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return 0
	}
	return dynamo.TwoPi / (float64(cfg.SamplesPerPeriod) * rate)
}

// Run integrates from t=0 to cfg.Duration. On failure the partial result is
// returned together with a *dynamo.SimulationError.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: state has %d components, system %d", dynamo.ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}
	if !x0.IsValid() {
		return nil, dynamo.ErrInvalidState
	}

	result := &dynamo.Result{
		Metrics: make(map[string]float64),
	}
	if cfg.RecordEvery > 0 {
		n := int(cfg.Duration/cfg.Dt)/cfg.RecordEvery + 2
		result.States = make([]dynamo.State, 0, n)
		result.Times = make([]float64, 0, n)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	if cfg.WrapPhases {
		x.Wrap()
	}
	t := 0.0
	dt := s.StepSize(cfg)
	limit := s.rateLimit(cfg)

	s.observe(x, t)
	if cfg.RecordEvery > 0 {
		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}

	finish := func() {
		result.Final = x
		result.EndTime = t
		for _, m := range s.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}

	eps := 1e-12 * math.Max(1, cfg.Duration)
	for cfg.Duration-t > eps {
		select {
		case <-ctx.Done():
			finish()
			return result, ctx.Err()
		default:
		}

		if cfg.MaxSteps > 0 && result.StepsTaken >= cfg.MaxSteps {
			finish()
			return result, &dynamo.SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: dynamo.ErrStepBudgetExhausted}
		}

		h := math.Min(dt, cfg.Duration-t)
		var newX dynamo.State
		if cfg.Adaptive {
			var next float64
			var err error
			newX, h, next, err = s.adaptiveStep(x, t, h, cfg)
			if err != nil {
				finish()
				return result, &dynamo.SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: err}
			}
			dt = clampStep(next, cfg, limit)
		} else {
			newX = s.integrator.Step(s.dyn, x, t, h)
		}

		if !newX.IsValid() {
			finish()
			return result, &dynamo.SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: dynamo.ErrDivergedSimulation}
		}

		if cfg.WrapPhases {
			newX.Wrap()
		}
		x = newX
		t += h
		result.StepsTaken++

		s.observe(x, t)
		if cfg.RecordEvery > 0 && result.StepsTaken%cfg.RecordEvery == 0 {
			result.States = append(result.States, x.Clone())
			result.Times = append(result.Times, t)
		}
	}

	if cfg.RecordEvery > 0 && result.StepsTaken%cfg.RecordEvery != 0 {
		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}
	finish()
	return result, nil
}

func (s *Simulator) observe(x dynamo.State, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
}

func clampStep(dt float64, cfg dynamo.Config, limit float64) float64 {
	if cfg.MaxDt > 0 {
		dt = math.Min(dt, cfg.MaxDt)
	}
	if limit > 0 {
		dt = math.Min(dt, limit)
	}
	return dt
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrParameterBounds, cfg.Dt)
	}
	if cfg.Duration <= 0 || math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrParameterBounds, cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", dynamo.ErrParameterBounds)
	}
	if cfg.MaxSteps < 0 || cfg.RecordEvery < 0 {
		return fmt.Errorf("%w: step counts must be non-negative", dynamo.ErrParameterBounds)
	}
	return nil
}

// adaptiveStep retries with smaller steps until one is accepted. It returns
// the new state, the step actually taken and the suggested next step.
func (s *Simulator) adaptiveStep(x dynamo.State, t, dt float64, cfg dynamo.Config) (dynamo.State, float64, float64, error) {
	adaptive, ok := s.integrator.(dynamo.AdaptiveIntegrator)
	for {
		if dt < cfg.MinDt {
			return nil, dt, dt, dynamo.ErrStepTooSmall
		}

		if ok {
			xNew, next, err := adaptive.StepAdaptive(s.dyn, x, t, dt, cfg.Tolerance)
			if errors.Is(err, dynamo.ErrStepRejected) {
				dt = math.Min(next, dt/2)
				continue
			}
			if err != nil {
				return nil, dt, dt, err
			}
			return xNew, dt, next, nil
		}

		// step doubling for integrators without an embedded error estimate
		x1 := s.integrator.Step(s.dyn, x, t, dt)
		xHalf := s.integrator.Step(s.dyn, x, t, dt/2)
		x2 := s.integrator.Step(s.dyn, xHalf, t+dt/2, dt/2)

		e := x1.Sub(x2).Norm()
		if math.IsNaN(e) {
			return x2, dt, dt, nil
		}
		if e > cfg.Tolerance {
			dt /= 2
			continue
		}
		next := dt
		if e < cfg.Tolerance/10 {
			next = dt * 2
		}
		return x2, dt, next, nil
	}
}

// RunWithCallback integrates until cfg.Duration or until callback returns
// false. It is used by live views that consume states as they are produced.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 dynamo.State, cfg dynamo.Config, callback func(dynamo.State, float64) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if len(x0) != s.dyn.StateDim() {
		return dynamo.ErrDimensionMismatch
	}

	x := x0.Clone()
	t := 0.0
	dt := s.StepSize(cfg)
	step := 0

	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(x, t) {
			return nil
		}

		x = s.integrator.Step(s.dyn, x, t, dt)
		if !x.IsValid() {
			return &dynamo.SimulationError{Step: step, Time: t, Wrapped: dynamo.ErrDivergedSimulation}
		}
		if cfg.WrapPhases {
			x.Wrap()
		}
		t += dt
		step++
	}

	return nil
}
