package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoCouplingEffect indicates that the order parameter does not depend
	// on κ, typically because the graph has no edges.
	ErrNoCouplingEffect = errors.New("optim: coupling strength has no effect on the order parameter")

	// ErrIterationBudgetExhausted is returned together with a valid Result
	// when the final bracket is still wider than the requested tolerance.
	ErrIterationBudgetExhausted = errors.New("optim: iteration budget exhausted before reaching tolerance")

	// ErrInvalidSearch indicates a malformed bracket or search parameter.
	ErrInvalidSearch = errors.New("optim: invalid search parameters")
)

// Prober evaluates the order parameter at coupling kappa, once per seed.
// Each seed selects an independent set of initial phases.
type Prober interface {
	Probe(ctx context.Context, kappa float64, seeds []int64) ([]float64, error)
}

type ProbeFunc func(ctx context.Context, kappa float64, seeds []int64) ([]float64, error)

func (f ProbeFunc) Probe(ctx context.Context, kappa float64, seeds []int64) ([]float64, error) {
	return f(ctx, kappa, seeds)
}

// Couplable is implemented by probers that know up front whether κ can
// influence the dynamics.
type Couplable interface {
	Couplable() bool
}

// Bisection locates the smallest κ whose mean order parameter exceeds
// Threshold, assuming [Lo, Hi] brackets the transition.
type Bisection struct {
	Lo         float64
	Hi         float64
	Iterations int
	// Threshold is the synchronisation level r*. A probe with mean r above
	// it counts as synchronised.
	Threshold float64
	// Repeats is the number of independent simulations averaged per probe.
	Repeats int
	// Tolerance is the target bracket width. Zero disables early stopping
	// and convergence checking.
	Tolerance float64
}

// DefaultBisection returns the search used for target n: [0, 2.5n],
// 12 iterations, r* = 0.5, one simulation per probe.
func DefaultBisection(n int) Bisection {
	return Bisection{
		Lo:         0,
		Hi:         2.5 * float64(n),
		Iterations: 12,
		Threshold:  0.5,
		Repeats:    1,
	}
}

func (b Bisection) Validate() error {
	switch {
	case math.IsNaN(b.Lo) || math.IsNaN(b.Hi) || math.IsInf(b.Hi, 0) || b.Lo < 0 || b.Hi <= b.Lo:
		return fmt.Errorf("%w: bracket [%g, %g]", ErrInvalidSearch, b.Lo, b.Hi)
	case b.Iterations < 1:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidSearch, b.Iterations)
	case b.Threshold <= 0 || b.Threshold >= 1:
		return fmt.Errorf("%w: threshold must be in (0, 1), got %g", ErrInvalidSearch, b.Threshold)
	case b.Repeats < 1:
		return fmt.Errorf("%w: repeats must be positive, got %d", ErrInvalidSearch, b.Repeats)
	case b.Tolerance < 0:
		return fmt.Errorf("%w: tolerance must be non-negative", ErrInvalidSearch)
	}
	return nil
}

// Sample is one probe: the coupling, the mean order parameter and the
// per-seed values it was averaged from.
type Sample struct {
	Kappa  float64
	R      float64
	Rs     []float64
	Synced bool
}

type Result struct {
	// Kappa is the midpoint of the final bracket.
	Kappa      float64
	Lo         float64
	Hi         float64
	Iterations int
	Probes     []Sample
	Converged  bool
}

func (r *Result) Width() float64 { return r.Hi - r.Lo }

// Search runs the bisection. Both bracket ends are probed first with the
// same seeds; identical order parameters there mean κ has no effect and the
// search stops with ErrNoCouplingEffect. Probe seeds are drawn from rng, so
// a seeded rng makes the search reproducible.
func (b Bisection) Search(ctx context.Context, p Prober, rng *rand.Rand) (*Result, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if c, ok := p.(Couplable); ok && !c.Couplable() {
		return nil, ErrNoCouplingEffect
	}

	res := &Result{Lo: b.Lo, Hi: b.Hi}

	seeds := drawSeeds(rng, b.Repeats)
	atLo, err := b.probe(ctx, p, b.Lo, seeds)
	if err != nil {
		return nil, err
	}
	atHi, err := b.probe(ctx, p, b.Hi, seeds)
	if err != nil {
		return nil, err
	}
	res.Probes = append(res.Probes, atLo, atHi)

	if math.Abs(atHi.R-atLo.R) <= 1e-12 {
		return nil, ErrNoCouplingEffect
	}
	if !atHi.Synced {
		logrus.Warnf("r=%.4f at upper bound κ=%g does not exceed r*=%g", atHi.R, b.Hi, b.Threshold)
	}

	lo, hi := b.Lo, b.Hi
	for res.Iterations < b.Iterations {
		if b.Tolerance > 0 && hi-lo <= b.Tolerance {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		mid := (lo + hi) / 2
		s, err := b.probe(ctx, p, mid, drawSeeds(rng, b.Repeats))
		if err != nil {
			return nil, err
		}
		res.Probes = append(res.Probes, s)
		res.Iterations++

		if s.Synced {
			hi = mid
		} else {
			lo = mid
		}
		logrus.Debugf("bisection %d: κ=%.6g r=%.4f bracket=[%.6g, %.6g]", res.Iterations, mid, s.R, lo, hi)
	}

	res.Lo, res.Hi = lo, hi
	res.Kappa = (lo + hi) / 2
	res.Converged = b.Tolerance == 0 || hi-lo <= b.Tolerance
	if !res.Converged {
		return res, fmt.Errorf("%w: width %.3g > %.3g after %d iterations", ErrIterationBudgetExhausted, hi-lo, b.Tolerance, res.Iterations)
	}
	return res, nil
}

func (b Bisection) probe(ctx context.Context, p Prober, kappa float64, seeds []int64) (Sample, error) {
	rs, err := p.Probe(ctx, kappa, seeds)
	if err != nil {
		return Sample{}, fmt.Errorf("probe at κ=%g: %w", kappa, err)
	}
	if len(rs) == 0 {
		return Sample{}, fmt.Errorf("probe at κ=%g returned no values", kappa)
	}
	r := stat.Mean(rs, nil)
	return Sample{Kappa: kappa, R: r, Rs: rs, Synced: r > b.Threshold}, nil
}

func drawSeeds(rng *rand.Rand, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	return seeds
}
