package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/primesync/internal/analysis"
	"github.com/san-kum/primesync/internal/config"
	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/goldbach"
	"github.com/san-kum/primesync/internal/kuramoto"
	"github.com/san-kum/primesync/internal/optim"
	"github.com/san-kum/primesync/internal/primes"
	"github.com/san-kum/primesync/internal/sim"
	"github.com/sirupsen/logrus"
)

// Experiment wires one configuration through the pipeline:
// primes → Goldbach graph → Kuramoto model → simulator/prober.
type Experiment struct {
	cfg           *config.Config
	registry      *Registry
	cache         *primes.Cache
	primes        []int
	graph         *goldbach.Graph
	model         *kuramoto.Model
	newIntegrator func() dynamo.Integrator
	workers       int
}

type Option func(*Experiment)

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

// WithPrimeCache shares a sieve between experiments.
func WithPrimeCache(c *primes.Cache) Option {
	return func(e *Experiment) { e.cache = c }
}

// WithWorkers bounds the simulations run in parallel per probe.
func WithWorkers(n int) Option {
	return func(e *Experiment) { e.workers = n }
}

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	e := &Experiment{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.cache == nil {
		e.cache = primes.NewCache()
	}

	if err := goldbach.ValidateTarget(cfg.Target); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ps, err := e.cache.UpTo(cfg.Target)
	if err != nil {
		return nil, err
	}
	e.primes = ps

	policy, err := goldbach.ParseIsolationPolicy(cfg.Isolation)
	if err != nil {
		return nil, err
	}
	e.graph, err = goldbach.Build(cfg.Target, ps, goldbach.WithIsolation(policy), goldbach.WithWeight(cfg.Weight))
	if err != nil {
		return nil, err
	}

	fm, err := e.registry.GetFrequencyMap(cfg.Frequencies)
	if err != nil {
		return nil, err
	}
	e.model = kuramoto.New(e.graph,
		kuramoto.WithFrequencies(fm),
		kuramoto.WithCoupling(cfg.Kappa),
		kuramoto.WithMeanField(cfg.MeanField),
	)

	e.newIntegrator, err = e.registry.IntegratorFactory(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("experiment N=%d: %d oscillators, %d edges, d̄=%.4f",
		cfg.Target, e.graph.Size(), e.graph.EdgeCount(), e.graph.AverageDegree())
	return e, nil
}

func (e *Experiment) Config() *config.Config        { return e.cfg }
func (e *Experiment) Primes() []int                 { return e.primes }
func (e *Experiment) Graph() *goldbach.Graph        { return e.graph }
func (e *Experiment) Model() *kuramoto.Model        { return e.model }
func (e *Experiment) Integrator() dynamo.Integrator { return e.newIntegrator() }

// Simulator returns a simulator for the model at coupling kappa with the
// default metrics attached.
func (e *Experiment) Simulator(kappa float64) *sim.Simulator {
	s := sim.New(e.model.WithKappa(kappa), e.newIntegrator())
	for _, m := range e.registry.DefaultMetrics(e.tailFrom()) {
		s.AddMetric(m)
	}
	return s
}

func (e *Experiment) tailFrom() float64 {
	if e.cfg.Sim.AverageTail > 0 {
		return e.cfg.Sim.Duration - e.cfg.Sim.AverageTail
	}
	return e.cfg.Sim.Duration
}

// InitialPhases draws the phases of a single run from the run stream.
func (e *Experiment) InitialPhases() dynamo.State {
	return sim.RandomPhases(RandFor(e.cfg.Seed, StreamRun), e.graph.Size())
}

// Run integrates once at the configured κ from seeded random phases.
func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	res, err := e.Simulator(e.cfg.Kappa).Run(ctx, e.InitialPhases(), e.cfg.SimConfig())
	if err != nil {
		return res, err
	}
	logrus.Infof("run N=%d κ=%g: r=%.4f after %d steps", e.cfg.Target, e.cfg.Kappa, res.Metrics["coherence"], res.StepsTaken)
	return res, nil
}

func (e *Experiment) Prober() *Prober {
	return NewProber(e.model, e.cfg.SimConfig(), e.newIntegrator, e.cfg.Sim.AverageTail, e.workers)
}

// Search bisects for κ_c with seeds from the search stream. On
// optim.ErrIterationBudgetExhausted the best estimate is still returned.
func (e *Experiment) Search(ctx context.Context) (*optim.Result, error) {
	b := e.cfg.Bisection()
	res, err := b.Search(ctx, e.Prober(), RandFor(e.cfg.Seed, StreamSearch))
	if err != nil {
		return res, err
	}
	logrus.Infof("search N=%d: κ_c=%.6g bracket=[%.6g, %.6g] probes=%d", e.cfg.Target, res.Kappa, res.Lo, res.Hi, len(res.Probes))
	return res, nil
}

// Sweep evaluates r over the configured κ grid.
func (e *Experiment) Sweep(ctx context.Context) ([]optim.Sample, error) {
	kappas := optim.Grid(e.cfg.Sweep.KappaMin, e.cfg.Sweep.KappaMax, e.cfg.Sweep.Points)
	samples, err := optim.SweepCoupling(ctx, e.Prober(), kappas, e.cfg.Sweep.Repeats, RandFor(e.cfg.Seed, StreamSweep))
	if err != nil {
		return nil, err
	}
	optim.FirstSynced(samples, e.cfg.Search.Threshold)
	return samples, nil
}

type SpectralReport struct {
	Spread     analysis.Spread
	Estimate   *analysis.Estimate
	Degenerate *analysis.DegenerateError
	Components []analysis.ComponentEstimate
	Structural *analysis.Structural
	Gamma      float64
	// TooLarge is set when an estimate was skipped because it needs a dense
	// decomposition above analysis.MaxDenseOscillators.
	TooLarge bool
}

func (e *Experiment) skipTooLarge(err error, what string) bool {
	if !errors.Is(err, analysis.ErrTooLarge) {
		return false
	}
	logrus.WithError(err).Warnf("N=%d: skipping %s", e.cfg.Target, what)
	return true
}

// Spectral collects every simulation-free estimate for the graph. A
// degenerate global spectrum is reported in the Degenerate field, not as an
// error.
func (e *Experiment) Spectral() (*SpectralReport, error) {
	spread, err := analysis.ParseSpread(e.cfg.Spectral.Spread)
	if err != nil {
		return nil, err
	}
	omega := e.model.Frequencies()
	rep := &SpectralReport{Spread: spread}

	rep.Estimate, err = analysis.EstimateCritical(e.graph, omega, spread)
	if err != nil {
		deg, ok := asDegenerate(err)
		switch {
		case ok:
			rep.Degenerate = deg
		case e.skipTooLarge(err, "global estimate"):
			rep.TooLarge = true
		default:
			return nil, err
		}
	}

	rep.Components, err = analysis.ComponentEstimates(e.graph, omega, spread)
	if err != nil {
		if !e.skipTooLarge(err, "component estimates") {
			return nil, err
		}
		rep.TooLarge = true
	}
	rep.Structural, err = analysis.StructuralEstimate(e.graph, omega, spread)
	if err != nil {
		_, ok := asDegenerate(err)
		switch {
		case ok:
		case e.skipTooLarge(err, "structural estimate"):
			rep.TooLarge = true
		default:
			return nil, err
		}
	}
	rep.Gamma, err = goldbach.Gamma(e.cfg.Target, e.primes)
	if err != nil {
		return nil, fmt.Errorf("gamma: %w", err)
	}
	return rep, nil
}
