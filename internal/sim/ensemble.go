package sim

import (
	"context"
	"math/rand"
	"runtime"

	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs one system from many initial conditions in parallel. Each
// run gets its own integrator and metrics from the factories.
type Ensemble struct {
	dyn           dynamo.System
	newIntegrator func() dynamo.Integrator
	newMetrics    func() []dynamo.Metric
	workers       int
}

type EnsembleOption func(*Ensemble)

// WithWorkers bounds the number of concurrent runs. Zero or less means
// GOMAXPROCS.
func WithWorkers(n int) EnsembleOption {
	return func(e *Ensemble) { e.workers = n }
}

func WithMetrics(factory func() []dynamo.Metric) EnsembleOption {
	return func(e *Ensemble) { e.newMetrics = factory }
}

func NewEnsemble(dyn dynamo.System, newIntegrator func() dynamo.Integrator, opts ...EnsembleOption) *Ensemble {
	e := &Ensemble{dyn: dyn, newIntegrator: newIntegrator}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// Run starts one run per seed from uniformly random phases drawn with that
// seed. Results are returned in seed order.
func (e *Ensemble) Run(ctx context.Context, cfg dynamo.Config, seeds []int64) ([]*dynamo.Result, error) {
	x0s := make([]dynamo.State, len(seeds))
	for i, seed := range seeds {
		x0s[i] = RandomPhases(rand.New(rand.NewSource(seed)), e.dyn.StateDim())
	}
	return e.RunFrom(ctx, cfg, x0s)
}

// RunFrom runs once per initial state. The first failure cancels the
// remaining runs.
func (e *Ensemble) RunFrom(ctx context.Context, cfg dynamo.Config, x0s []dynamo.State) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, len(x0s))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, x0 := range x0s {
		g.Go(func() error {
			s := New(e.dyn, e.newIntegrator())
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}
			res, err := s.Run(ctx, x0, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"runs":    len(x0s),
		"workers": e.workers,
	}).Debug("ensemble complete")
	return results, nil
}
