package experiment

import (
	"context"

	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/kuramoto"
	"github.com/san-kum/primesync/internal/metrics"
	"github.com/san-kum/primesync/internal/sim"
	"github.com/sirupsen/logrus"
)

// Prober measures the order parameter of a model at a given coupling, one
// simulation per seed. It implements optim.Prober.
type Prober struct {
	model         *kuramoto.Model
	cfg           dynamo.Config
	newIntegrator func() dynamo.Integrator
	averageTail   float64
	workers       int
}

func NewProber(model *kuramoto.Model, cfg dynamo.Config, newIntegrator func() dynamo.Integrator, averageTail float64, workers int) *Prober {
	return &Prober{
		model:         model,
		cfg:           cfg,
		newIntegrator: newIntegrator,
		averageTail:   averageTail,
		workers:       workers,
	}
}

func (p *Prober) Couplable() bool { return p.model.Couplable() }

func (p *Prober) Probe(ctx context.Context, kappa float64, seeds []int64) ([]float64, error) {
	opts := []sim.EnsembleOption{sim.WithWorkers(p.workers)}
	if p.averageTail > 0 {
		from := p.cfg.Duration - p.averageTail
		opts = append(opts, sim.WithMetrics(func() []dynamo.Metric {
			return []dynamo.Metric{metrics.NewCoherence(from)}
		}))
	}

	results, err := sim.NewEnsemble(p.model.WithKappa(kappa), p.newIntegrator, opts...).Run(ctx, p.cfg, seeds)
	if err != nil {
		return nil, err
	}

	rs := make([]float64, len(results))
	for i, res := range results {
		if p.averageTail > 0 {
			rs[i] = res.Metrics["coherence"]
		} else {
			rs[i], _ = metrics.OrderParameter(res.Final)
		}
	}
	logrus.Debugf("probe κ=%.6g seeds=%d r=%v", kappa, len(seeds), rs)
	return rs, nil
}
