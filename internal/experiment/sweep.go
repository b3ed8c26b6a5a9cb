package experiment

import (
	"context"
	"errors"
	"math"
	"runtime"

	"github.com/san-kum/primesync/internal/analysis"
	"github.com/san-kum/primesync/internal/config"
	"github.com/san-kum/primesync/internal/primes"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TargetResult is one row of a target sweep. Failed targets keep their
// error message and NaN estimates.
type TargetResult struct {
	N           int     `json:"n"`
	Oscillators int     `json:"oscillators"`
	Edges       int     `json:"edges"`
	Gamma       float64 `json:"gamma"`
	Kappa       float64 `json:"kappa"`
	Converged   bool    `json:"converged"`
	Spectral    float64 `json:"spectral"`
	Components  int     `json:"components"`
	Err         string  `json:"error,omitempty"`
}

func asDegenerate(err error) (*analysis.DegenerateError, bool) {
	var deg *analysis.DegenerateError
	ok := errors.As(err, &deg)
	return deg, ok
}

// SweepTargets runs a search and the spectral estimate for every target n.
// Each target uses its own seed derived from base.Seed, so rows do not
// depend on scheduling. A failing target is logged and skipped; only
// cancellation of ctx aborts the sweep.
func SweepTargets(ctx context.Context, base *config.Config, ns []int, workers int) ([]TargetResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	cache := primes.NewCache()
	maxN := 0
	for _, n := range ns {
		maxN = max(maxN, n)
	}
	if maxN >= 2 {
		if _, err := cache.UpTo(maxN); err != nil {
			return nil, err
		}
	}

	out := make([]TargetResult, len(ns))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, n := range ns {
		g.Go(func() error {
			out[i] = sweepTarget(ctx, base, n, cache)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func sweepTarget(ctx context.Context, base *config.Config, n int, cache *primes.Cache) TargetResult {
	row := TargetResult{N: n, Kappa: math.NaN(), Spectral: math.NaN(), Gamma: math.NaN()}

	cfg := base.Clone()
	cfg.Target = n
	cfg.Seed = SeedFor(base.Seed, TargetStream(n))

	exp, err := New(cfg, WithPrimeCache(cache), WithWorkers(1))
	if err != nil {
		logrus.WithError(err).Warnf("skipping N=%d", n)
		row.Err = err.Error()
		return row
	}
	row.Oscillators = exp.Graph().Size()
	row.Edges = exp.Graph().EdgeCount()
	row.Components, _ = analysis.Components(exp.Graph())

	rep, err := exp.Spectral()
	if err != nil {
		logrus.WithError(err).Warnf("spectral estimate failed for N=%d", n)
	} else {
		row.Gamma = rep.Gamma
		if rep.Estimate != nil {
			row.Spectral = rep.Estimate.Kappa
		}
	}

	res, err := exp.Search(ctx)
	if res != nil {
		row.Kappa = res.Kappa
		row.Converged = res.Converged
	}
	if err != nil {
		logrus.WithError(err).Warnf("search failed for N=%d", n)
		row.Err = err.Error()
	}
	return row
}
