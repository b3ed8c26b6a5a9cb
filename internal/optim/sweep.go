package optim

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Grid returns n evenly spaced couplings from lo to hi inclusive.
func Grid(lo, hi float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// SweepCoupling probes every κ in kappas with repeats independent seeds
// each. Seeds are drawn from rng before any probe starts, so the output does
// not depend on scheduling. Samples are returned in the order of kappas.
func SweepCoupling(ctx context.Context, p Prober, kappas []float64, repeats int, rng *rand.Rand) ([]Sample, error) {
	if repeats < 1 {
		return nil, fmt.Errorf("%w: repeats must be positive, got %d", ErrInvalidSearch, repeats)
	}

	seeds := make([][]int64, len(kappas))
	for i := range kappas {
		seeds[i] = drawSeeds(rng, repeats)
	}

	out := make([]Sample, len(kappas))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, k := range kappas {
		g.Go(func() error {
			rs, err := p.Probe(ctx, k, seeds[i])
			if err != nil {
				return fmt.Errorf("probe at κ=%g: %w", k, err)
			}
			out[i] = Sample{Kappa: k, R: stat.Mean(rs, nil), Rs: rs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FirstSynced marks every sample whose mean r exceeds rStar as synchronised
// and returns the first such coupling, or false if none crosses.
func FirstSynced(samples []Sample, rStar float64) (float64, bool) {
	first, found := 0.0, false
	for i := range samples {
		samples[i].Synced = samples[i].R > rStar
		if samples[i].Synced && !found {
			first, found = samples[i].Kappa, true
		}
	}
	return first, found
}
