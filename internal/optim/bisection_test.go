package optim_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/goldbach"
	"github.com/san-kum/primesync/internal/integrators"
	"github.com/san-kum/primesync/internal/kuramoto"
	"github.com/san-kum/primesync/internal/metrics"
	"github.com/san-kum/primesync/internal/optim"
	"github.com/san-kum/primesync/internal/primes"
	"github.com/san-kum/primesync/internal/sim"
)

// stepProber synchronises exactly above critical.
func stepProber(critical float64, calls *int64) optim.ProbeFunc {
	return func(ctx context.Context, kappa float64, seeds []int64) ([]float64, error) {
		atomic.AddInt64(calls, 1)
		rs := make([]float64, len(seeds))
		for i := range rs {
			if kappa > critical {
				rs[i] = 0.95
			} else {
				rs[i] = 0.1
			}
		}
		return rs, nil
	}
}

type edgeless struct{ optim.ProbeFunc }

func (edgeless) Couplable() bool { return false }

// modelProber runs the Kuramoto model once per seed and reports final r.
type modelProber struct {
	model *kuramoto.Model
	cfg   dynamo.Config
}

func (p modelProber) Couplable() bool { return p.model.Couplable() }

func (p modelProber) Probe(ctx context.Context, kappa float64, seeds []int64) ([]float64, error) {
	e := sim.NewEnsemble(p.model.WithKappa(kappa), func() dynamo.Integrator { return integrators.NewRK4() })
	results, err := e.Run(ctx, p.cfg, seeds)
	if err != nil {
		return nil, err
	}
	rs := make([]float64, len(results))
	for i, res := range results {
		rs[i], _ = metrics.OrderParameter(res.Final)
	}
	return rs, nil
}

func newModelProber(n int, policy goldbach.IsolationPolicy) modelProber {
	ps, err := primes.Sieve(n)
	Expect(err).NotTo(HaveOccurred())
	g, err := goldbach.Build(n, ps, goldbach.WithIsolation(policy))
	Expect(err).NotTo(HaveOccurred())

	cfg := dynamo.DefaultConfig()
	cfg.Duration = 60
	return modelProber{model: kuramoto.New(g), cfg: cfg}
}

var _ = Describe("Bisection", func() {
	var (
		ctx   context.Context
		rng   *rand.Rand
		calls int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		rng = rand.New(rand.NewSource(42))
		calls = 0
	})

	Describe("DefaultBisection", func() {
		It("brackets [0, 2.5N] with twelve iterations", func() {
			b := optim.DefaultBisection(30)
			Expect(b.Lo).To(BeZero())
			Expect(b.Hi).To(Equal(75.0))
			Expect(b.Iterations).To(Equal(12))
			Expect(b.Threshold).To(Equal(0.5))
			Expect(b.Repeats).To(Equal(1))
			Expect(b.Validate()).To(Succeed())
		})
	})

	Describe("Search with a sharp transition", func() {
		It("converges on the transition", func() {
			b := optim.Bisection{Lo: 0, Hi: 10, Iterations: 20, Threshold: 0.5, Repeats: 1}
			res, err := b.Search(ctx, stepProber(3.3, &calls), rng)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())
			Expect(res.Kappa).To(BeNumerically("~", 3.3, 1e-4))
			Expect(res.Lo).To(BeNumerically("<=", 3.3))
			Expect(res.Hi).To(BeNumerically(">=", 3.3))
		})

		It("halves the bracket on every iteration", func() {
			b := optim.Bisection{Lo: 0, Hi: 8, Iterations: 7, Threshold: 0.5, Repeats: 1}
			res, err := b.Search(ctx, stepProber(5.1, &calls), rng)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Iterations).To(Equal(7))
			Expect(res.Width()).To(BeNumerically("~", 8/math.Pow(2, 7), 1e-12))
			Expect(res.Probes).To(HaveLen(9))
			Expect(calls).To(Equal(int64(9)))
		})

		It("keeps higher r at the upper end of the bracket", func() {
			b := optim.Bisection{Lo: 0, Hi: 4, Iterations: 10, Threshold: 0.5, Repeats: 3}
			res, err := b.Search(ctx, stepProber(1.7, &calls), rng)
			Expect(err).NotTo(HaveOccurred())

			for _, s := range res.Probes {
				if s.Kappa >= res.Hi {
					Expect(s.Synced).To(BeTrue())
				}
				if s.Kappa <= res.Lo {
					Expect(s.Synced).To(BeFalse())
				}
				Expect(s.Rs).To(HaveLen(3))
			}
		})

		It("stops early once the tolerance is met", func() {
			b := optim.Bisection{Lo: 0, Hi: 1, Iterations: 50, Threshold: 0.5, Repeats: 1, Tolerance: 0.01}
			res, err := b.Search(ctx, stepProber(0.3, &calls), rng)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Iterations).To(Equal(7))
			Expect(res.Width()).To(BeNumerically("<=", 0.01))
		})

		It("flags a bracket still wider than the tolerance", func() {
			b := optim.Bisection{Lo: 0, Hi: 1, Iterations: 3, Threshold: 0.5, Repeats: 1, Tolerance: 0.01}
			res, err := b.Search(ctx, stepProber(0.3, &calls), rng)

			Expect(errors.Is(err, optim.ErrIterationBudgetExhausted)).To(BeTrue())
			Expect(res).NotTo(BeNil())
			Expect(res.Converged).To(BeFalse())
			Expect(res.Width()).To(BeNumerically("~", 0.125, 1e-12))
		})
	})

	Describe("degenerate coupling", func() {
		It("rejects a structurally uncoupled prober before probing", func() {
			b := optim.DefaultBisection(6)
			_, err := b.Search(ctx, edgeless{stepProber(1, &calls)}, rng)

			Expect(err).To(MatchError(optim.ErrNoCouplingEffect))
			Expect(calls).To(BeZero())
		})

		It("detects an order parameter that ignores κ", func() {
			flat := optim.ProbeFunc(func(ctx context.Context, kappa float64, seeds []int64) ([]float64, error) {
				rs := make([]float64, len(seeds))
				for i, s := range seeds {
					rs[i] = float64(s%1000) / 1000
				}
				return rs, nil
			})
			_, err := optim.DefaultBisection(30).Search(ctx, flat, rng)
			Expect(err).To(MatchError(optim.ErrNoCouplingEffect))
		})

		It("reports an edgeless Goldbach graph", func() {
			p := newModelProber(6, goldbach.IncludeIsolated)
			_, err := optim.DefaultBisection(6).Search(ctx, p, rng)
			Expect(err).To(MatchError(optim.ErrNoCouplingEffect))
		})
	})

	Describe("failures", func() {
		It("aborts on a diverged probe", func() {
			boom := optim.ProbeFunc(func(ctx context.Context, kappa float64, seeds []int64) ([]float64, error) {
				return nil, &dynamo.SimulationError{Step: 3, Wrapped: dynamo.ErrDivergedSimulation}
			})
			_, err := optim.DefaultBisection(30).Search(ctx, boom, rng)
			Expect(errors.Is(err, dynamo.ErrDivergedSimulation)).To(BeTrue())
		})

		It("rejects malformed parameters", func() {
			bad := []optim.Bisection{
				{Lo: 2, Hi: 1, Iterations: 5, Threshold: 0.5, Repeats: 1},
				{Lo: 0, Hi: 1, Iterations: 0, Threshold: 0.5, Repeats: 1},
				{Lo: 0, Hi: 1, Iterations: 5, Threshold: 1.5, Repeats: 1},
				{Lo: 0, Hi: 1, Iterations: 5, Threshold: 0.5, Repeats: 0},
				{Lo: 0, Hi: 1, Iterations: 5, Threshold: 0.5, Repeats: 1, Tolerance: -1},
			}
			for _, b := range bad {
				_, err := b.Search(ctx, stepProber(0.5, &calls), rng)
				Expect(errors.Is(err, optim.ErrInvalidSearch)).To(BeTrue())
			}
			Expect(calls).To(BeZero())
		})
	})

	Describe("Kuramoto pair", func() {
		It("finds the coupling where the locked pair reaches r*", func() {
			p := newModelProber(10, goldbach.ExcludeIsolated)
			b := optim.Bisection{Lo: 0, Hi: 2, Iterations: 12, Threshold: 0.9, Repeats: 2}

			res, err := b.Search(ctx, p, rng)
			Expect(err).NotTo(HaveOccurred())

			// locked pair: r = cos(ψ/2) with sin ψ = Δω/(2κ)
			dw := math.Log(7.0 / 3.0)
			want := dw / (2 * math.Sin(2*math.Acos(0.9)))
			Expect(res.Kappa).To(BeNumerically("~", want, 0.01))
		})

		It("is reproducible for a fixed seed", func() {
			p := newModelProber(10, goldbach.ExcludeIsolated)
			b := optim.Bisection{Lo: 0, Hi: 2, Iterations: 6, Threshold: 0.9, Repeats: 1}

			a, err := b.Search(ctx, p, rand.New(rand.NewSource(7)))
			Expect(err).NotTo(HaveOccurred())
			c, err := b.Search(ctx, p, rand.New(rand.NewSource(7)))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Kappa).To(Equal(a.Kappa))
		})
	})
})

var _ = Describe("SweepCoupling", func() {
	It("returns samples in κ order", func() {
		var calls int64
		kappas := optim.Grid(0, 2, 5)
		Expect(kappas).To(Equal([]float64{0, 0.5, 1, 1.5, 2}))

		samples, err := optim.SweepCoupling(context.Background(), stepProber(0.9, &calls), kappas, 2, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())
		Expect(samples).To(HaveLen(5))
		for i, s := range samples {
			Expect(s.Kappa).To(Equal(kappas[i]))
			Expect(s.Rs).To(HaveLen(2))
		}

		first, ok := optim.FirstSynced(samples, 0.5)
		Expect(ok).To(BeTrue())
		Expect(first).To(Equal(1.0))
		Expect(samples[0].Synced).To(BeFalse())
		Expect(samples[4].Synced).To(BeTrue())
	})

	It("propagates probe failures", func() {
		boom := optim.ProbeFunc(func(ctx context.Context, kappa float64, seeds []int64) ([]float64, error) {
			if kappa > 1 {
				return nil, dynamo.ErrDivergedSimulation
			}
			return []float64{0.2}, nil
		})
		_, err := optim.SweepCoupling(context.Background(), boom, optim.Grid(0, 2, 3), 1, rand.New(rand.NewSource(1)))
		Expect(errors.Is(err, dynamo.ErrDivergedSimulation)).To(BeTrue())
	})

	It("shows r rising across the locking transition of a pair", func() {
		p := newModelProber(10, goldbach.ExcludeIsolated)
		samples, err := optim.SweepCoupling(context.Background(), p, []float64{0.6, 1.0, 2.0}, 1, rand.New(rand.NewSource(3)))
		Expect(err).NotTo(HaveOccurred())
		Expect(samples[1].R).To(BeNumerically(">", samples[0].R))
		Expect(samples[2].R).To(BeNumerically(">", samples[1].R))
	})
})
