package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/primesync/internal/analysis"
	"github.com/san-kum/primesync/internal/config"
	"github.com/san-kum/primesync/internal/goldbach"
	"github.com/san-kum/primesync/internal/optim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"euler", "rk4", "rk45"}, r.ListIntegrators())
	assert.Equal(t, []string{"identity", "log"}, r.ListFrequencyMaps())

	integ, err := r.GetIntegrator("rk45")
	require.NoError(t, err)
	assert.NotNil(t, integ)

	_, err = r.GetIntegrator("verlet")
	assert.Error(t, err)

	fm, err := r.GetFrequencyMap("prime")
	require.NoError(t, err)
	assert.Equal(t, "identity", fm.Name())
}

func TestSeedFor(t *testing.T) {
	assert.Equal(t, SeedFor(42, "search"), SeedFor(42, "search"))
	assert.NotEqual(t, SeedFor(42, "search"), SeedFor(42, "run"))
	assert.NotEqual(t, SeedFor(42, TargetStream(10)), SeedFor(42, TargetStream(12)))
	assert.Equal(t, int64(42), SeedFor(SeedFor(42, "sweep"), "sweep"))
}

func TestNew_InvalidTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Target = 31
	_, err := New(cfg)
	assert.True(t, errors.Is(err, goldbach.ErrInvalidTarget))
}

func TestNew_UnknownIntegrator(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Integrator = "leapfrog"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestExperiment_Pipeline(t *testing.T) {
	exp, err := New(config.GetPreset("n30"))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, exp.Primes())
	assert.Equal(t, 10, exp.Graph().Size())
	assert.Equal(t, 3, exp.Graph().EdgeCount())
	assert.Equal(t, 10, exp.Model().StateDim())
}

func TestExperiment_RunLockedPair(t *testing.T) {
	exp, err := New(config.GetPreset("pair10"))
	require.NoError(t, err)

	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	psi := math.Asin(math.Log(7.0/3.0) / 2)
	assert.InDelta(t, math.Cos(psi/2), res.Metrics["coherence"], 1e-3)
}

func TestExperiment_Search(t *testing.T) {
	exp, err := New(config.GetPreset("pair10"))
	require.NoError(t, err)

	res, err := exp.Search(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Converged)

	want := math.Log(7.0/3.0) / (2 * math.Sin(2*math.Acos(0.9)))
	assert.InDelta(t, want, res.Kappa, 0.01)
}

func TestExperiment_SearchEdgeless(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Target = 6
	exp, err := New(cfg)
	require.NoError(t, err)

	_, err = exp.Search(context.Background())
	assert.True(t, errors.Is(err, optim.ErrNoCouplingEffect))
}

func TestExperiment_AverageTail(t *testing.T) {
	cfg := config.GetPreset("pair10")
	cfg.Sim.AverageTail = 20
	exp, err := New(cfg)
	require.NoError(t, err)

	rs, err := exp.Prober().Probe(context.Background(), 1.0, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, rs, 2)

	psi := math.Asin(math.Log(7.0/3.0) / 2)
	for _, r := range rs {
		assert.InDelta(t, math.Cos(psi/2), r, 1e-3)
	}
}

func TestExperiment_SpectralN30(t *testing.T) {
	exp, err := New(config.GetPreset("n30"))
	require.NoError(t, err)

	rep, err := exp.Spectral()
	require.NoError(t, err)

	assert.Nil(t, rep.Estimate)
	require.NotNil(t, rep.Degenerate)
	assert.Equal(t, 7, rep.Degenerate.Components)
	assert.Len(t, rep.Components, 3)
	assert.InDelta(t, 0.4431384275, rep.Gamma, 1e-9)
	require.NotNil(t, rep.Structural)
}

func TestExperiment_SpectralLargeTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Target = 50000
	exp, err := New(cfg)
	require.NoError(t, err)
	require.Greater(t, exp.Graph().Size(), analysis.MaxDenseOscillators)

	rep, err := exp.Spectral()
	require.NoError(t, err)
	assert.False(t, rep.TooLarge)
	assert.Nil(t, rep.Estimate)
	require.NotNil(t, rep.Degenerate)
	assert.Greater(t, rep.Degenerate.Components, 1)
	assert.Len(t, rep.Components, exp.Graph().EdgeCount())
	require.NotNil(t, rep.Structural)
	assert.InDelta(t, 1.0, rep.Structural.LambdaMax, 1e-12)
	assert.Greater(t, rep.Gamma, 0.0)
}

func TestExperiment_SpectralPair(t *testing.T) {
	exp, err := New(config.GetPreset("pair10"))
	require.NoError(t, err)

	rep, err := exp.Spectral()
	require.NoError(t, err)
	require.NotNil(t, rep.Estimate)
	assert.Nil(t, rep.Degenerate)
	assert.InDelta(t, math.Log(7)/2, rep.Estimate.Kappa, 1e-12)
}

func TestExperiment_Sweep(t *testing.T) {
	cfg := config.GetPreset("pair10")
	cfg.Sweep.Points = 5
	exp, err := New(cfg)
	require.NoError(t, err)

	samples, err := exp.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 5)
	assert.Equal(t, 2.0, samples[4].Kappa)
	assert.True(t, samples[4].Synced)
	assert.True(t, samples[2].Synced)
	assert.False(t, samples[1].Synced, "κ=0.5 locks at r≈0.875, below r*=0.9")
}

func TestSweepTargets_SkipsFailures(t *testing.T) {
	base := config.GetPreset("pair10")
	base.Sim.Duration = 40

	rows, err := SweepTargets(context.Background(), base, []int{6, 10, 31}, 2)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 6, rows[0].N)
	assert.Contains(t, rows[0].Err, "no effect")
	assert.True(t, math.IsNaN(rows[0].Spectral))

	assert.Empty(t, rows[1].Err)
	assert.Equal(t, 2, rows[1].Oscillators)
	assert.InDelta(t, 0.54, rows[1].Kappa, 0.01)
	assert.InDelta(t, math.Log(7)/2, rows[1].Spectral, 1e-12)

	assert.NotEmpty(t, rows[2].Err)
}
