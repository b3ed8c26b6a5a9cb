package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/goldbach"
	"github.com/san-kum/primesync/internal/integrators"
	"github.com/san-kum/primesync/internal/kuramoto"
	"github.com/san-kum/primesync/internal/primes"
	"github.com/san-kum/primesync/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func graph(t *testing.T, n int, opts ...goldbach.Option) *goldbach.Graph {
	t.Helper()
	ps, err := primes.Sieve(n)
	require.NoError(t, err)
	g, err := goldbach.Build(n, ps, opts...)
	require.NoError(t, err)
	return g
}

func logFrequencies(g *goldbach.Graph) []float64 {
	return kuramoto.Frequencies(kuramoto.Logarithmic{}, g.Primes())
}

func TestComponents_N30(t *testing.T) {
	g := graph(t, 30)
	count, labels := Components(g)

	assert.Equal(t, 7, count, "three pairs plus four isolated primes")
	assert.Equal(t, 4, IsolatedCount(g))

	i7, _ := g.Index(7)
	i23, _ := g.Index(23)
	i11, _ := g.Index(11)
	assert.Equal(t, labels[i7], labels[i23])
	assert.NotEqual(t, labels[i7], labels[i11])

	// labels follow first appearance: 2, 3 and 5 are isolated, then 7
	for i, want := range []int{0, 1, 2, 3} {
		assert.Equal(t, want, labels[i])
	}
	assert.Equal(t, count-1, maxLabel(labels))
}

func maxLabel(labels []int) int {
	m := -1
	for _, l := range labels {
		m = max(m, l)
	}
	return m
}

func TestSpectral_LargeMatchingNeedsNoDecomposition(t *testing.T) {
	g := graph(t, 50000)
	require.Greater(t, g.Size(), MaxDenseOscillators)

	count, _ := Components(g)
	assert.Equal(t, g.Size()-g.EdgeCount(), count)

	_, err := EstimateCritical(g, logFrequencies(g), SpreadMax)
	var deg *DegenerateError
	require.True(t, errors.As(err, &deg), "got %v", err)
	assert.False(t, errors.Is(err, ErrTooLarge))
	assert.Equal(t, count, deg.Components)

	lmax, err := SpectralRadius(g)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, lmax, 1e-12)

	s, err := StructuralEstimate(g, logFrequencies(g), SpreadMax)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.Inverse, 1e-12)

	ests, err := ComponentEstimates(g, logFrequencies(g), SpreadMax)
	require.NoError(t, err)
	assert.Len(t, ests, g.EdgeCount())
}

func TestSpectralRadius_MatchesDenseOnRandomTopology(t *testing.T) {
	g := goldbach.Randomize(graph(t, 60), rand.New(rand.NewSource(3)))

	vals, err := Eigenvalues(g.Dense())
	require.NoError(t, err)
	lmax, err := SpectralRadius(g)
	require.NoError(t, err)
	assert.InDelta(t, vals[len(vals)-1], lmax, 1e-9)
}

func TestEigenvalues_Ascending(t *testing.T) {
	// Laplacian of the path 0-1-2 has eigenvalues 0, 1, 3.
	l := mat.NewSymDense(3, []float64{
		1, -1, 0,
		-1, 2, -1,
		0, -1, 1,
	})
	vals, err := Eigenvalues(l)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 3}, vals, 1e-10)
}

func TestLaplacian_RowsSumToZero(t *testing.T) {
	g := graph(t, 100)
	l, err := Laplacian(g)
	require.NoError(t, err)

	n := g.Size()
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += l.At(i, j)
		}
		assert.InDelta(t, 0, sum, 1e-12, "row %d", i)
	}

	i3, _ := g.Index(3)
	i97, _ := g.Index(97)
	assert.InDelta(t, -1/g.AverageDegree(), l.At(i3, i97), 1e-12)
}

func TestAlgebraicConnectivity_N30IsZero(t *testing.T) {
	g := graph(t, 30)
	l2, err := AlgebraicConnectivity(g)
	require.NoError(t, err)
	assert.Zero(t, l2)

	// pairs only: still three disconnected components
	pairs := graph(t, 30, goldbach.WithIsolation(goldbach.ExcludeIsolated))
	l2, err = AlgebraicConnectivity(pairs)
	require.NoError(t, err)
	assert.Zero(t, l2)
}

func TestEstimateCritical_N30Degenerate(t *testing.T) {
	g := graph(t, 30)
	_, err := EstimateCritical(g, logFrequencies(g), SpreadMax)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateSpectrum))

	var deg *DegenerateError
	require.True(t, errors.As(err, &deg))
	assert.Equal(t, 7, deg.Components)
	assert.Equal(t, 4, deg.Isolated)
	assert.Equal(t, 3, deg.Edges)
}

func TestEstimateCritical_Edgeless(t *testing.T) {
	g := graph(t, 6)
	_, err := EstimateCritical(g, logFrequencies(g), SpreadMax)

	var deg *DegenerateError
	require.True(t, errors.As(err, &deg))
	assert.Zero(t, deg.Edges)

	_, err = Laplacian(g)
	assert.True(t, errors.Is(err, ErrDegenerateSpectrum))
}

func TestEstimateCritical_SinglePair(t *testing.T) {
	g := graph(t, 10, goldbach.WithIsolation(goldbach.ExcludeIsolated))
	omega := logFrequencies(g)

	l2, err := AlgebraicConnectivity(g)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, l2, 1e-12)

	est, err := EstimateCritical(g, omega, SpreadRange)
	require.NoError(t, err)
	// equals the locking threshold Δω/2 of the pair
	assert.InDelta(t, (math.Log(7)-math.Log(3))/2, est.Kappa, 1e-12)
	assert.Equal(t, SpreadRange, est.Measure)

	est, err = EstimateCritical(g, omega, SpreadMax)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(7)/2, est.Kappa, 1e-12)

	est, err = EstimateCritical(g, omega, SpreadStd)
	require.NoError(t, err)
	assert.InDelta(t, (math.Log(7)-math.Log(3))/4, est.Kappa, 1e-12)
}

func TestEstimateCritical_DimensionMismatch(t *testing.T) {
	g := graph(t, 30)
	_, err := EstimateCritical(g, []float64{1, 2}, SpreadMax)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestComponentEstimates_N30(t *testing.T) {
	g := graph(t, 30)
	ests, err := ComponentEstimates(g, logFrequencies(g), SpreadRange)
	require.NoError(t, err)
	require.Len(t, ests, 3)

	want := [][]int{{7, 23}, {11, 19}, {13, 17}}
	for i, ce := range ests {
		assert.Equal(t, want[i], ce.Primes)
		assert.InDelta(t, 2.0, ce.Lambda2, 1e-12)
		p, q := float64(ce.Primes[0]), float64(ce.Primes[1])
		assert.InDelta(t, (math.Log(q)-math.Log(p))/2, ce.Kappa, 1e-12)
	}
}

func TestSpectralRadius(t *testing.T) {
	g := graph(t, 30)
	lmax, err := SpectralRadius(g)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, lmax, 1e-12, "a matching has spectral radius equal to the edge weight")

	s, err := StructuralEstimate(g, logFrequencies(g), SpreadMax)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.Inverse, 1e-12)
	assert.InDelta(t, math.Log(29), s.Scaled, 1e-12)

	empty := graph(t, 6)
	lmax, err = SpectralRadius(empty)
	require.NoError(t, err)
	assert.Zero(t, lmax)
	_, err = StructuralEstimate(empty, logFrequencies(empty), SpreadMax)
	assert.True(t, errors.Is(err, ErrDegenerateSpectrum))
}

func TestSpectrum_Idempotent(t *testing.T) {
	g := graph(t, 60)
	a, err := Spectrum(g)
	require.NoError(t, err)
	b, err := Spectrum(g)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, g.Size())
	assert.InDelta(t, 0, a[0], 1e-9)
}

func TestParseSpread(t *testing.T) {
	for name, want := range map[string]Spread{"max": SpreadMax, "range": SpreadRange, "std": SpreadStd, "": SpreadMax} {
		got, err := ParseSpread(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSpread("median")
	assert.Error(t, err)
}

func TestLockedEdges(t *testing.T) {
	g := graph(t, 30, goldbach.WithIsolation(goldbach.ExcludeIsolated))
	// locks 13-17 and 11-19 but not 7-23: Δω/2 is 0.134, 0.274, 0.597
	model := kuramoto.New(g, kuramoto.WithCoupling(0.45))

	cfg := dynamo.DefaultConfig()
	cfg.Duration = 120
	cfg.RecordEvery = 5
	res, err := sim.New(model, integrators.NewRK4()).Run(context.Background(), sim.SyncedPhases(g.Size(), 0), cfg)
	require.NoError(t, err)

	locks, err := LockedEdges(g, res, 60, 1e-3)
	require.NoError(t, err)
	require.Len(t, locks, 3)

	byPair := map[[2]int]EdgeLock{}
	for _, l := range locks {
		byPair[[2]int{l.P, l.Q}] = l
	}
	assert.False(t, byPair[[2]int{7, 23}].Locked)
	assert.True(t, byPair[[2]int{11, 19}].Locked)
	assert.True(t, byPair[[2]int{13, 17}].Locked)
	assert.Greater(t, byPair[[2]int{7, 23}].Drift, 0.1)
}
