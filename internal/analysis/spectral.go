package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/primesync/internal/goldbach"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MaxDenseOscillators bounds the dense eigendecompositions (O(M³)).
const MaxDenseOscillators = 4096

// eigenZero is the magnitude below which an eigenvalue counts as zero.
const eigenZero = 1e-9

var (
	// ErrDegenerateSpectrum indicates λ₂ = 0, so S/λ₂ is undefined.
	ErrDegenerateSpectrum = errors.New("analysis: degenerate spectrum")

	ErrTooLarge = errors.New("analysis: graph exceeds dense eigendecomposition limit")

	ErrEigenFailed = errors.New("analysis: eigendecomposition did not converge")

	ErrDimensionMismatch = errors.New("analysis: frequency vector does not match graph size")
)

// DegenerateError reports why the spectral ratio is undefined.
type DegenerateError struct {
	Components int
	Isolated   int
	Edges      int
}

func (e *DegenerateError) Error() string {
	if e.Edges == 0 {
		return fmt.Sprintf("%v: graph has no edges (%d isolated oscillators)", ErrDegenerateSpectrum, e.Isolated)
	}
	return fmt.Sprintf("%v: %d connected components (%d isolated oscillators)", ErrDegenerateSpectrum, e.Components, e.Isolated)
}

func (e *DegenerateError) Unwrap() error { return ErrDegenerateSpectrum }

func degenerate(g *goldbach.Graph) *DegenerateError {
	c, _ := Components(g)
	return &DegenerateError{Components: c, Isolated: IsolatedCount(g), Edges: g.EdgeCount()}
}

// Spread selects the frequency-spread functional S(ω).
type Spread int

const (
	SpreadMax Spread = iota
	SpreadRange
	SpreadStd
)

func (s Spread) String() string {
	switch s {
	case SpreadRange:
		return "range"
	case SpreadStd:
		return "std"
	default:
		return "max"
	}
}

func ParseSpread(name string) (Spread, error) {
	switch strings.ToLower(name) {
	case "", "max":
		return SpreadMax, nil
	case "range":
		return SpreadRange, nil
	case "std", "stddev":
		return SpreadStd, nil
	default:
		return SpreadMax, fmt.Errorf("unknown spread: %s", name)
	}
}

// Of evaluates S(ω). SpreadStd is the population standard deviation.
func (s Spread) Of(omega []float64) float64 {
	if len(omega) == 0 {
		return 0
	}
	switch s {
	case SpreadRange:
		return floats.Max(omega) - floats.Min(omega)
	case SpreadStd:
		_, std := stat.PopMeanStdDev(omega, nil)
		return std
	default:
		return floats.Max(omega)
	}
}

// Laplacian returns L̃ = (D − W)/d̄ where D holds the weighted degrees and d̄
// is the average degree. An edgeless graph has no normalisation and yields a
// *DegenerateError.
func Laplacian(g *goldbach.Graph) (*mat.SymDense, error) {
	if g.Size() > MaxDenseOscillators {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, g.Size(), MaxDenseOscillators)
	}
	if g.EdgeCount() == 0 {
		return nil, degenerate(g)
	}
	return laplacian(g.Size(), g.EdgesView(), g.AverageDegree()), nil
}

func laplacian(n int, edges []goldbach.Edge, avgDegree float64) *mat.SymDense {
	l := mat.NewSymDense(n, nil)
	for _, e := range edges {
		w := e.Weight / avgDegree
		l.SetSym(e.I, e.I, l.At(e.I, e.I)+w)
		l.SetSym(e.J, e.J, l.At(e.J, e.J)+w)
		l.SetSym(e.I, e.J, l.At(e.I, e.J)-w)
	}
	return l
}

// Eigenvalues returns the eigenvalues of a in ascending order.
func Eigenvalues(a mat.Symmetric) ([]float64, error) {
	if a.SymmetricDim() == 0 {
		return nil, nil
	}
	var es mat.EigenSym
	if ok := es.Factorize(a, false); !ok {
		return nil, ErrEigenFailed
	}
	vals := es.Values(nil)
	sort.Float64s(vals)
	return vals, nil
}

// Spectrum returns the ascending eigenvalues of L̃.
func Spectrum(g *goldbach.Graph) ([]float64, error) {
	l, err := Laplacian(g)
	if err != nil {
		return nil, err
	}
	return Eigenvalues(l)
}

// AlgebraicConnectivity returns λ₂ of L̃. Disconnected graphs return 0
// without decomposing.
func AlgebraicConnectivity(g *goldbach.Graph) (float64, error) {
	if g.Size() < 2 || g.EdgeCount() == 0 {
		return 0, nil
	}
	if c, _ := Components(g); c > 1 {
		return 0, nil
	}
	vals, err := Spectrum(g)
	if err != nil {
		return 0, err
	}
	return clampZero(vals[1]), nil
}

func clampZero(v float64) float64 {
	if math.Abs(v) < eigenZero {
		return 0
	}
	return v
}

type Estimate struct {
	Kappa   float64
	Spread  float64
	Lambda2 float64
	Measure Spread
}

// EstimateCritical returns κ_c ≈ S(ω)/λ₂. A disconnected or edgeless graph
// has λ₂ = 0 and yields a *DegenerateError rather than +Inf, at any size;
// only connected graphs above MaxDenseOscillators return ErrTooLarge.
func EstimateCritical(g *goldbach.Graph, omega []float64, spread Spread) (*Estimate, error) {
	if len(omega) != g.Size() {
		return nil, fmt.Errorf("%w: %d frequencies for %d oscillators", ErrDimensionMismatch, len(omega), g.Size())
	}
	lambda2, err := AlgebraicConnectivity(g)
	if err != nil {
		return nil, err
	}
	if lambda2 == 0 {
		return nil, degenerate(g)
	}
	s := spread.Of(omega)
	return &Estimate{Kappa: s / lambda2, Spread: s, Lambda2: lambda2, Measure: spread}, nil
}

// ComponentEstimate is the spectral ratio restricted to one connected
// component, normalised by that component's own average degree.
type ComponentEstimate struct {
	Primes  []int
	Lambda2 float64
	Spread  float64
	Kappa   float64
}

// ComponentEstimates evaluates S/λ₂ on every component with at least one
// edge, in order of the component's smallest prime.
func ComponentEstimates(g *goldbach.Graph, omega []float64, spread Spread) ([]ComponentEstimate, error) {
	if len(omega) != g.Size() {
		return nil, fmt.Errorf("%w: %d frequencies for %d oscillators", ErrDimensionMismatch, len(omega), g.Size())
	}
	members, edges := splitComponents(g)

	var out []ComponentEstimate
	for c, m := range members {
		if len(edges[c]) == 0 {
			continue
		}
		if len(m) > MaxDenseOscillators {
			return nil, fmt.Errorf("%w: component of %d oscillators", ErrTooLarge, len(m))
		}
		avg := 2 * float64(len(edges[c])) / float64(len(m))
		vals, err := Eigenvalues(laplacian(len(m), edges[c], avg))
		if err != nil {
			return nil, err
		}

		ps := make([]int, len(m))
		w := make([]float64, len(m))
		for k, i := range m {
			ps[k] = g.Prime(i)
			w[k] = omega[i]
		}
		ce := ComponentEstimate{Primes: ps, Lambda2: clampZero(vals[1]), Spread: spread.Of(w)}
		if ce.Lambda2 > 0 {
			ce.Kappa = ce.Spread / ce.Lambda2
		}
		out = append(out, ce)
	}
	return out, nil
}

// splitComponents groups oscillator indices by connected component and
// re-indexes each component's edges locally.
func splitComponents(g *goldbach.Graph) (members [][]int, edges [][]goldbach.Edge) {
	count, labels := Components(g)

	members = make([][]int, count)
	for i, c := range labels {
		members[c] = append(members[c], i)
	}
	local := make([]int, g.Size())
	for _, m := range members {
		for k, i := range m {
			local[i] = k
		}
	}
	edges = make([][]goldbach.Edge, count)
	for _, e := range g.EdgesView() {
		c := labels[e.I]
		edges[c] = append(edges[c], goldbach.Edge{I: local[e.I], J: local[e.J], Weight: e.Weight})
	}
	return members, edges
}

// SpectralRadius returns λ_max of the coupling matrix W, the largest of the
// per-component radii. A single-edge component has radius equal to its
// weight, so matchings of any size need no decomposition.
func SpectralRadius(g *goldbach.Graph) (float64, error) {
	if g.EdgeCount() == 0 {
		return 0, nil
	}
	members, edges := splitComponents(g)

	lmax := 0.0
	for c, m := range members {
		switch {
		case len(edges[c]) == 0:
			continue
		case len(edges[c]) == 1:
			lmax = math.Max(lmax, math.Abs(edges[c][0].Weight))
			continue
		case len(m) > MaxDenseOscillators:
			return 0, fmt.Errorf("%w: component of %d oscillators", ErrTooLarge, len(m))
		}
		w := mat.NewSymDense(len(m), nil)
		for _, e := range edges[c] {
			w.SetSym(e.I, e.J, w.At(e.I, e.J)+e.Weight)
		}
		vals, err := Eigenvalues(w)
		if err != nil {
			return 0, err
		}
		lmax = math.Max(lmax, vals[len(vals)-1])
	}
	return lmax, nil
}

// Structural is the adjacency-based threshold: 1/λ_max, and the same bound
// scaled by the frequency spread.
type Structural struct {
	LambdaMax float64
	Inverse   float64
	Scaled    float64
}

func StructuralEstimate(g *goldbach.Graph, omega []float64, spread Spread) (*Structural, error) {
	if len(omega) != g.Size() {
		return nil, fmt.Errorf("%w: %d frequencies for %d oscillators", ErrDimensionMismatch, len(omega), g.Size())
	}
	lmax, err := SpectralRadius(g)
	if err != nil {
		return nil, err
	}
	if lmax <= eigenZero {
		return nil, degenerate(g)
	}
	return &Structural{LambdaMax: lmax, Inverse: 1 / lmax, Scaled: spread.Of(omega) / lmax}, nil
}
