package kuramoto

import (
	"math"

	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/goldbach"
	"github.com/san-kum/primesync/internal/metrics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DenseLimit is the oscillator count above which Auto switches to the
// sparse edge arena.
const DenseLimit = 2048

// Representation selects how the coupling sum is evaluated.
type Representation int

const (
	Auto Representation = iota
	Dense
	Sparse
)

// Model is the Kuramoto system restricted to a Goldbach graph:
//
//	dθ_i/dt = ω_i + (κ/d̄) Σ_j W_ij sin(θ_j − θ_i) + μ r sin(φ − θ_i)
//
// where d̄ is the graph's average degree and the optional mean-field term
// (μ, r, φ from the current order parameter) is zero unless configured.
// A Model is immutable after New; Derive is safe for concurrent use.
type Model struct {
	graph     *goldbach.Graph
	freq      FrequencyMap
	omega     []float64
	kappa     float64
	meanField float64
	avgDegree float64
	dense     *mat.SymDense
}

type Option func(*Model)

func WithFrequencies(fm FrequencyMap) Option {
	return func(m *Model) { m.freq = fm }
}

func WithCoupling(kappa float64) Option {
	return func(m *Model) { m.kappa = kappa }
}

// WithMeanField adds a global pull of strength mu towards the mean phase.
func WithMeanField(mu float64) Option {
	return func(m *Model) { m.meanField = mu }
}

func WithRepresentation(r Representation) Option {
	return func(m *Model) {
		m.dense = nil
		if r == Dense || (r == Auto && m.graph.Size() <= DenseLimit) {
			m.dense = m.graph.Dense()
		}
	}
}

func New(g *goldbach.Graph, opts ...Option) *Model {
	m := &Model{
		graph:     g,
		freq:      Logarithmic{},
		avgDegree: g.AverageDegree(),
	}
	WithRepresentation(Auto)(m)
	for _, opt := range opts {
		opt(m)
	}
	m.omega = Frequencies(m.freq, g.Primes())
	return m
}

func (m *Model) StateDim() int              { return len(m.omega) }
func (m *Model) Graph() *goldbach.Graph     { return m.graph }
func (m *Model) Kappa() float64             { return m.kappa }
func (m *Model) MeanField() float64         { return m.meanField }
func (m *Model) FrequencyMap() FrequencyMap { return m.freq }
func (m *Model) AverageDegree() float64     { return m.avgDegree }
func (m *Model) IsSparse() bool             { return m.dense == nil }

// Frequencies returns a copy of ω.
func (m *Model) Frequencies() []float64 {
	out := make([]float64, len(m.omega))
	copy(out, m.omega)
	return out
}

// Couplable reports whether κ influences the dynamics at all. It is false
// when the graph has no edges, in which case the coupling term is dropped.
func (m *Model) Couplable() bool {
	return m.graph.EdgeCount() > 0 && m.avgDegree > 0
}

// WithKappa returns a copy of m with coupling strength kappa.
func (m *Model) WithKappa(kappa float64) *Model {
	c := *m
	c.kappa = kappa
	return &c
}

func (m *Model) Derive(theta dynamo.State, t float64) dynamo.State {
	return m.Velocity(theta, m.kappa)
}

// Velocity evaluates dθ/dt at coupling kappa without touching m.
func (m *Model) Velocity(theta dynamo.State, kappa float64) dynamo.State {
	n := len(m.omega)
	dx := make(dynamo.State, n)
	copy(dx, m.omega)

	if kappa != 0 && m.Couplable() {
		c := kappa / m.avgDegree
		if m.dense != nil {
			for i := 0; i < n; i++ {
				sum := 0.0
				for j := 0; j < n; j++ {
					if w := m.dense.At(i, j); w != 0 {
						sum += w * math.Sin(theta[j]-theta[i])
					}
				}
				dx[i] += c * sum
			}
		} else {
			for _, e := range m.graph.EdgesView() {
				s := e.Weight * math.Sin(theta[e.J]-theta[e.I])
				dx[e.I] += c * s
				dx[e.J] -= c * s
			}
		}
	}

	if m.meanField != 0 && n > 0 {
		r, phi := metrics.OrderParameter(theta)
		for i := 0; i < n; i++ {
			dx[i] += m.meanField * r * math.Sin(phi-theta[i])
		}
	}
	return dx
}

// MaxRate bounds |dθ_i/dt| over all states: max|ω| plus the largest
// possible coupling and mean-field pull.
func (m *Model) MaxRate() float64 {
	if len(m.omega) == 0 {
		return 0
	}
	rate := math.Max(math.Abs(floats.Max(m.omega)), math.Abs(floats.Min(m.omega)))
	if m.Couplable() {
		maxW := 0.0
		for i := 0; i < m.graph.Size(); i++ {
			maxW = math.Max(maxW, m.graph.WeightedDegree(i))
		}
		rate += math.Abs(m.kappa) / m.avgDegree * maxW
	}
	return rate + math.Abs(m.meanField)
}
