package goldbach

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/primesync/internal/primes"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidTarget indicates an odd target or a target below 4.
	ErrInvalidTarget = errors.New("goldbach: target must be an even integer >= 4")

	// ErrInvalidPrimes indicates a prime list that is not strictly increasing
	// or contains values below 2.
	ErrInvalidPrimes = errors.New("goldbach: prime list must be strictly increasing and >= 2")

	// ErrInvalidWeight indicates a non-positive edge weight.
	ErrInvalidWeight = errors.New("goldbach: edge weight must be positive")
)

// IsolationPolicy decides which primes become oscillators.
type IsolationPolicy int

const (
	// IncludeIsolated keeps every prime <= N; primes without a partner get
	// zero-degree rows.
	IncludeIsolated IsolationPolicy = iota
	// ExcludeIsolated keeps only primes that have a Goldbach partner.
	ExcludeIsolated
)

func (p IsolationPolicy) String() string {
	switch p {
	case ExcludeIsolated:
		return "exclude"
	default:
		return "include"
	}
}

// ParseIsolationPolicy accepts "include" or "exclude".
func ParseIsolationPolicy(s string) (IsolationPolicy, error) {
	switch s {
	case "", "include":
		return IncludeIsolated, nil
	case "exclude":
		return ExcludeIsolated, nil
	default:
		return IncludeIsolated, fmt.Errorf("unknown isolation policy: %s", s)
	}
}

// Edge couples oscillators I < J.
type Edge struct {
	I, J   int
	Weight float64
}

// Neighbor is one entry of an oscillator's adjacency list.
type Neighbor struct {
	Index  int
	Weight float64
}

// Graph is the immutable Goldbach coupling graph for one target.
type Graph struct {
	target    int
	primes    []int
	edges     []Edge
	neighbors [][]Neighbor
	policy    IsolationPolicy
}

type options struct {
	policy IsolationPolicy
	weight float64
}

type Option func(*options)

// WithIsolation selects the oscillator set policy.
func WithIsolation(p IsolationPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithWeight scales every edge to w instead of 1.0.
func WithWeight(w float64) Option {
	return func(o *options) { o.weight = w }
}

// ValidateTarget reports ErrInvalidTarget for odd n or n < 4.
func ValidateTarget(n int) error {
	if n < 4 || n%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTarget, n)
	}
	return nil
}

// Build constructs the coupling graph for target n. ps must contain every
// prime <= n in ascending order; primes above n are ignored.
func Build(n int, ps []int, opts ...Option) (*Graph, error) {
	if err := ValidateTarget(n); err != nil {
		return nil, err
	}
	o := options{policy: IncludeIsolated, weight: 1.0}
	for _, opt := range opts {
		opt(&o)
	}
	if !(o.weight > 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidWeight, o.weight)
	}
	if err := validatePrimes(ps); err != nil {
		return nil, err
	}

	candidates := primes.UpTo(ps, n)
	set := primes.NewSet(candidates)

	var pairs [][2]int
	for _, p := range candidates {
		if p > n/2 {
			break
		}
		q := n - p
		if q != p && set.Contains(q) {
			pairs = append(pairs, [2]int{p, q})
		}
	}

	var vertices []int
	switch o.policy {
	case ExcludeIsolated:
		vertices = make([]int, 0, 2*len(pairs))
		for _, pq := range pairs {
			vertices = append(vertices, pq[0], pq[1])
		}
		sort.Ints(vertices)
	default:
		vertices = make([]int, len(candidates))
		copy(vertices, candidates)
	}

	g := &Graph{
		target:    n,
		primes:    vertices,
		edges:     make([]Edge, 0, len(pairs)),
		neighbors: make([][]Neighbor, len(vertices)),
		policy:    o.policy,
	}
	for _, pq := range pairs {
		i, _ := g.Index(pq[0])
		j, _ := g.Index(pq[1])
		g.addEdge(i, j, o.weight)
	}
	return g, nil
}

func validatePrimes(ps []int) error {
	for i, p := range ps {
		if p < 2 || (i > 0 && ps[i-1] >= p) {
			return fmt.Errorf("%w: bad entry %d at index %d", ErrInvalidPrimes, p, i)
		}
	}
	return nil
}

func (g *Graph) addEdge(i, j int, w float64) {
	if i > j {
		i, j = j, i
	}
	g.edges = append(g.edges, Edge{I: i, J: j, Weight: w})
	g.neighbors[i] = append(g.neighbors[i], Neighbor{Index: j, Weight: w})
	g.neighbors[j] = append(g.neighbors[j], Neighbor{Index: i, Weight: w})
}

func (g *Graph) Target() int                { return g.target }
func (g *Graph) Size() int                  { return len(g.primes) }
func (g *Graph) EdgeCount() int             { return len(g.edges) }
func (g *Graph) Policy() IsolationPolicy    { return g.policy }
func (g *Graph) Prime(i int) int            { return g.primes[i] }
func (g *Graph) Neighbors(i int) []Neighbor { return g.neighbors[i] }
func (g *Graph) Degree(i int) int           { return len(g.neighbors[i]) }

// Primes returns a copy of the oscillator primes in ascending order.
func (g *Graph) Primes() []int {
	out := make([]int, len(g.primes))
	copy(out, g.primes)
	return out
}

// Edges returns a copy of the edge arena.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesView returns the edge arena without copying. Callers must not
// modify it.
func (g *Graph) EdgesView() []Edge { return g.edges }

// Index returns the oscillator index of prime p.
func (g *Graph) Index(p int) (int, bool) {
	i := sort.SearchInts(g.primes, p)
	if i < len(g.primes) && g.primes[i] == p {
		return i, true
	}
	return -1, false
}

// Pairs lists the coupled primes as (p, q) with p < q.
func (g *Graph) Pairs() [][2]int {
	out := make([][2]int, len(g.edges))
	for k, e := range g.edges {
		out[k] = [2]int{g.primes[e.I], g.primes[e.J]}
	}
	return out
}

// Weight returns W[i][j].
func (g *Graph) Weight(i, j int) float64 {
	for _, nb := range g.neighbors[i] {
		if nb.Index == j {
			return nb.Weight
		}
	}
	return 0
}

// WeightedDegree returns Σ_j W[i][j].
func (g *Graph) WeightedDegree(i int) float64 {
	d := 0.0
	for _, nb := range g.neighbors[i] {
		d += nb.Weight
	}
	return d
}

// Degrees returns the partner count of every oscillator.
func (g *Graph) Degrees() []int {
	out := make([]int, len(g.primes))
	for i := range g.neighbors {
		out[i] = len(g.neighbors[i])
	}
	return out
}

// MaxDegree returns the largest partner count.
func (g *Graph) MaxDegree() int {
	m := 0
	for _, nbs := range g.neighbors {
		if len(nbs) > m {
			m = len(nbs)
		}
	}
	return m
}

// AverageDegree returns the mean partner count 2|E|/M. It is 0 for graphs
// without edges; callers must treat that as "uncoupled" and not divide by it.
func (g *Graph) AverageDegree() float64 {
	if len(g.primes) == 0 {
		return 0
	}
	return 2 * float64(len(g.edges)) / float64(len(g.primes))
}

// Dense materialises W as a symmetric gonum matrix. Returns nil for an
// empty oscillator set.
func (g *Graph) Dense() *mat.SymDense {
	m := len(g.primes)
	if m == 0 {
		return nil
	}
	w := mat.NewSymDense(m, nil)
	for _, e := range g.edges {
		w.SetSym(e.I, e.J, e.Weight)
	}
	return w
}
