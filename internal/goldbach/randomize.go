package goldbach

import "math/rand"

// Randomize returns a graph over the same oscillators with the same number
// of edges and edge weight, placed uniformly at random among all vertex
// pairs. It is the null model for comparing Goldbach structure against
// arbitrary topology of equal density.
func Randomize(g *Graph, rng *rand.Rand) *Graph {
	m := len(g.primes)
	out := &Graph{
		target:    g.target,
		primes:    g.Primes(),
		edges:     make([]Edge, 0, len(g.edges)),
		neighbors: make([][]Neighbor, m),
		policy:    g.policy,
	}
	if m < 2 || len(g.edges) == 0 {
		return out
	}

	w := g.edges[0].Weight
	capacity := m * (m - 1) / 2
	want := len(g.edges)
	if want > capacity {
		want = capacity
	}

	seen := make(map[[2]int]struct{}, want)
	for len(out.edges) < want {
		i, j := rng.Intn(m), rng.Intn(m)
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		key := [2]int{i, j}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.addEdge(i, j, w)
	}
	return out
}
