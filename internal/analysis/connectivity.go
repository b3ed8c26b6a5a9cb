package analysis

import (
	"github.com/san-kum/primesync/internal/goldbach"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// undirected copies the edge arena into a gonum graph whose node IDs are the
// oscillator indices.
func undirected(g *goldbach.Graph) *simple.UndirectedGraph {
	u := simple.NewUndirectedGraph()
	for i := range g.Size() {
		u.AddNode(simple.Node(i))
	}
	for _, e := range g.EdgesView() {
		u.SetEdge(simple.Edge{F: simple.Node(e.I), T: simple.Node(e.J)})
	}
	return u
}

// Components labels every oscillator with the index of its connected
// component. Labels are dense, starting at 0 in order of first appearance.
func Components(g *goldbach.Graph) (count int, labels []int) {
	n := g.Size()
	comp := make([]int, n)
	for c, nodes := range topo.ConnectedComponents(undirected(g)) {
		for _, node := range nodes {
			comp[node.ID()] = c
		}
	}

	labels = make([]int, n)
	ids := make(map[int]int)
	for i := range n {
		id, ok := ids[comp[i]]
		if !ok {
			id = len(ids)
			ids[comp[i]] = id
		}
		labels[i] = id
	}
	return len(ids), labels
}

// IsolatedCount is the number of oscillators without a Goldbach partner.
func IsolatedCount(g *goldbach.Graph) int {
	n := 0
	for i := 0; i < g.Size(); i++ {
		if g.Degree(i) == 0 {
			n++
		}
	}
	return n
}
