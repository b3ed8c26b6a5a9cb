package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/goldbach"
)

// EdgeLock summarises the phase difference ψ = θ_q − θ_p of one Goldbach
// pair over a recorded trajectory.
type EdgeLock struct {
	P, Q int
	// Drift is the mean rate of ψ over the analysed window. A locked pair
	// has zero drift.
	Drift float64
	// Final is ψ at the last sample, folded into (−π, π].
	Final  float64
	Locked bool
}

// LockedEdges measures the drift of every edge over the tail of a recorded
// trajectory starting at time from. Phases may be wrapped; successive
// differences are unwrapped assuming each sampling interval advances ψ by
// less than π. An edge whose drift magnitude is below tol is locked.
func LockedEdges(g *goldbach.Graph, res *dynamo.Result, from, tol float64) ([]EdgeLock, error) {
	if len(res.States) < 2 || len(res.States) != len(res.Times) {
		return nil, fmt.Errorf("need a recorded trajectory, got %d states", len(res.States))
	}
	start := 0
	for start < len(res.Times)-2 && res.Times[start] < from {
		start++
	}
	span := res.Times[len(res.Times)-1] - res.Times[start]
	if span <= 0 {
		return nil, fmt.Errorf("empty analysis window from t=%g", from)
	}

	edges := g.EdgesView()
	out := make([]EdgeLock, len(edges))
	for k, e := range edges {
		total := 0.0
		prev := res.States[start][e.J] - res.States[start][e.I]
		for s := start + 1; s < len(res.States); s++ {
			cur := res.States[s][e.J] - res.States[s][e.I]
			total += foldPi(cur - prev)
			prev = cur
		}
		drift := total / span
		out[k] = EdgeLock{
			P:      g.Prime(e.I),
			Q:      g.Prime(e.J),
			Drift:  drift,
			Final:  foldPi(prev),
			Locked: math.Abs(drift) < tol,
		}
	}
	return out, nil
}

// foldPi maps an angle into (−π, π].
func foldPi(v float64) float64 {
	v = dynamo.WrapPhase(v)
	if v > math.Pi {
		v -= dynamo.TwoPi
	}
	return v
}
