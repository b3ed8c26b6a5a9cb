package sim

import (
	"math/rand"

	"github.com/san-kum/primesync/internal/dynamo"
)

// RandomPhases draws m phases independently and uniformly from [0, 2π).
func RandomPhases(rng *rand.Rand, m int) dynamo.State {
	x := make(dynamo.State, m)
	for i := range x {
		x[i] = rng.Float64() * dynamo.TwoPi
	}
	return x
}

// SyncedPhases returns m copies of phase.
func SyncedPhases(m int, phase float64) dynamo.State {
	x := make(dynamo.State, m)
	for i := range x {
		x[i] = dynamo.WrapPhase(phase)
	}
	return x
}
