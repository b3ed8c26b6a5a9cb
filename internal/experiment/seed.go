package experiment

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

const (
	StreamSearch = "search"
	StreamRun    = "run"
	StreamSweep  = "sweep"
	StreamNull   = "null"
)

// TargetStream names the random stream of target n in a target sweep.
func TargetStream(n int) string {
	return fmt.Sprintf("target_%d", n)
}

// SeedFor derives an independent seed for a named stream:
// master XOR fnv1a64(name).
func SeedFor(master int64, name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return master ^ int64(h.Sum64())
}

// RandFor returns a generator seeded with SeedFor(master, name).
func RandFor(master int64, name string) *rand.Rand {
	return rand.New(rand.NewSource(SeedFor(master, name)))
}
