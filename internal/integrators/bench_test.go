package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/primesync/internal/dynamo"
)

// ringNetwork is a ten-oscillator Kuramoto ring with log-prime frequencies.
type ringNetwork struct {
	omega []float64
	k     float64
}

func newRingNetwork() *ringNetwork {
	primes := []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}
	omega := make([]float64, len(primes))
	for i, p := range primes {
		omega[i] = math.Log(float64(p))
	}
	return &ringNetwork{omega: omega, k: 1.5}
}

func (r *ringNetwork) StateDim() int { return len(r.omega) }

func (r *ringNetwork) Derive(x dynamo.State, t float64) dynamo.State {
	n := len(x)
	dx := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		left := x[(i+n-1)%n]
		right := x[(i+1)%n]
		dx[i] = r.omega[i] + 0.5*r.k*(math.Sin(left-x[i])+math.Sin(right-x[i]))
	}
	return dx
}

func benchIntegrator(b *testing.B, integ dynamo.Integrator, dyn dynamo.System, dt float64) {
	x := make(dynamo.State, dyn.StateDim())
	for i := range x {
		x[i] = float64(i) * 0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(dyn, x, 0, dt)
	}
}

func BenchmarkEuler(b *testing.B) {
	benchIntegrator(b, NewEuler(), &harmonicOscillator{}, 0.01)
}

func BenchmarkRK4(b *testing.B) {
	benchIntegrator(b, NewRK4(), &harmonicOscillator{}, 0.01)
}

func BenchmarkRK45(b *testing.B) {
	benchIntegrator(b, NewRK45(), &harmonicOscillator{}, 0.01)
}

func BenchmarkRK4_Ring10(b *testing.B) {
	benchIntegrator(b, NewRK4(), newRingNetwork(), 0.01)
}

func BenchmarkRK45_Ring10(b *testing.B) {
	benchIntegrator(b, NewRK45(), newRingNetwork(), 0.01)
}
