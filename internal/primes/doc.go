// Package primes generates the prime sets that index the oscillators.
//
// [Sieve] is a pure Eratosthenes sieve; [Cache] keeps the largest sieve seen
// so far and serves any smaller bound by slicing it, which lets an N-sweep
// share one sieve across all targets.
package primes
