package primes

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidBound is returned when a sieve bound is below 2.
var ErrInvalidBound = errors.New("primes: bound must be >= 2")

// Sieve returns every prime <= bound in ascending order.
// Runs in O(B log log B) time and O(B) bits of memory.
func Sieve(bound int) ([]int, error) {
	if bound < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBound, bound)
	}

	composite := newBitset(bound + 1)
	for i := 2; i*i <= bound; i++ {
		if composite.has(i) {
			continue
		}
		for j := i * i; j <= bound; j += i {
			composite.set(j)
		}
	}

	out := make([]int, 0, estimateCount(bound))
	for i := 2; i <= bound; i++ {
		if !composite.has(i) {
			out = append(out, i)
		}
	}
	return out, nil
}

// estimateCount over-approximates π(n) with n/(ln n - 1.1) so the result
// slice rarely regrows.
func estimateCount(n int) int {
	if n < 17 {
		return 8
	}
	return int(float64(n)/(math.Log(float64(n))-1.1)) + 1
}

// UpTo returns the prefix of an ascending prime list that is <= n. The
// prefix has no spare capacity, so appending to it never writes into sorted.
func UpTo(sorted []int, n int) []int {
	k := sort.SearchInts(sorted, n+1)
	return sorted[:k:k]
}

// Set is an O(1) membership index over a prime list.
type Set struct {
	bits bitset
	max  int
}

// NewSet indexes the given primes.
func NewSet(ps []int) *Set {
	max := 0
	if len(ps) > 0 {
		max = ps[len(ps)-1]
	}
	s := &Set{bits: newBitset(max + 1), max: max}
	for _, p := range ps {
		s.bits.set(p)
	}
	return s
}

// Contains reports whether n is in the set.
func (s *Set) Contains(n int) bool {
	if n < 0 || n > s.max {
		return false
	}
	return s.bits.has(n)
}

// Max returns the largest indexed prime, or 0 for an empty set.
func (s *Set) Max() int { return s.max }

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int)      { b[i>>6] |= 1 << (uint(i) & 63) }
func (b bitset) has(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }
