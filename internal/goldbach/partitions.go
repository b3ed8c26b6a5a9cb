package goldbach

import (
	"math"

	"github.com/san-kum/primesync/internal/primes"
)

// Partitions lists every unordered prime partition p + q = n with p <= q,
// including the self-pair p = q = n/2 which carries no edge in the graph.
func Partitions(n int, ps []int) ([][2]int, error) {
	if err := ValidateTarget(n); err != nil {
		return nil, err
	}
	if err := validatePrimes(ps); err != nil {
		return nil, err
	}
	candidates := primes.UpTo(ps, n)
	set := primes.NewSet(candidates)

	var out [][2]int
	for _, p := range candidates {
		if p > n/2 {
			break
		}
		if set.Contains(n - p) {
			out = append(out, [2]int{p, n - p})
		}
	}
	return out, nil
}

// Gamma returns the Goldbach weight sum Γ(n) = Σ 1/(ln p · ln q) over all
// partitions of n. Γ(4) uses the self-pair 2+2.
func Gamma(n int, ps []int) (float64, error) {
	parts, err := Partitions(n, ps)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, pq := range parts {
		total += 1.0 / (math.Log(float64(pq[0])) * math.Log(float64(pq[1])))
	}
	return total, nil
}
