package primes

import (
	"fmt"
	"sync"
)

// Cache memoises the largest sieve computed so far. Safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	bound  int
	primes []int
}

func NewCache() *Cache {
	return &Cache{}
}

// UpTo returns all primes <= n, sieving only when n exceeds every bound
// requested before. Elements of the returned slice must not be modified;
// appending to it is safe.
func (c *Cache) UpTo(n int) ([]int, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBound, n)
	}

	c.mu.RLock()
	if n <= c.bound {
		out := UpTo(c.primes, n)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	ps, err := Sieve(n)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.bound {
		c.bound = n
		c.primes = ps
	}
	return UpTo(c.primes, n), nil
}

// Bound returns the largest bound sieved so far.
func (c *Cache) Bound() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bound
}
