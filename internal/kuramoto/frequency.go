package kuramoto

import (
	"fmt"
	"math"
)

// FrequencyMap assigns the natural frequency of the oscillator for prime p.
// Implementations must be monotonically increasing in p.
type FrequencyMap interface {
	Frequency(p int) float64
	Name() string
}

// Logarithmic maps p to ln p. It is the default convention.
type Logarithmic struct{}

func (Logarithmic) Frequency(p int) float64 { return math.Log(float64(p)) }
func (Logarithmic) Name() string            { return "log" }

// Identity maps p to p itself.
type Identity struct{}

func (Identity) Frequency(p int) float64 { return float64(p) }
func (Identity) Name() string            { return "identity" }

// FrequencyFunc adapts a caller-supplied mapping.
type FrequencyFunc func(p int) float64

func (f FrequencyFunc) Frequency(p int) float64 { return f(p) }
func (f FrequencyFunc) Name() string            { return "custom" }

// ParseFrequencyMap resolves "log" (alias "ln") or "identity" (alias "prime").
func ParseFrequencyMap(name string) (FrequencyMap, error) {
	switch name {
	case "", "log", "ln":
		return Logarithmic{}, nil
	case "identity", "prime":
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown frequency map: %s", name)
	}
}

// Frequencies evaluates fm over ps.
func Frequencies(fm FrequencyMap, ps []int) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = fm.Frequency(p)
	}
	return out
}
