package metrics

import (
	"math"

	"github.com/san-kum/primesync/internal/dynamo"
)

// OrderParameter returns the Kuramoto order parameter of a phase vector:
// r = |mean_i exp(iθ_i)| in [0, 1] and the mean phase φ in (-π, π].
// An empty vector yields r = 0, φ = 0.
func OrderParameter(theta dynamo.State) (r, phi float64) {
	if len(theta) == 0 {
		return 0, 0
	}
	var sumCos, sumSin float64
	for _, th := range theta {
		s, c := math.Sincos(th)
		sumCos += c
		sumSin += s
	}
	n := float64(len(theta))
	re, im := sumCos/n, sumSin/n
	r = math.Hypot(re, im)
	if r > 1 {
		r = 1
	}
	if r == 0 {
		return 0, 0
	}
	return r, math.Atan2(im, re)
}

// Coherence averages r over every observed step with t >= From. It is the
// time-averaged order parameter used to suppress single-snapshot noise.
type Coherence struct {
	From    float64
	sum     float64
	samples int
	last    float64
}

func NewCoherence(from float64) *Coherence {
	return &Coherence{From: from}
}

func (c *Coherence) Name() string { return "coherence" }

func (c *Coherence) Observe(x dynamo.State, t float64) {
	r, _ := OrderParameter(x)
	c.last = r
	if t < c.From {
		return
	}
	c.sum += r
	c.samples++
}

// Value returns the tail average, or the latest r when no step reached From.
func (c *Coherence) Value() float64 {
	if c.samples == 0 {
		return c.last
	}
	return c.sum / float64(c.samples)
}

func (c *Coherence) Reset() {
	c.sum = 0
	c.samples = 0
	c.last = 0
}
