package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/integrators"
	"github.com/san-kum/primesync/internal/kuramoto"
	"github.com/san-kum/primesync/internal/metrics"
)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	frequencies map[string]kuramoto.FrequencyMap
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		frequencies: make(map[string]kuramoto.FrequencyMap),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.frequencies["log"] = kuramoto.Logarithmic{}
	r.frequencies["identity"] = kuramoto.Identity{}

	return r
}

// RegisterFrequencyMap adds or replaces a named frequency map.
func (r *Registry) RegisterFrequencyMap(name string, fm kuramoto.FrequencyMap) {
	r.frequencies[name] = fm
}

// IntegratorFactory returns a constructor, since integrators keep scratch
// buffers and cannot be shared between concurrent runs.
func (r *Registry) IntegratorFactory(name string) (func() dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn, nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, err := r.IntegratorFactory(name)
	if err != nil {
		return nil, err
	}
	return fn(), nil
}

func (r *Registry) GetFrequencyMap(name string) (kuramoto.FrequencyMap, error) {
	if fm, ok := r.frequencies[name]; ok {
		return fm, nil
	}
	return kuramoto.ParseFrequencyMap(name)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) ListFrequencyMaps() []string {
	return sortedKeys(r.frequencies)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns fresh metrics for one run. tailFrom is the start of
// the coherence averaging window.
func (r *Registry) DefaultMetrics(tailFrom float64) []dynamo.Metric {
	return []dynamo.Metric{metrics.NewCoherence(tailFrom)}
}
