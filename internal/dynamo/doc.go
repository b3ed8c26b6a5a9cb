// Package dynamo provides core simulation primitives for phase-oscillator
// networks.
//
// The package defines the fundamental interfaces and types shared by the
// integrators, the simulator and the search layer:
//
//   - [State]: phase vector, one entry per oscillator
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper interface
//   - [Metric], [Observer]: hooks called on every accepted step
//   - [Config], [Result]: simulation parameters and output
//
// # Example
//
//	model := kuramoto.New(graph, kuramoto.WithCoupling(2.0))
//	s := sim.New(model, integrators.NewRK4())
//	result, err := s.Run(ctx, x0, dynamo.DefaultConfig())
//
// # Thread Safety
//
// Systems must be safe for concurrent Derive calls. Integrators keep scratch
// buffers and are NOT thread-safe; give each goroutine its own instance.
package dynamo
