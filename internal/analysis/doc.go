// Package analysis computes simulation-free properties of a Goldbach
// coupling graph and post-processes recorded phase trajectories.
//
//   - [Laplacian]: normalised Laplacian L̃ = (D − W)/d̄ as a dense matrix
//   - [AlgebraicConnectivity]: second-smallest eigenvalue of L̃
//   - [EstimateCritical]: κ_c ≈ S(ω)/λ₂
//   - [ComponentEstimates]: the same ratio per connected component
//   - [LockedEdges]: which Goldbach pairs phase-locked during a run
//
// # Complexity
//
// Eigendecompositions are dense and cost O(M³) time and O(M²) memory for M
// oscillators. Graphs above [MaxDenseOscillators] are rejected with
// [ErrTooLarge]. Connectivity is decided first on the edge list with a
// union-find, so disconnected graphs never reach the decomposition:
//
//	est, err := analysis.EstimateCritical(g, omega, analysis.SpreadMax)
//	var deg *analysis.DegenerateError
//	if errors.As(err, &deg) {
//	    // deg.Components > 1: no global threshold exists
//	}
package analysis
