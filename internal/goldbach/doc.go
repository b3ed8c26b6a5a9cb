// Package goldbach builds the interaction graph of a prime oscillator
// network for a target even sum N.
//
// Oscillators i and j are coupled when p_i + p_j = N and p_i != p_j. Every
// prime has at most one partner for a fixed N, so the graph is a matching:
// edge counts stay linear in the number of oscillators and the graph is
// stored as an edge arena with per-oscillator neighbour lists. A dense
// gonum matrix is materialised only on request.
package goldbach
