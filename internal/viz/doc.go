// Package viz renders simulation output in the terminal.
//
//   - [Canvas]: braille pixel canvas, used for the phase circle
//   - [DrawPhases]: oscillators on the unit circle with the mean phasor
//   - [PlotCurve], [PlotTrajectory], [PlotScan]: asciigraph charts
//   - lipgloss styles and small widgets ([Bar], [Sparkline], [KeyValue])
package viz
