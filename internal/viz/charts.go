package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
)

const (
	chartWidth  = 60
	chartHeight = 12
)

// PlotCurve charts r against κ. Samples must be sorted by κ; asciigraph
// spaces them evenly, so the caption carries the κ range.
func PlotCurve(kappas, rs []float64) string {
	if len(rs) == 0 {
		return ""
	}
	caption := fmt.Sprintf("r vs κ  (κ from %.3g to %.3g)", kappas[0], kappas[len(kappas)-1])
	return asciigraph.Plot(rs,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)
}

// PlotTrajectory charts r(t).
func PlotTrajectory(times, rs []float64) string {
	if len(rs) == 0 {
		return ""
	}
	caption := fmt.Sprintf("r(t)  (t from %.3g to %.3g)", times[0], times[len(times)-1])
	return asciigraph.Plot(rs,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)
}

// PlotScan charts κ_c from the search and the spectral estimate against N.
// Missing values (NaN) are carried forward from the previous finite value.
func PlotScan(ns []int, search, spectral []float64) string {
	if len(ns) == 0 {
		return ""
	}
	series := [][]float64{fillGaps(search)}
	legend := []string{"search"}
	if hasFinite(spectral) {
		series = append(series, fillGaps(spectral))
		legend = append(legend, "spectral")
	}
	if !hasFinite(search) && len(series) == 1 {
		return ""
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
		asciigraph.SeriesLegends(legend...),
		asciigraph.Caption(fmt.Sprintf("κ_c vs N  (N from %d to %d)", ns[0], ns[len(ns)-1])),
	)
}

func hasFinite(v []float64) bool {
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			return true
		}
	}
	return false
}

func fillGaps(v []float64) []float64 {
	out := make([]float64, len(v))
	last := 0.0
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			last = x
			break
		}
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			out[i] = last
			continue
		}
		out[i] = x
		last = x
	}
	return out
}
