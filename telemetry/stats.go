package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated crowd statistics for a time window.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`

	// Population by behavior state at window end
	Wander   int `csv:"wander"`
	Seek     int `csv:"seek"`
	Snapping int `csv:"snapping"`
	Flow     int `csv:"flow"`
	Queuing  int `csv:"queuing"`
	Inside   int `csv:"inside"`
	Flyers   int `csv:"flyers"`

	// Render tier occupancy at window end
	TierNear   int `csv:"tier_near"`
	TierMid    int `csv:"tier_mid"`
	TierCulled int `csv:"tier_culled"`

	// Events during the window
	Gestures       int `csv:"gestures"`
	Visits         int `csv:"visits"`
	PathSearches   int `csv:"path_searches"`
	PathIterations int `csv:"path_iterations"`

	// Walker speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
}

// Active returns the number of simulated ground agents.
func (s WindowStats) Active() int {
	return s.Wander + s.Seek + s.Snapping + s.Flow + s.Queuing
}

// LogStats logs the window using slog.
func (s WindowStats) LogStats() {
	slog.Info("window",
		"tick", s.WindowEndTick,
		"active", s.Active(),
		"inside", s.Inside,
		"flyers", s.Flyers,
		"gestures", s.Gestures,
		"visits", s.Visits,
		"speed_mean", s.SpeedMean,
		"speed_p90", s.SpeedP90,
	)
}

// Percentile calculates the p-th percentile of a sorted slice with
// linear interpolation. p should be in [0, 1]. Returns 0 when empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats calculates mean, std and percentiles from speed
// samples.
func ComputeSpeedStats(values []float64) (mean, std, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return mean, std, Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}
