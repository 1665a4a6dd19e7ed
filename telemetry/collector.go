package telemetry

// Collector accumulates event counters between windows and folds them
// into WindowStats at window boundaries. The caller supplies the
// population snapshot; the collector owns only the running counters.
type Collector struct {
	windowSize  int64
	windowStart int64

	gestures   int
	visits     int
	searches   int
	iterations int
}

// NewCollector creates a collector with the given window size in ticks.
func NewCollector(windowSize int64) *Collector {
	return &Collector{windowSize: windowSize}
}

// CountGesture records one fired photo gesture.
func (c *Collector) CountGesture() { c.gestures++ }

// CountVisit records one agent entering an attraction.
func (c *Collector) CountVisit() { c.visits++ }

// AddSearches records pathfinder work: n searches costing iterations
// node expansions in total.
func (c *Collector) AddSearches(n, iterations int) {
	c.searches += n
	c.iterations += iterations
}

// Due reports whether the window ending at tick is complete.
func (c *Collector) Due(tick int64) bool {
	return c.windowSize > 0 && tick-c.windowStart >= c.windowSize
}

// EndWindow closes the current window: stateCounts is the population per
// behavior state, tierCounts the agents per render tier, speeds the
// walker speed samples. Event counters reset for the next window.
func (c *Collector) EndWindow(tick int64, stateCounts []int, tierCounts [3]int, flyers int, speeds []float64) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStart,
		WindowEndTick:   tick,
		Flyers:          flyers,
		TierNear:        tierCounts[0],
		TierMid:         tierCounts[1],
		TierCulled:      tierCounts[2],
		Gestures:        c.gestures,
		Visits:          c.visits,
		PathSearches:    c.searches,
		PathIterations:  c.iterations,
	}
	if len(stateCounts) >= 6 {
		stats.Wander = stateCounts[0]
		stats.Seek = stateCounts[1]
		stats.Snapping = stateCounts[2]
		stats.Flow = stateCounts[3]
		stats.Queuing = stateCounts[4]
		stats.Inside = stateCounts[5]
	}
	stats.SpeedMean, stats.SpeedStd, stats.SpeedP50, stats.SpeedP90 = ComputeSpeedStats(speeds)

	c.windowStart = tick
	c.gestures = 0
	c.visits = 0
	c.searches = 0
	c.iterations = 0
	return stats
}
