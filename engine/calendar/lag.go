package calendar

import "math"

// LagCheckpoint is one sample of the piecewise lag table §4.3 builds: if a
// dependency anchor lands within half a sample interval of Sample, the
// successor's anchor must be at least MinAnchor.
type LagCheckpoint struct {
	Sample       int
	HalfInterval int
	MinAnchor    int
}

// IsExactDayMultiple reports whether lagHours is an exact multiple of 24,
// returning the whole-day count when true.
func IsExactDayMultiple(lagHours float64) (days int, ok bool) {
	if lagHours < 0 {
		return 0, false
	}
	const epsilon = 1e-9
	quotient := lagHours / 24.0
	rounded := math.Round(quotient)
	if math.Abs(quotient-rounded) < epsilon {
		return int(rounded), true
	}
	return 0, false
}

// ExactDayLagUnits returns the special-cased bound for a lag that is an
// exact multiple of 24 hours: days * UnitsPerDay.
func (c *Calendar) ExactDayLagUnits(lagHours float64) int {
	days, _ := IsExactDayMultiple(lagHours)
	return days * c.UnitsPerDay()
}

// BuildLagTable samples sampleCount points across [0, horizon) and, for each,
// precomputes the minimum successor anchor AddLag would require if the
// predecessor's anchor landed at that sample — the piecewise table §4.3
// reifies into conditional constraints.
func (c *Calendar) BuildLagTable(horizon, sampleCount int, lagHours float64) []LagCheckpoint {
	if sampleCount <= 0 {
		sampleCount = 1
	}
	interval := horizon / sampleCount
	if interval <= 0 {
		interval = 1
	}
	half := interval / 2
	table := make([]LagCheckpoint, 0, sampleCount+1)
	for sample := 0; sample < horizon; sample += interval {
		table = append(table, LagCheckpoint{
			Sample:       sample,
			HalfInterval: half,
			MinAnchor:    c.AddLag(sample, lagHours),
		})
	}
	return table
}

// FallbackLagUnits is the safety linear bound §4.3 adds alongside the
// piecewise table: ceil(lagHours * avgUnitsPerCalendarHour).
func (c *Calendar) FallbackLagUnits(lagHours float64) int {
	return int(math.Ceil(lagHours * c.AvgUnitsPerCalendarHour()))
}
