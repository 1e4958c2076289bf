// Package timeline implements the cumulative-usage sweep used by the CP
// Solver Driver's resource packing (C4), plus NextAvailableAfter, an
// entity-level free-slot finder (spec §4.8): given a set of busy intervals with
// per-interval demand, find the earliest point after a given time where
// up to `capacity` units are simultaneously available for a given
// duration.
package timeline

import "sort"

// Interval is one busy span with a demand on some unit-capacity pool.
type Interval struct {
	Start, End int
	Demand     int
}

// Profile accumulates intervals for one resource pool or one entity
// (demand is always 1 for an entity) and answers availability queries
// over the WTU domain.
type Profile struct {
	intervals []Interval
}

// NewProfile builds a profile from an existing set of busy intervals.
func NewProfile(intervals []Interval) *Profile {
	p := &Profile{intervals: append([]Interval(nil), intervals...)}
	sort.Slice(p.intervals, func(i, j int) bool { return p.intervals[i].Start < p.intervals[j].Start })
	return p
}

// Add records an additional busy interval, keeping the profile sorted.
func (p *Profile) Add(start, end, demand int) {
	p.intervals = append(p.intervals, Interval{Start: start, End: end, Demand: demand})
	sort.Slice(p.intervals, func(i, j int) bool { return p.intervals[i].Start < p.intervals[j].Start })
}

// UsageAt returns total demand active at instant t (half-open: an
// interval [s,e) is active at t iff s <= t < e).
func (p *Profile) UsageAt(t int) int {
	total := 0
	for _, iv := range p.intervals {
		if iv.Start <= t && t < iv.End {
			total += iv.Demand
		}
	}
	return total
}

// FitsAt reports whether demand additional units fit in [start, start+duration)
// without breaching capacity at any point within the span.
func (p *Profile) FitsAt(start, duration, demand, capacity int) bool {
	end := start + duration
	if p.UsageAt(start)+demand > capacity {
		return false
	}
	for _, iv := range p.intervals {
		if iv.Start > start && iv.Start < end && p.UsageAt(iv.Start)+demand > capacity {
			return false
		}
	}
	return true
}

// NextFeasibleStart scans forward from `after` for the earliest start at
// which `demand` units of `duration` length fit without breaching
// `capacity`, checked at every existing interval boundary (a standard
// RCPSP serial-generation-scheme probe set — the optimum insertion point
// is always immediately after some interval ends, or at `after` itself).
func (p *Profile) NextFeasibleStart(after, duration, demand, capacity int) int {
	if demand > capacity {
		demand = capacity // caller should have clamped already; defensive floor
	}
	candidates := []int{after}
	for _, iv := range p.intervals {
		if iv.End >= after {
			candidates = append(candidates, iv.End)
		}
		if iv.Start >= after {
			candidates = append(candidates, iv.Start)
		}
	}
	sort.Ints(candidates)
	for _, c := range candidates {
		if p.FitsAt(c, duration, demand, capacity) {
			return c
		}
	}
	// No boundary candidate worked (shouldn't happen for well-formed
	// input); fall back to after the last interval.
	last := after
	for _, iv := range p.intervals {
		if iv.End > last {
			last = iv.End
		}
	}
	return last
}

// NextAvailableAfter returns the earliest instant >= t at which busyList
// contains no span overlapping [result, result+duration) — the
// entity-level free-slot finder of spec §4.8 (capacity fixed at 1). This
// is the SUPPLEMENTED find_next_available_time helper
// (original_source/src/main.py:2703), generalized to any duration.
func NextAvailableAfter(t, duration int, busyList []Interval) int {
	p := NewProfile(busyList)
	return p.NextFeasibleStart(t, duration, 1, 1)
}
