// Package segment defines the Task Segment entity (spec §3): the unit the
// Local Repair Engine's split operation produces for preemption and
// carry-over (spec §4.8).
package segment

import "time"

// Config is one ordered segment of a task's realized execution.
type Config struct {
	ID           int64     `json:"id"             db:"id"`
	TaskID       int64     `json:"task_id"        db:"task_id"`
	SegmentIndex int       `json:"segment_index"  db:"segment_index"` // >= 1
	PlannedStart time.Time `json:"planned_start"  db:"planned_start"`
	PlannedEnd   time.Time `json:"planned_end"    db:"planned_end"`
	ActualStart  *time.Time `json:"actual_start,omitempty" db:"actual_start"`
	ActualEnd    *time.Time `json:"actual_end,omitempty"   db:"actual_end"`
	CompletionPct float64   `json:"completion_pct" db:"completion_pct"`
	IsCarryOver  bool      `json:"is_carry_over" db:"is_carry_over"`
}

// Duration returns the segment's planned duration.
func (c *Config) Duration() time.Duration { return c.PlannedEnd.Sub(c.PlannedStart) }

// SumDuration returns the total planned duration across a task's
// segments, used to check spec §3's invariant 5 (segment durations sum to
// the task's realized duration).
func SumDuration(segments []*Config) time.Duration {
	var total time.Duration
	for _, s := range segments {
		total += s.Duration()
	}
	return total
}

// NonOverlapping reports whether segments (already sorted by
// SegmentIndex) cover disjoint, non-overlapping calendar windows, per
// spec §3's "segments of one task are non-overlapping" invariant.
func NonOverlapping(segments []*Config) bool {
	for i := 1; i < len(segments); i++ {
		if segments[i].PlannedStart.Before(segments[i-1].PlannedEnd) {
			return false
		}
	}
	return true
}
