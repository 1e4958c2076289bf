// Package pause defines the Pause Entry (spec §3) and the short-break vs.
// long-hold threshold classification spec §4.7 applies.
package pause

import "time"

// Entry records one pause (short break or on-hold) on a task.
type Entry struct {
	ID                  int64      `json:"id"                      db:"id"`
	TaskID              int64      `json:"task_id"                 db:"task_id"`
	StartTime           time.Time  `json:"start_time"               db:"start_time"`
	EndTime              *time.Time `json:"end_time,omitempty"       db:"end_time"`
	Reason               string     `json:"reason"                   db:"reason"`
	DurationMinutes       float64    `json:"duration_minutes"         db:"duration_minutes"`
	IsOnHold             bool       `json:"is_on_hold"               db:"is_on_hold"`
	ExpectedResumeTime    *time.Time `json:"expected_resume_time,omitempty" db:"expected_resume_time"`
}

// Thresholds per spec §4.7.
const (
	ShortBreakThresholdMinutes      = 30
	CumulativeBreakThresholdMinutes = 30
)

// Close ends the pause at t and records its duration.
func (e *Entry) Close(t time.Time) {
	e.EndTime = &t
	e.DurationMinutes = t.Sub(e.StartTime).Minutes()
}

// IsShortBreak reports whether a single pause of durationMinutes, given
// cumulativeMinutesToday already accrued on the same task/day, stays
// within both the single-break and cumulative thresholds (spec §4.7's
// "pause (short break, total <= thresholds)" branch).
func IsShortBreak(durationMinutes, cumulativeMinutesToday float64) bool {
	return durationMinutes <= ShortBreakThresholdMinutes &&
		cumulativeMinutesToday+durationMinutes <= CumulativeBreakThresholdMinutes
}
