// Package progress defines the Progress Entry (spec §3): one execution
// session of a task, and the accumulated-minutes/percentage bookkeeping
// the Event State Machine's clock_in/clock_out handlers maintain.
package progress

import "time"

// Entry is one session of a task's execution.
type Entry struct {
	ID                 int64      `json:"id"                   db:"id"`
	TaskID             int64      `json:"task_id"              db:"task_id"`
	StartTime          time.Time  `json:"start_time"           db:"start_time"`
	EndTime             *time.Time `json:"end_time,omitempty"   db:"end_time"`
	Status              string     `json:"status"               db:"status"`
	DurationMinutes      float64    `json:"duration_minutes"     db:"duration_minutes"`
	AccumulatedMinutes   float64    `json:"accumulated_minutes"  db:"accumulated_minutes"`
	CompletedPercentage  float64    `json:"completed_percentage" db:"completed_percentage"`
}

// Open starts a new progress entry at t, optionally carrying forward
// accumulated minutes from a prior Paused session (spec §4.7 clock_in
// "if resuming from Paused, preserve actual_start; accumulated_minutes
// carried forward").
func Open(taskID int64, t time.Time, carriedMinutes float64) *Entry {
	return &Entry{
		TaskID:             taskID,
		StartTime:          t,
		Status:             "InProgress",
		AccumulatedMinutes: carriedMinutes,
	}
}

// Close ends the entry at t, folds this session's minutes into
// AccumulatedMinutes, and recomputes CompletedPercentage against
// plannedDurationMinutes (spec §4.7 clock_out, percent<100 branch).
func (e *Entry) Close(t time.Time, plannedDurationMinutes float64) {
	e.EndTime = &t
	e.DurationMinutes = t.Sub(e.StartTime).Minutes()
	e.AccumulatedMinutes += e.DurationMinutes
	e.Status = "Closed"
	if plannedDurationMinutes > 0 {
		e.CompletedPercentage = clampPercent(e.AccumulatedMinutes / plannedDurationMinutes * 100)
	}
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
