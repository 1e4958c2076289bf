// Package schedule defines the Schedule Record and its status enum
// (spec §3), including the status-preservation rule the Writer applies
// on commit (spec §4.5).
package schedule

import (
	"time"

	"github.com/mdriyaz-a/RSO/engine/schederr"
)

// Status is a task's lifecycle state (spec §3, §4.7).
type Status string

const (
	StatusScheduled  Status = "Scheduled"
	StatusInProgress Status = "InProgress"
	StatusPaused     Status = "Paused"
	StatusOnHold     Status = "OnHold"
	StatusBlocked    Status = "Blocked"
	StatusCompleted  Status = "Completed"
	StatusSkipped    Status = "Skipped"
)

// nonResettable are statuses the Writer must not overwrite with
// StatusScheduled when a record already exists (spec §4.5).
var nonResettable = map[Status]bool{
	StatusInProgress: true,
	StatusPaused:     true,
	StatusOnHold:     true,
	StatusCompleted:  true,
	StatusSkipped:    true,
}

// IsTerminal reports whether a task in this status can no longer receive
// lifecycle events that would change its schedule (spec §4.7's "any
// non-terminal" guard).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Record is one task's planned/actual span and status.
type Record struct {
	TaskID       int64      `json:"task_id"                db:"task_id"`
	PlannedStart time.Time  `json:"planned_start"           db:"planned_start"`
	PlannedEnd   time.Time  `json:"planned_end"             db:"planned_end"`
	ActualStart  *time.Time `json:"actual_start,omitempty"  db:"actual_start"`
	ActualEnd    *time.Time `json:"actual_end,omitempty"    db:"actual_end"`
	Status       Status     `json:"status"                  db:"status"`
}

// Validate enforces spec §3's Schedule Record invariant: planned_end must
// exceed planned_start, and if both actual bounds are set actual_end must
// not precede actual_start.
func (r *Record) Validate() error {
	if !r.PlannedEnd.After(r.PlannedStart) {
		return schederr.New(nil, schederr.CapacityViolation, map[string]any{
			"task_id": r.TaskID,
			"reason":  "planned_end must be after planned_start",
		})
	}
	if r.ActualStart != nil && r.ActualEnd != nil && r.ActualEnd.Before(*r.ActualStart) {
		return schederr.New(nil, schederr.CapacityViolation, map[string]any{
			"task_id": r.TaskID,
			"reason":  "actual_end must not precede actual_start",
		})
	}
	return nil
}

// ResolveCommitStatus implements the Writer's status-preservation rule
// (spec §4.5): keep an existing record's status if it is non-resettable,
// otherwise set Scheduled. existing is nil when no record yet exists for
// the task.
func ResolveCommitStatus(existing *Record) Status {
	if existing != nil && nonResettable[existing.Status] {
		return existing.Status
	}
	return StatusScheduled
}
