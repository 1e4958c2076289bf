// Package changelog defines the Change Log Entry (spec §3): an audit row
// the Local Repair Engine and Schedule Writer append whenever a task's
// planned span moves.
package changelog

import "time"

// Kind classifies why a planned span changed.
type Kind string

const (
	KindDependencyCascade Kind = "dependency_cascade"
	KindSegmentSplit      Kind = "segment_split"
	KindPreemption        Kind = "preemption"
	KindManualReschedule  Kind = "manual_reschedule"
	KindFullReoptimize    Kind = "full_reoptimize"
)

// Entry records one planned-span change for one task.
type Entry struct {
	ID              int64     `json:"id"                db:"id"`
	TaskID          int64     `json:"task_id"           db:"task_id"`
	PriorStart      time.Time `json:"prior_start"        db:"prior_start"`
	PriorEnd        time.Time `json:"prior_end"          db:"prior_end"`
	NewStart        time.Time `json:"new_start"          db:"new_start"`
	NewEnd          time.Time `json:"new_end"            db:"new_end"`
	ChangeKind      Kind      `json:"change_kind"        db:"change_kind"`
	Reason          string    `json:"reason"             db:"reason"`
	Timestamp       time.Time `json:"timestamp"          db:"timestamp"`
}

// IsNoop reports whether this entry records no actual movement — the
// trivial entry spec §8's manual_reschedule idempotence property allows.
func (e *Entry) IsNoop() bool {
	return e.PriorStart.Equal(e.NewStart) && e.PriorEnd.Equal(e.NewEnd)
}

// New builds an entry for a span change at the given time.
func New(taskID int64, priorStart, priorEnd, newStart, newEnd time.Time, kind Kind, reason string, at time.Time) *Entry {
	return &Entry{
		TaskID:     taskID,
		PriorStart: priorStart,
		PriorEnd:   priorEnd,
		NewStart:   newStart,
		NewEnd:     newEnd,
		ChangeKind: kind,
		Reason:     reason,
		Timestamp:  at,
	}
}
