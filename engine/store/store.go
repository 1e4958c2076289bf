// Package store defines the Domain Store Adapter's port (spec §4.2): the
// read/write interface over tasks, dependencies, requirements,
// capacities, schedules, segments, progress, pause, and change-log rows,
// plus the transactional boundary every other component writes through.
// Concrete implementations live in subpackages (engine/store/postgres).
package store

import (
	"context"

	"github.com/mdriyaz-a/RSO/engine/domain/assignment"
	"github.com/mdriyaz-a/RSO/engine/domain/changelog"
	"github.com/mdriyaz-a/RSO/engine/domain/dependency"
	"github.com/mdriyaz-a/RSO/engine/domain/pause"
	"github.com/mdriyaz-a/RSO/engine/domain/progress"
	"github.com/mdriyaz-a/RSO/engine/domain/resource"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/domain/segment"
	"github.com/mdriyaz-a/RSO/engine/domain/task"
)

// TaskDetail is the denormalized read-side view the Event State Machine
// checks before applying any transition — the SUPPLEMENTED
// "get_task_details" helper (rescheduler.py:2269).
type TaskDetail struct {
	Task     *task.Config
	Schedule *schedule.Record
	Progress []*progress.Entry
	Pauses   []*pause.Entry
}

// Reader is the read-only surface of the Store Adapter. Reads always
// return fully formed domain structures, never raw rows.
type Reader interface {
	ListSchedulableTasks(ctx context.Context, projectID *int64) ([]*task.Config, error)
	ListDependencies(ctx context.Context, projectID *int64) ([]*dependency.Config, error)
	ListRequirements(ctx context.Context, projectID *int64) ([]*resource.Requirement, error)
	SnapshotCapacities(ctx context.Context) (*resource.CapacityTable, error)
	GetSchedule(ctx context.Context, taskID int64) (*schedule.Record, error)
	ListSchedules(ctx context.Context, taskIDs []int64) (map[int64]*schedule.Record, error)
	ListSegments(ctx context.Context, taskID int64) ([]*segment.Config, error)
	ListAssignments(ctx context.Context, taskID int64) ([]*assignment.Config, error)
	ListActiveAssignmentsForEntity(ctx context.Context, kind assignment.EntityKind, entityID int64) ([]*assignment.Config, error)
	GetTaskDetail(ctx context.Context, taskID int64) (*TaskDetail, error)
}

// Writer is the mutating surface. Every method here must only be called
// within a Tx obtained from WithTx — the Store never auto-commits a
// mutation outside a caller-scoped transaction (spec §4.2, §5).
type Writer interface {
	UpsertDependency(ctx context.Context, dep *dependency.Config) error
	UpdateTaskDuration(ctx context.Context, taskID int64, estimatedHours float64) error
	WriteSchedule(ctx context.Context, rec *schedule.Record) error
	InsertSegment(ctx context.Context, seg *segment.Config) error
	UpdateSegment(ctx context.Context, seg *segment.Config) error
	InsertProgress(ctx context.Context, entry *progress.Entry) error
	UpdateProgress(ctx context.Context, entry *progress.Entry) error
	InsertPause(ctx context.Context, entry *pause.Entry) error
	UpdatePause(ctx context.Context, entry *pause.Entry) error
	AppendChangeLog(ctx context.Context, entry *changelog.Entry) error
	UpsertAssignment(ctx context.Context, a *assignment.Config) error
	ClearAssignments(ctx context.Context, taskID int64) error
}

// Store composes Reader and Writer with the transactional boundary: one
// event yields one transaction containing all of that event's mutations
// (spec §4.2, §5's crash-recovery ordering guarantee).
type Store interface {
	Reader
	Writer
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close(ctx context.Context) error
}
