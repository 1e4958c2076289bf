package repair

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdriyaz-a/RSO/engine/calendar"
	"github.com/mdriyaz-a/RSO/engine/domain/assignment"
	"github.com/mdriyaz-a/RSO/engine/domain/changelog"
	"github.com/mdriyaz-a/RSO/engine/domain/dependency"
	"github.com/mdriyaz-a/RSO/engine/domain/pause"
	"github.com/mdriyaz-a/RSO/engine/domain/progress"
	"github.com/mdriyaz-a/RSO/engine/domain/resource"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/domain/segment"
	"github.com/mdriyaz-a/RSO/engine/domain/task"
	"github.com/mdriyaz-a/RSO/engine/store"
)

// fakeStore is a minimal in-memory store.Store covering what the repair
// routines exercise, in the same hand-rolled test-double style used
// elsewhere in this tree.
type fakeStore struct {
	tasks       map[int64]*task.Config
	schedules   map[int64]*schedule.Record
	deps        []*dependency.Config
	segments    map[int64][]*segment.Config
	changelogs  []*changelog.Entry
	assignments map[assignment.EntityKind]map[int64][]*assignment.Config
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:       map[int64]*task.Config{},
		schedules:   map[int64]*schedule.Record{},
		segments:    map[int64][]*segment.Config{},
		assignments: map[assignment.EntityKind]map[int64][]*assignment.Config{},
	}
}

func (f *fakeStore) ListSchedulableTasks(context.Context, *int64) ([]*task.Config, error) {
	out := make([]*task.Config, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}
func (f *fakeStore) ListDependencies(context.Context, *int64) ([]*dependency.Config, error) {
	return f.deps, nil
}
func (f *fakeStore) ListRequirements(context.Context, *int64) ([]*resource.Requirement, error) {
	return nil, nil
}
func (f *fakeStore) SnapshotCapacities(context.Context) (*resource.CapacityTable, error) {
	return resource.NewCapacityTable(nil), nil
}
func (f *fakeStore) GetSchedule(_ context.Context, taskID int64) (*schedule.Record, error) {
	return f.schedules[taskID], nil
}
func (f *fakeStore) ListSchedules(context.Context, []int64) (map[int64]*schedule.Record, error) {
	return f.schedules, nil
}
func (f *fakeStore) ListSegments(_ context.Context, taskID int64) ([]*segment.Config, error) {
	return f.segments[taskID], nil
}
func (f *fakeStore) ListAssignments(context.Context, int64) ([]*assignment.Config, error) { return nil, nil }
func (f *fakeStore) ListActiveAssignmentsForEntity(_ context.Context, kind assignment.EntityKind, entityID int64) ([]*assignment.Config, error) {
	return f.assignments[kind][entityID], nil
}
func (f *fakeStore) GetTaskDetail(_ context.Context, taskID int64) (*store.TaskDetail, error) {
	t := f.tasks[taskID]
	if t == nil {
		return nil, nil
	}
	return &store.TaskDetail{Task: t, Schedule: f.schedules[taskID]}, nil
}

func (f *fakeStore) UpsertDependency(context.Context, *dependency.Config) error { return nil }
func (f *fakeStore) UpdateTaskDuration(context.Context, int64, float64) error   { return nil }
func (f *fakeStore) WriteSchedule(_ context.Context, rec *schedule.Record) error {
	f.schedules[rec.TaskID] = rec
	return nil
}
func (f *fakeStore) InsertSegment(_ context.Context, seg *segment.Config) error {
	f.segments[seg.TaskID] = append(f.segments[seg.TaskID], seg)
	return nil
}
func (f *fakeStore) UpdateSegment(context.Context, *segment.Config) error  { return nil }
func (f *fakeStore) InsertProgress(context.Context, *progress.Entry) error { return nil }
func (f *fakeStore) UpdateProgress(context.Context, *progress.Entry) error { return nil }
func (f *fakeStore) InsertPause(context.Context, *pause.Entry) error       { return nil }
func (f *fakeStore) UpdatePause(context.Context, *pause.Entry) error       { return nil }
func (f *fakeStore) AppendChangeLog(_ context.Context, entry *changelog.Entry) error {
	f.changelogs = append(f.changelogs, entry)
	return nil
}
func (f *fakeStore) UpsertAssignment(_ context.Context, a *assignment.Config) error {
	if f.assignments[a.EntityKind] == nil {
		f.assignments[a.EntityKind] = map[int64][]*assignment.Config{}
	}
	f.assignments[a.EntityKind][a.EntityID] = append(f.assignments[a.EntityKind][a.EntityID], a)
	return nil
}
func (f *fakeStore) ClearAssignments(context.Context, int64) error { return nil }
func (f *fakeStore) Close(context.Context) error                  { return nil }
func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, f)
}

func testEngine() (*Engine, *calendar.Calendar) {
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	cal := calendar.New(start, 9, 17, 100)
	return &Engine{Calendar: cal}, cal
}

func ts(day, hour int) time.Time {
	return time.Date(2026, time.March, 2+day, hour, 0, 0, 0, time.UTC)
}

func TestEngine_Cascade(t *testing.T) {
	t.Run("Should shift a dependent's window from its predecessor's new end", func(t *testing.T) {
		e, _ := testEngine()
		fs := newFakeStore()
		fs.schedules[1] = &schedule.Record{TaskID: 1, PlannedStart: ts(0, 9), PlannedEnd: ts(1, 11)}
		fs.schedules[2] = &schedule.Record{TaskID: 2, PlannedStart: ts(1, 9), PlannedEnd: ts(1, 13)}
		fs.deps = []*dependency.Config{
			{SuccessorID: 2, PredecessorID: 1, Type: dependency.FinishToStart, LagHours: 0},
		}

		err := e.Cascade(context.Background(), fs, 1)
		require.NoError(t, err)

		dep := fs.schedules[2]
		assert.True(t, dep.PlannedStart.Equal(ts(1, 11)))
		assert.Equal(t, 4*time.Hour, dep.PlannedEnd.Sub(dep.PlannedStart))
		require.Len(t, fs.changelogs, 1)
		assert.Equal(t, changelog.KindDependencyCascade, fs.changelogs[0].ChangeKind)
	})

	t.Run("Should not revisit a task already seen in this cascade", func(t *testing.T) {
		e, _ := testEngine()
		fs := newFakeStore()
		fs.schedules[1] = &schedule.Record{TaskID: 1, PlannedStart: ts(0, 9), PlannedEnd: ts(0, 17)}
		fs.schedules[2] = &schedule.Record{TaskID: 2, PlannedStart: ts(1, 9), PlannedEnd: ts(1, 13)}
		fs.deps = []*dependency.Config{
			{SuccessorID: 2, PredecessorID: 1, Type: dependency.FinishToStart},
			{SuccessorID: 1, PredecessorID: 2, Type: dependency.FinishToStart}, // would cycle if not deduped
		}
		err := e.Cascade(context.Background(), fs, 1)
		require.NoError(t, err)
	})
}

func TestEngine_Split(t *testing.T) {
	t.Run("Should split at end-of-day and carry the remainder to the next working day", func(t *testing.T) {
		e, _ := testEngine()
		fs := newFakeStore()
		fs.schedules[1] = &schedule.Record{TaskID: 1, PlannedStart: ts(0, 9), PlannedEnd: ts(0, 17)}

		err := e.Split(context.Background(), fs, 1, ts(0, 17), ts(1, 9), 4)
		require.NoError(t, err)

		segs := fs.segments[1]
		require.Len(t, segs, 2)
		assert.Equal(t, 1, segs[0].SegmentIndex)
		assert.True(t, segs[0].PlannedEnd.Equal(ts(0, 17)))
		assert.InDelta(t, 100.0, segs[0].CompletionPct, 0.01)

		assert.True(t, segs[1].IsCarryOver)
		assert.True(t, segs[1].PlannedStart.Equal(ts(1, 9)))
		assert.True(t, segs[1].PlannedEnd.Equal(ts(1, 13)))

		assert.True(t, fs.schedules[1].PlannedEnd.Equal(ts(1, 13)))
	})
}

func TestEngine_Preempt(t *testing.T) {
	t.Run("Should shift the lower-priority non-preemptable task behind the winner", func(t *testing.T) {
		e, _ := testEngine()
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1, Priority: task.PriorityHigh, Preemptable: false}
		fs.tasks[2] = &task.Config{ID: 2, Priority: task.PriorityLow, Preemptable: false}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusScheduled, PlannedStart: ts(0, 9), PlannedEnd: ts(0, 13)}
		fs.schedules[2] = &schedule.Record{TaskID: 2, Status: schedule.StatusScheduled, PlannedStart: ts(0, 9), PlannedEnd: ts(0, 13)}
		fs.assignments[assignment.EntityEmployee] = map[int64][]*assignment.Config{
			99: {
				{TaskID: 1, EntityKind: assignment.EntityEmployee, EntityID: 99, PlannedStart: ts(0, 9), PlannedEnd: ts(0, 13)},
				{TaskID: 2, EntityKind: assignment.EntityEmployee, EntityID: 99, PlannedStart: ts(0, 9), PlannedEnd: ts(0, 13)},
			},
		}

		err := e.Preempt(context.Background(), fs, assignment.EntityEmployee, 99, ts(0, 10))
		require.NoError(t, err)

		assert.True(t, fs.schedules[1].PlannedStart.Equal(ts(0, 9)), "winner keeps its schedule")
		assert.True(t, fs.schedules[2].PlannedStart.Equal(ts(0, 13)), "loser starts right after the winner's end")
		assert.Equal(t, 4*time.Hour, fs.schedules[2].PlannedEnd.Sub(fs.schedules[2].PlannedStart))
	})

	t.Run("Should split the preemptable in-progress loser at the resume point after the winner's end", func(t *testing.T) {
		// spec §8 scenario 5: X(prio=3) Mon 10:00-12:00, Y(prio=1,
		// preemptable, InProgress since 10:00) Mon 10:00-13:00; resource
		// conflict at Mon 10:00 must leave X unchanged and split Y at
		// 10:00 (0% done) with segment 2 at Mon 12:00-15:00 — i.e. resumed
		// after the winner's end, not at next_working(10:00).
		e, _ := testEngine()
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1, Priority: task.PriorityHigh, Preemptable: false}
		fs.tasks[2] = &task.Config{ID: 2, Priority: task.PriorityLow, Preemptable: true}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusScheduled, PlannedStart: ts(0, 10), PlannedEnd: ts(0, 12)}
		fs.schedules[2] = &schedule.Record{TaskID: 2, Status: schedule.StatusInProgress, PlannedStart: ts(0, 10), PlannedEnd: ts(0, 13)}
		fs.assignments[assignment.EntityEmployee] = map[int64][]*assignment.Config{
			99: {
				{TaskID: 1, EntityKind: assignment.EntityEmployee, EntityID: 99, PlannedStart: ts(0, 10), PlannedEnd: ts(0, 12)},
				{TaskID: 2, EntityKind: assignment.EntityEmployee, EntityID: 99, PlannedStart: ts(0, 10), PlannedEnd: ts(0, 13)},
			},
		}

		err := e.Preempt(context.Background(), fs, assignment.EntityEmployee, 99, ts(0, 10))
		require.NoError(t, err)

		assert.True(t, fs.schedules[1].PlannedStart.Equal(ts(0, 10)), "winner keeps its schedule")
		assert.True(t, fs.schedules[1].PlannedEnd.Equal(ts(0, 12)), "winner keeps its schedule")

		segs := fs.segments[2]
		require.Len(t, segs, 2)
		assert.True(t, segs[0].PlannedStart.Equal(ts(0, 10)))
		assert.True(t, segs[0].PlannedEnd.Equal(ts(0, 10)))
		assert.InDelta(t, 0.0, segs[0].CompletionPct, 0.01)
		assert.True(t, segs[1].PlannedStart.Equal(ts(0, 12)), "segment 2 resumes after the winner's end")
		assert.True(t, segs[1].PlannedEnd.Equal(ts(0, 15)))
	})
}
