package events

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

// stubRepairer records Repairer calls without doing the real cascade
// math, so these tests isolate the state machine's own transition and
// bookkeeping logic from engine/repair's (separately tested) behavior.
type stubRepairer struct {
	cascaded        []int64
	splitTask       int64
	splitPoint      time.Time
	splitResume     time.Time
	splitRemaining  float64
	fullReschedule  map[int64]bool
	fullRescheduled bool
}

func (s *stubRepairer) Cascade(ctx context.Context, tx store.Store, taskID int64) error {
	s.cascaded = append(s.cascaded, taskID)
	return nil
}
func (s *stubRepairer) Split(ctx context.Context, tx store.Store, taskID int64, splitPoint, resumePoint time.Time, remainingHours float64) error {
	s.splitTask, s.splitPoint, s.splitResume, s.splitRemaining = taskID, splitPoint, resumePoint, remainingHours
	return nil
}
func (s *stubRepairer) FullReschedule(ctx context.Context, tx store.Store, preserve map[int64]bool) error {
	s.fullRescheduled = true
	s.fullReschedule = preserve
	return nil
}

type fakeStore struct {
	tasks     map[int64]*task.Config
	schedules map[int64]*schedule.Record
	progress  map[int64][]*progress.Entry
	pauses    map[int64][]*pause.Entry
	deps      []*dependency.Config
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:     map[int64]*task.Config{},
		schedules: map[int64]*schedule.Record{},
		progress:  map[int64][]*progress.Entry{},
		pauses:    map[int64][]*pause.Entry{},
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
func (f *fakeStore) ListSegments(context.Context, int64) ([]*segment.Config, error) { return nil, nil }
func (f *fakeStore) ListAssignments(context.Context, int64) ([]*assignment.Config, error) {
	return nil, nil
}
func (f *fakeStore) ListActiveAssignmentsForEntity(context.Context, assignment.EntityKind, int64) ([]*assignment.Config, error) {
	return nil, nil
}
func (f *fakeStore) GetTaskDetail(_ context.Context, taskID int64) (*store.TaskDetail, error) {
	t := f.tasks[taskID]
	if t == nil {
		return nil, nil
	}
	return &store.TaskDetail{
		Task: t, Schedule: f.schedules[taskID],
		Progress: f.progress[taskID], Pauses: f.pauses[taskID],
	}, nil
}

func (f *fakeStore) UpsertDependency(context.Context, *dependency.Config) error { return nil }
func (f *fakeStore) UpdateTaskDuration(_ context.Context, taskID int64, hours float64) error {
	if t := f.tasks[taskID]; t != nil {
		t.EstimatedHours = hours
	}
	return nil
}
func (f *fakeStore) WriteSchedule(_ context.Context, rec *schedule.Record) error {
	f.schedules[rec.TaskID] = rec
	return nil
}
func (f *fakeStore) InsertSegment(context.Context, *segment.Config) error { return nil }
func (f *fakeStore) UpdateSegment(context.Context, *segment.Config) error { return nil }
func (f *fakeStore) InsertProgress(_ context.Context, entry *progress.Entry) error {
	f.progress[entry.TaskID] = append(f.progress[entry.TaskID], entry)
	return nil
}
func (f *fakeStore) UpdateProgress(context.Context, *progress.Entry) error { return nil }
func (f *fakeStore) InsertPause(_ context.Context, entry *pause.Entry) error {
	f.pauses[entry.TaskID] = append(f.pauses[entry.TaskID], entry)
	return nil
}
func (f *fakeStore) UpdatePause(context.Context, *pause.Entry) error            { return nil }
func (f *fakeStore) AppendChangeLog(context.Context, *changelog.Entry) error    { return nil }
func (f *fakeStore) UpsertAssignment(context.Context, *assignment.Config) error { return nil }
func (f *fakeStore) ClearAssignments(context.Context, int64) error             { return nil }
func (f *fakeStore) Close(context.Context) error                               { return nil }
func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, f)
}

func ts(h int) time.Time { return time.Date(2026, time.March, 2, h, 0, 0, 0, time.UTC) }

func testHandler(fs *fakeStore, repair Repairer) *Handler {
	cal := calendar.New(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), 9, 17, 100)
	return NewHandler(fs, cal, repair)
}

func TestHandler_ClockIn(t *testing.T) {
	t.Run("Should move Scheduled to InProgress and open a progress entry", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusScheduled, PlannedStart: ts(9), PlannedEnd: ts(17)}
		h := testHandler(fs, &stubRepairer{})

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: ClockIn, Timestamp: ts(9)})
		require.NoError(t, err)
		assert.Equal(t, schedule.StatusInProgress, fs.schedules[1].Status)
		require.Len(t, fs.progress[1], 1)
		require.NotNil(t, fs.schedules[1].ActualStart)
	})

	t.Run("Should carry accumulated minutes forward when resuming from Paused", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusPaused, PlannedStart: ts(9), PlannedEnd: ts(17)}
		fs.progress[1] = []*progress.Entry{{TaskID: 1, AccumulatedMinutes: 90}}
		h := testHandler(fs, &stubRepairer{})

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: ClockIn, Timestamp: ts(13)})
		require.NoError(t, err)
		require.Len(t, fs.progress[1], 2)
		assert.Equal(t, 90.0, fs.progress[1][1].AccumulatedMinutes)
	})

	t.Run("Should reject clock_in from an invalid source state", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusCompleted, PlannedStart: ts(9), PlannedEnd: ts(17)}
		h := testHandler(fs, &stubRepairer{})

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: ClockIn, Timestamp: ts(9)})
		require.Error(t, err)
	})
}

func TestHandler_ClockOut(t *testing.T) {
	t.Run("Should pause and recompute completion under 100 percent", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusInProgress, PlannedStart: ts(9), PlannedEnd: ts(17)}
		fs.progress[1] = []*progress.Entry{{TaskID: 1, StartTime: ts(9)}}
		pct := 50.0
		h := testHandler(fs, &stubRepairer{})

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: ClockOut, Timestamp: ts(13), Details: Details{CompletedPercentage: &pct}})
		require.NoError(t, err)
		assert.Equal(t, schedule.StatusPaused, fs.schedules[1].Status)
	})

	t.Run("Should complete and trigger a full reschedule at 100 percent", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusInProgress, PlannedStart: ts(9), PlannedEnd: ts(17)}
		fs.progress[1] = []*progress.Entry{{TaskID: 1, StartTime: ts(9)}}
		pct := 100.0
		repair := &stubRepairer{}
		h := testHandler(fs, repair)

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: ClockOut, Timestamp: ts(17), Details: Details{CompletedPercentage: &pct}})
		require.NoError(t, err)
		assert.Equal(t, schedule.StatusCompleted, fs.schedules[1].Status)
		assert.True(t, repair.fullRescheduled)
		assert.True(t, repair.fullReschedule[1])
	})

	t.Run("Should split and carry over remaining hours when carry_over is set", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusInProgress, PlannedStart: ts(9), PlannedEnd: ts(17)}
		fs.progress[1] = []*progress.Entry{{TaskID: 1, StartTime: ts(9)}}
		remaining := 4.0
		repair := &stubRepairer{}
		h := testHandler(fs, repair)

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: ClockOut, Timestamp: ts(17), Details: Details{CarryOver: true, RemainingHours: &remaining}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), repair.splitTask)
		assert.Equal(t, 4.0, repair.splitRemaining)
		assert.Equal(t, schedule.StatusPaused, fs.schedules[1].Status)
	})
}

func TestHandler_Pause(t *testing.T) {
	t.Run("Should leave the schedule untouched for a short break", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusInProgress, PlannedStart: ts(9), PlannedEnd: ts(17)}
		repair := &stubRepairer{}
		h := testHandler(fs, repair)
		dur := 15.0

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: Pause, Timestamp: ts(11), Details: Details{DurationMinutes: &dur}})
		require.NoError(t, err)
		assert.True(t, fs.schedules[1].PlannedEnd.Equal(ts(17)))
		assert.Empty(t, repair.cascaded)
	})

	t.Run("Should shift planned_end and cascade for a long break", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusInProgress, PlannedStart: ts(9), PlannedEnd: ts(17)}
		repair := &stubRepairer{}
		h := testHandler(fs, repair)
		dur := 45.0

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: Pause, Timestamp: ts(11), Details: Details{DurationMinutes: &dur}})
		require.NoError(t, err)
		assert.True(t, fs.schedules[1].PlannedEnd.After(ts(17)))
		assert.Equal(t, []int64{1}, repair.cascaded)
	})
}

func TestHandler_OnHoldAndResume(t *testing.T) {
	t.Run("Should block descendants on hold and unblock them on resume", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1}
		fs.tasks[2] = &task.Config{ID: 2}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusInProgress, PlannedStart: ts(9), PlannedEnd: ts(17)}
		fs.schedules[2] = &schedule.Record{TaskID: 2, Status: schedule.StatusScheduled, PlannedStart: ts(9), PlannedEnd: ts(17)}
		fs.deps = []*dependency.Config{{SuccessorID: 2, PredecessorID: 1, Type: dependency.FinishToStart}}
		repair := &stubRepairer{}
		h := testHandler(fs, repair)

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: OnHold, Timestamp: ts(11)})
		require.NoError(t, err)
		assert.Equal(t, schedule.StatusOnHold, fs.schedules[1].Status)
		assert.Equal(t, schedule.StatusBlocked, fs.schedules[2].Status)

		err = h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: Resume, Timestamp: ts(14)})
		require.NoError(t, err)
		assert.Equal(t, schedule.StatusInProgress, fs.schedules[1].Status)
		assert.Equal(t, schedule.StatusScheduled, fs.schedules[2].Status)
		assert.Equal(t, []int64{1}, repair.cascaded)
	})
}

func TestHandler_ManualReschedule(t *testing.T) {
	t.Run("Should write the requested span verbatim and update estimated hours", func(t *testing.T) {
		fs := newFakeStore()
		fs.tasks[1] = &task.Config{ID: 1, EstimatedHours: 8}
		fs.schedules[1] = &schedule.Record{TaskID: 1, Status: schedule.StatusScheduled, PlannedStart: ts(9), PlannedEnd: ts(17)}
		repair := &stubRepairer{}
		h := testHandler(fs, repair)
		newStart, newEnd := ts(10), ts(15)

		err := h.HandleEvent(context.Background(), Event{TaskID: 1, Kind: ManualReschedule, Timestamp: ts(9), Details: Details{NewStart: &newStart, NewEnd: &newEnd}})
		require.NoError(t, err)
		assert.True(t, fs.schedules[1].PlannedStart.Equal(newStart))
		assert.True(t, fs.schedules[1].PlannedEnd.Equal(newEnd))
		assert.Equal(t, 5.0, fs.tasks[1].EstimatedHours)
		assert.Equal(t, []int64{1}, repair.cascaded)
	})
}
