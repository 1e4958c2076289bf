package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/mdriyaz-a/RSO/engine/domain/assignment"
	"github.com/mdriyaz-a/RSO/engine/domain/changelog"
	"github.com/mdriyaz-a/RSO/engine/domain/dependency"
	"github.com/mdriyaz-a/RSO/engine/domain/pause"
	"github.com/mdriyaz-a/RSO/engine/domain/progress"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/domain/segment"
)

// UpsertDependency inserts or replaces a dependency edge. Callers must
// run dependency.Graph.DetectCycle before calling this (spec §3: a cycle
// rejects the write with CycleDetected before it reaches the Store).
func (s *Store) UpsertDependency(ctx context.Context, dep *dependency.Config) error {
	b := sq().Insert(tableDependencies).
		Columns("id", "successor_id", "predecessor_id", "lag_hours", "type").
		Values(dep.ID, dep.SuccessorID, dep.PredecessorID, dep.LagHours, string(dep.Type)).
		Suffix("ON CONFLICT (id) DO UPDATE SET successor_id = EXCLUDED.successor_id, " +
			"predecessor_id = EXCLUDED.predecessor_id, lag_hours = EXCLUDED.lag_hours, type = EXCLUDED.type")
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build dependency upsert: %w", err)
	}
	if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("postgres: upsert dependency: %w", err)
	}
	return nil
}

// UpdateTaskDuration writes a task's revised estimated_hours — used by
// manual_reschedule, which sets estimated_hours to the requested span's
// duration without any working-hour clamp (spec §4.7).
func (s *Store) UpdateTaskDuration(ctx context.Context, taskID int64, estimatedHours float64) error {
	sqlStr, args, err := sq().Update(tableTasks).
		Set("estimated_hours", estimatedHours).
		Where(squirrel.Eq{"id": taskID}).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build task duration update: %w", err)
	}
	if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("postgres: update task duration: %w", err)
	}
	return nil
}

// WriteSchedule upserts one task's schedule record.
func (s *Store) WriteSchedule(ctx context.Context, rec *schedule.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	b := sq().Insert(tableSchedules).
		Columns(scheduleColumns...).
		Values(rec.TaskID, rec.PlannedStart, rec.PlannedEnd, rec.ActualStart, rec.ActualEnd, string(rec.Status)).
		Suffix("ON CONFLICT (task_id) DO UPDATE SET planned_start = EXCLUDED.planned_start, " +
			"planned_end = EXCLUDED.planned_end, actual_start = EXCLUDED.actual_start, " +
			"actual_end = EXCLUDED.actual_end, status = EXCLUDED.status")
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build schedule write: %w", err)
	}
	if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("postgres: write schedule: %w", err)
	}
	return nil
}

// InsertSegment inserts a new task segment row (e.g. produced by a split
// or carry-over, spec §4.8).
func (s *Store) InsertSegment(ctx context.Context, seg *segment.Config) error {
	sqlStr, args, err := sq().Insert(tableSegments).
		Columns("task_id", "segment_index", "planned_start", "planned_end",
			"actual_start", "actual_end", "completion_pct", "is_carry_over").
		Values(seg.TaskID, seg.SegmentIndex, seg.PlannedStart, seg.PlannedEnd,
			seg.ActualStart, seg.ActualEnd, seg.CompletionPct, seg.IsCarryOver).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build segment insert: %w", err)
	}
	return scanOne(ctx, s.querier(), &seg.ID, sqlStr, args...)
}

// UpdateSegment writes an existing segment's mutable fields.
func (s *Store) UpdateSegment(ctx context.Context, seg *segment.Config) error {
	sqlStr, args, err := sq().Update(tableSegments).
		Set("planned_start", seg.PlannedStart).
		Set("planned_end", seg.PlannedEnd).
		Set("actual_start", seg.ActualStart).
		Set("actual_end", seg.ActualEnd).
		Set("completion_pct", seg.CompletionPct).
		Where(squirrel.Eq{"id": seg.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build segment update: %w", err)
	}
	if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("postgres: update segment: %w", err)
	}
	return nil
}

// InsertProgress inserts a new progress entry (e.g. opened by clock_in).
func (s *Store) InsertProgress(ctx context.Context, entry *progress.Entry) error {
	sqlStr, args, err := sq().Insert(tableProgress).
		Columns("task_id", "start_time", "end_time", "status",
			"duration_minutes", "accumulated_minutes", "completed_percentage").
		Values(entry.TaskID, entry.StartTime, entry.EndTime, entry.Status,
			entry.DurationMinutes, entry.AccumulatedMinutes, entry.CompletedPercentage).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build progress insert: %w", err)
	}
	return scanOne(ctx, s.querier(), &entry.ID, sqlStr, args...)
}

// UpdateProgress writes an existing progress entry's closing fields.
func (s *Store) UpdateProgress(ctx context.Context, entry *progress.Entry) error {
	sqlStr, args, err := sq().Update(tableProgress).
		Set("end_time", entry.EndTime).
		Set("status", entry.Status).
		Set("duration_minutes", entry.DurationMinutes).
		Set("accumulated_minutes", entry.AccumulatedMinutes).
		Set("completed_percentage", entry.CompletedPercentage).
		Where(squirrel.Eq{"id": entry.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build progress update: %w", err)
	}
	if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("postgres: update progress: %w", err)
	}
	return nil
}

// InsertPause inserts a new pause/on-hold entry.
func (s *Store) InsertPause(ctx context.Context, entry *pause.Entry) error {
	sqlStr, args, err := sq().Insert(tablePauses).
		Columns("task_id", "start_time", "end_time", "reason",
			"duration_minutes", "is_on_hold", "expected_resume_time").
		Values(entry.TaskID, entry.StartTime, entry.EndTime, entry.Reason,
			entry.DurationMinutes, entry.IsOnHold, entry.ExpectedResumeTime).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build pause insert: %w", err)
	}
	return scanOne(ctx, s.querier(), &entry.ID, sqlStr, args...)
}

// UpdatePause writes an existing pause entry's closing fields.
func (s *Store) UpdatePause(ctx context.Context, entry *pause.Entry) error {
	sqlStr, args, err := sq().Update(tablePauses).
		Set("end_time", entry.EndTime).
		Set("duration_minutes", entry.DurationMinutes).
		Set("expected_resume_time", entry.ExpectedResumeTime).
		Where(squirrel.Eq{"id": entry.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build pause update: %w", err)
	}
	if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("postgres: update pause: %w", err)
	}
	return nil
}

// AppendChangeLog appends one audit row for a planned-span change.
func (s *Store) AppendChangeLog(ctx context.Context, entry *changelog.Entry) error {
	sqlStr, args, err := sq().Insert(tableChangeLog).
		Columns("task_id", "prior_start", "prior_end", "new_start", "new_end", "change_kind", "reason", "timestamp").
		Values(entry.TaskID, entry.PriorStart, entry.PriorEnd, entry.NewStart, entry.NewEnd,
			string(entry.ChangeKind), entry.Reason, entry.Timestamp).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build changelog insert: %w", err)
	}
	return scanOne(ctx, s.querier(), &entry.ID, sqlStr, args...)
}

// UpsertAssignment inserts or updates an employee/equipment binding,
// routed to the matching table per spec §6's unique (task, entity)
// constraint.
func (s *Store) UpsertAssignment(ctx context.Context, a *assignment.Config) error {
	table := tableEmployeeAssign
	if a.EntityKind == assignment.EntityEquipment {
		table = tableResourceAssign
	}
	b := sq().Insert(table).
		Columns("task_id", "entity_id", "planned_start", "planned_end", "is_initial", "is_modified").
		Values(a.TaskID, a.EntityID, a.PlannedStart, a.PlannedEnd, a.IsInitial, a.IsModified).
		Suffix("ON CONFLICT (task_id, entity_id) DO UPDATE SET planned_start = EXCLUDED.planned_start, " +
			"planned_end = EXCLUDED.planned_end, is_modified = EXCLUDED.is_modified " +
			"RETURNING id")
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build assignment upsert: %w", err)
	}
	return scanOne(ctx, s.querier(), &a.ID, sqlStr, args...)
}

// ClearAssignments removes every assignment for a task across both
// pools — the clear_existing step a caller runs before re-assigning a
// task from scratch (spec §9 open question, resolved in DESIGN.md); the
// Assigner itself does not call it.
func (s *Store) ClearAssignments(ctx context.Context, taskID int64) error {
	for _, table := range []string{tableEmployeeAssign, tableResourceAssign} {
		sqlStr, args, err := sq().Delete(table).Where(squirrel.Eq{"task_id": taskID}).ToSql()
		if err != nil {
			return fmt.Errorf("postgres: build assignment clear: %w", err)
		}
		if _, err := s.db.Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("postgres: clear assignments: %w", err)
		}
	}
	return nil
}
