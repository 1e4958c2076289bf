package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/mdriyaz-a/RSO/engine/domain/assignment"
	"github.com/mdriyaz-a/RSO/engine/domain/dependency"
	"github.com/mdriyaz-a/RSO/engine/domain/pause"
	"github.com/mdriyaz-a/RSO/engine/domain/progress"
	"github.com/mdriyaz-a/RSO/engine/domain/resource"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/domain/segment"
	"github.com/mdriyaz-a/RSO/engine/domain/task"
	"github.com/mdriyaz-a/RSO/engine/store"
)

func sq() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (s *Store) querier() pgxscan.Querier { return s.db.(pgxscan.Querier) }

// ListSchedulableTasks returns every task not under a reserved WBS prefix
// (spec §3), optionally filtered to one project.
func (s *Store) ListSchedulableTasks(ctx context.Context, projectID *int64) ([]*task.Config, error) {
	b := sq().Select(taskColumns...).From(tableTasks)
	if projectID != nil {
		b = b.Where(squirrel.Eq{"project_id": *projectID})
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build tasks query: %w", err)
	}
	var rows []*task.Config
	if err := scanAll(ctx, s.querier(), &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("postgres: list tasks: %w", err)
	}
	return task.FilterSchedulable(rows), nil
}

// ListDependencies returns every dependency edge, optionally scoped to
// one project's tasks.
func (s *Store) ListDependencies(ctx context.Context, projectID *int64) ([]*dependency.Config, error) {
	b := sq().Select(prefixed("d", dependencyColumns)...).From(tableDependencies + " d")
	if projectID != nil {
		b = b.Join(tableTasks + " t ON t.id = d.successor_id").Where(squirrel.Eq{"t.project_id": *projectID})
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build dependencies query: %w", err)
	}
	var rows []*dependency.Config
	if err := scanAll(ctx, s.querier(), &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("postgres: list dependencies: %w", err)
	}
	return rows, nil
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

type requirementRow struct {
	TaskID int64  `db:"task_id"`
	Kind   string `db:"kind"`
	Name   string `db:"name"`
	Count  int    `db:"count"`
}

// ListRequirements returns each task's resource demand, aggregated from
// the required_employees and required_resources tables into one
// Requirement per task.
func (s *Store) ListRequirements(ctx context.Context, projectID *int64) ([]*resource.Requirement, error) {
	union := sq().
		Select("task_id", "'skill' AS kind", "skill_group AS name", "count").
		From(tableRequiredEmployees)
	unionSQL, unionArgs, err := union.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build employee requirements query: %w", err)
	}
	second := sq().
		Select("task_id", "'equipment' AS kind", "equipment_category AS name", "count").
		From(tableRequiredResources)
	secondSQL, secondArgs, err := second.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build resource requirements query: %w", err)
	}
	fullSQL := unionSQL + " UNION ALL " + rebind(secondSQL, len(unionArgs))
	args := append(unionArgs, secondArgs...)

	var rows []requirementRow
	if err := scanAll(ctx, s.querier(), &rows, fullSQL, args...); err != nil {
		return nil, fmt.Errorf("postgres: list requirements: %w", err)
	}

	byTask := make(map[int64]*resource.Requirement)
	for _, r := range rows {
		req, ok := byTask[r.TaskID]
		if !ok {
			req = &resource.Requirement{TaskID: r.TaskID, Counts: make(map[resource.PoolKey]int)}
			byTask[r.TaskID] = req
		}
		req.Counts[resource.PoolKey{Kind: resource.Kind(r.Kind), Name: r.Name}] = r.Count
	}
	out := make([]*resource.Requirement, 0, len(byTask))
	for _, req := range byTask {
		out = append(out, req)
	}
	return out, nil
}

// rebind renumbers a second query fragment's $N placeholders to continue
// after offset placeholders already used by the first fragment of a
// manually concatenated UNION ALL (squirrel builds each half
// independently and is not UNION-aware).
func rebind(sqlStr string, offset int) string {
	if offset == 0 {
		return sqlStr
	}
	out := make([]byte, 0, len(sqlStr))
	for i := 0; i < len(sqlStr); i++ {
		if sqlStr[i] == '$' {
			j := i + 1
			n := 0
			for j < len(sqlStr) && sqlStr[j] >= '0' && sqlStr[j] <= '9' {
				n = n*10 + int(sqlStr[j]-'0')
				j++
			}
			if j > i+1 {
				out = append(out, []byte(fmt.Sprintf("$%d", n+offset))...)
				i = j - 1
				continue
			}
		}
		out = append(out, sqlStr[i])
	}
	return string(out)
}

type capacityRow struct {
	Kind  string `db:"kind"`
	Name  string `db:"name"`
	Count int    `db:"count"`
}

// SnapshotCapacities reads every pool's capacity into an immutable table,
// handed to the CP Model Builder at model-build time (spec §4.2).
func (s *Store) SnapshotCapacities(ctx context.Context) (*resource.CapacityTable, error) {
	sqlStr, args, err := sq().Select("kind", "name", "count").From(tableResourceCapacity).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build capacities query: %w", err)
	}
	var rows []capacityRow
	if err := scanAll(ctx, s.querier(), &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("postgres: snapshot capacities: %w", err)
	}
	capacities := make(map[resource.PoolKey]int, len(rows))
	for _, r := range rows {
		capacities[resource.PoolKey{Kind: resource.Kind(r.Kind), Name: r.Name}] = r.Count
	}
	return resource.NewCapacityTable(capacities), nil
}

// GetSchedule returns the schedule record for one task, or nil if none
// exists yet.
func (s *Store) GetSchedule(ctx context.Context, taskID int64) (*schedule.Record, error) {
	sqlStr, args, err := sq().Select(scheduleColumns...).From(tableSchedules).
		Where(squirrel.Eq{"task_id": taskID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build schedule query: %w", err)
	}
	var rec schedule.Record
	if err := scanOne(ctx, s.querier(), &rec, sqlStr, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: get schedule: %w", err)
	}
	return &rec, nil
}

// ListSchedules batches GetSchedule for multiple tasks.
func (s *Store) ListSchedules(ctx context.Context, taskIDs []int64) (map[int64]*schedule.Record, error) {
	if len(taskIDs) == 0 {
		return map[int64]*schedule.Record{}, nil
	}
	ids := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		ids[i] = id
	}
	sqlStr, args, err := sq().Select(scheduleColumns...).From(tableSchedules).
		Where(squirrel.Eq{"task_id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build schedules query: %w", err)
	}
	var rows []*schedule.Record
	if err := scanAll(ctx, s.querier(), &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("postgres: list schedules: %w", err)
	}
	out := make(map[int64]*schedule.Record, len(rows))
	for _, r := range rows {
		out[r.TaskID] = r
	}
	return out, nil
}

// ListSegments returns a task's segments ordered by SegmentIndex.
func (s *Store) ListSegments(ctx context.Context, taskID int64) ([]*segment.Config, error) {
	sqlStr, args, err := sq().Select(segmentColumns...).From(tableSegments).
		Where(squirrel.Eq{"task_id": taskID}).OrderBy("segment_index").ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build segments query: %w", err)
	}
	var rows []*segment.Config
	if err := scanAll(ctx, s.querier(), &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("postgres: list segments: %w", err)
	}
	return rows, nil
}

// ListAssignments returns every assignment for one task.
func (s *Store) ListAssignments(ctx context.Context, taskID int64) ([]*assignment.Config, error) {
	employees, err := s.listAssignmentsWhere(ctx, squirrel.Eq{"task_id": taskID})
	if err != nil {
		return nil, err
	}
	equipment, err := s.listAssignmentsWhere(ctx, squirrel.Eq{
		"task_id":     taskID,
		"entity_kind": string(assignment.EntityEquipment),
	})
	if err != nil {
		return nil, err
	}
	return append(employees, equipment...), nil
}

// ListActiveAssignmentsForEntity returns every assignment of one
// employee/equipment unit, used by the Assigner's availability-window
// filter (spec §4.6 step 2).
func (s *Store) ListActiveAssignmentsForEntity(
	ctx context.Context,
	kind assignment.EntityKind,
	entityID int64,
) ([]*assignment.Config, error) {
	return s.listAssignmentsWhere(ctx, squirrel.Eq{"entity_kind": string(kind), "entity_id": entityID})
}

func (s *Store) listAssignmentsWhere(ctx context.Context, pred squirrel.Eq) ([]*assignment.Config, error) {
	table := tableEmployeeAssign
	if kind, ok := pred["entity_kind"]; ok && kind == string(assignment.EntityEquipment) {
		table = tableResourceAssign
	}
	sqlStr, args, err := sq().Select(assignmentColumns...).From(table).Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build assignments query: %w", err)
	}
	var rows []*assignment.Config
	if err := scanAll(ctx, s.querier(), &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("postgres: list assignments: %w", err)
	}
	return rows, nil
}

// GetTaskDetail assembles the denormalized view the Event State Machine
// checks before each transition — the SUPPLEMENTED get_task_details
// helper (rescheduler.py:2269).
func (s *Store) GetTaskDetail(ctx context.Context, taskID int64) (*store.TaskDetail, error) {
	sqlStr, args, err := sq().Select(taskColumns...).From(tableTasks).Where(squirrel.Eq{"id": taskID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build task query: %w", err)
	}
	var t task.Config
	if err := scanOne(ctx, s.querier(), &t, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("postgres: get task: %w", err)
	}
	sched, err := s.GetSchedule(ctx, taskID)
	if err != nil {
		return nil, err
	}
	progressSQL, progressArgs, err := sq().Select(progressColumns...).From(tableProgress).
		Where(squirrel.Eq{"task_id": taskID}).OrderBy("start_time").ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build progress query: %w", err)
	}
	var progressRows []*progress.Entry
	if err := scanAll(ctx, s.querier(), &progressRows, progressSQL, progressArgs...); err != nil {
		return nil, fmt.Errorf("postgres: list progress: %w", err)
	}
	pauseSQL, pauseArgs, err := sq().Select(pauseColumns...).From(tablePauses).
		Where(squirrel.Eq{"task_id": taskID}).OrderBy("start_time").ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build pause query: %w", err)
	}
	var pauseRows []*pause.Entry
	if err := scanAll(ctx, s.querier(), &pauseRows, pauseSQL, pauseArgs...); err != nil {
		return nil, fmt.Errorf("postgres: list pauses: %w", err)
	}
	return &store.TaskDetail{Task: &t, Schedule: sched, Progress: progressRows, Pauses: pauseRows}, nil
}
