package postgres

// Column lists per persisted table (spec §6's conceptual schema), kept
// alongside the squirrel query builders that use them — grounded on the
// teacher's taskStateColumns/taskStateColumnsSQL convention.

var taskColumns = []string{
	"id", "name", "wbs_code", "estimated_hours", "phase", "priority", "preemptable", "project_id",
}

var dependencyColumns = []string{
	"id", "successor_id", "predecessor_id", "lag_hours", "type",
}

var scheduleColumns = []string{
	"task_id", "planned_start", "planned_end", "actual_start", "actual_end", "status",
}

var segmentColumns = []string{
	"id", "task_id", "segment_index", "planned_start", "planned_end",
	"actual_start", "actual_end", "completion_pct", "is_carry_over",
}

var progressColumns = []string{
	"id", "task_id", "start_time", "end_time", "status",
	"duration_minutes", "accumulated_minutes", "completed_percentage",
}

var pauseColumns = []string{
	"id", "task_id", "start_time", "end_time", "reason",
	"duration_minutes", "is_on_hold", "expected_resume_time",
}

var changeLogColumns = []string{
	"id", "task_id", "prior_start", "prior_end", "new_start", "new_end",
	"change_kind", "reason", "timestamp",
}

var assignmentColumns = []string{
	"id", "task_id", "entity_kind", "entity_id", "planned_start", "planned_end", "is_initial", "is_modified",
}

const (
	tableTasks            = "tasks"
	tableDependencies      = "dependencies"
	tableSchedules         = "schedules"
	tableSegments          = "task_segments"
	tableProgress          = "task_progress"
	tablePauses            = "task_pause_log"
	tableChangeLog         = "schedule_change_log"
	tableEmployeeAssign    = "employee_assignments"
	tableResourceAssign    = "resource_assignments"
	tableResourceCapacity  = "resource_capacities"
	tableRequiredEmployees = "task_required_employees"
	tableRequiredResources = "task_required_resources"
)
