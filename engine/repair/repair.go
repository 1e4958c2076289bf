// Package repair implements the Local Repair Engine (C8, spec §4.8):
// dependency-cascade propagation, segment split for preemption and
// carry-over, priority preemption on resource conflict, and the full
// reschedule orchestration the Event State Machine (C7) triggers on
// complete, skip and a clock_out at 100%. Every method here runs against an
// already-open transaction (spec §5: a cascade writes all affected tasks
// within the same transaction as the triggering event).
package repair

import (
	"context"
	"sort"
	"time"

	"github.com/mdriyaz-a/RSO/engine/calendar"
	"github.com/mdriyaz-a/RSO/engine/domain/assignment"
	"github.com/mdriyaz-a/RSO/engine/domain/changelog"
	"github.com/mdriyaz-a/RSO/engine/domain/dependency"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/domain/segment"
	"github.com/mdriyaz-a/RSO/engine/schederr"
	"github.com/mdriyaz-a/RSO/engine/scheduler/model"
	"github.com/mdriyaz-a/RSO/engine/scheduler/solver"
	"github.com/mdriyaz-a/RSO/engine/scheduler/writer"
	"github.com/mdriyaz-a/RSO/engine/store"
)

// Engine bundles the collaborators a full reschedule needs alongside the
// calendar every repair routine shares.
type Engine struct {
	Calendar    *calendar.Calendar
	Builder     *model.Builder
	Solver      solver.Config
	Writer      *writer.Writer
	PhaseOrder  []string
	HorizonDays int
	ScaleFactor int
}

// New returns an Engine wired to the given collaborators.
func New(cal *calendar.Calendar, builder *model.Builder, solverCfg solver.Config, w *writer.Writer, phaseOrder []string, horizonDays, scaleFactor int) *Engine {
	return &Engine{
		Calendar: cal, Builder: builder, Solver: solverCfg, Writer: w,
		PhaseOrder: phaseOrder, HorizonDays: horizonDays, ScaleFactor: scaleFactor,
	}
}

// anchorTime picks the predecessor's start or end as the anchor per the
// type table (spec §4.3); the cascade shift below then treats that anchor
// as the successor's new start regardless of type, matching §4.8's
// literal "new_start = next_working(anchor + lag)" rule.
func anchorTime(t dependency.Type, predStart, predEnd time.Time) time.Time {
	if t == dependency.StartToStart || t == dependency.StartToFinish {
		return predStart
	}
	return predEnd
}

// Cascade walks taskID's dependents outward, shifting each dependent's
// planned span from its predecessor's current schedule, per spec §4.8's
// dependency cascade. The walk is an iterative DFS over an explicit work
// stack rather than Go recursion (spec §9's re-architecture mapping for
// `_reschedule_dependent_tasks`), with a visited set guaranteeing
// termination on diamond graphs regardless of stack depth.
func (e *Engine) Cascade(ctx context.Context, tx store.Store, taskID int64) error {
	deps, err := tx.ListDependencies(ctx, nil)
	if err != nil {
		return err
	}
	graph := dependency.BuildGraph(deps)

	visited := map[int64]bool{taskID: true}
	stack := []int64{taskID}
	for len(stack) > 0 {
		predID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		predSched, err := tx.GetSchedule(ctx, predID)
		if err != nil {
			return err
		}
		if predSched == nil {
			continue
		}
		for _, edge := range graph.Dependents(predID) {
			depID := edge.SuccessorID
			if visited[depID] {
				continue // cycles cannot occur post-DetectCycle, but cascades still dedupe defensively
			}
			visited[depID] = true

			depSched, err := tx.GetSchedule(ctx, depID)
			if err != nil {
				return err
			}
			if depSched == nil {
				continue
			}
			priorStart, priorEnd := depSched.PlannedStart, depSched.PlannedEnd
			duration := priorEnd.Sub(priorStart)

			anchor := anchorTime(edge.Type, predSched.PlannedStart, predSched.PlannedEnd)
			shifted := anchor.Add(time.Duration(edge.LagHours * float64(time.Hour)))
			newStart := e.Calendar.NextWorkingInstant(shifted)
			newEnd := newStart.Add(duration)

			depSched.PlannedStart = newStart
			depSched.PlannedEnd = newEnd
			if err := tx.WriteSchedule(ctx, depSched); err != nil {
				return err
			}
			entry := changelog.New(depID, priorStart, priorEnd, newStart, newEnd, changelog.KindDependencyCascade, "dependency cascade", newStart)
			if !entry.IsNoop() {
				if err := tx.AppendChangeLog(ctx, entry); err != nil {
					return err
				}
			}
			stack = append(stack, depID)
		}
	}
	return nil
}

// Split produces the two-segment preemption/carry-over shape of spec
// §4.8: segment 1 covers worked time up to splitPoint, segment 2 starts at
// resumePoint and runs remainingHours, marked is_carry_over. resumePoint is
// caller-supplied rather than derived from splitPoint here, because the
// two callers need different anchors: a carry-over clock-out resumes at
// the next working instant after splitPoint itself, while a priority
// preemption resumes at the next working instant after the winning task's
// planned end (spec §4.8 step 3 / §8 scenario 5) — which can fall well
// after splitPoint. The parent schedule's planned_end moves to segment 2's
// end and dependents cascade from there.
func (e *Engine) Split(ctx context.Context, tx store.Store, taskID int64, splitPoint, resumePoint time.Time, remainingHours float64) error {
	sched, err := tx.GetSchedule(ctx, taskID)
	if err != nil {
		return err
	}
	if sched == nil {
		return schederr.New(nil, schederr.InvalidEventTransition, map[string]any{"task_id": taskID, "reason": "no schedule to split"})
	}
	existing, err := tx.ListSegments(ctx, taskID)
	if err != nil {
		return err
	}
	nextIndex := len(existing) + 1

	worked := splitPoint.Sub(sched.PlannedStart)
	plannedTotal := sched.PlannedEnd.Sub(sched.PlannedStart)
	pct := 0.0
	if plannedTotal > 0 {
		pct = worked.Seconds() / plannedTotal.Seconds() * 100
		if pct > 100 {
			pct = 100
		}
	}
	seg1 := &segment.Config{
		TaskID: taskID, SegmentIndex: nextIndex,
		PlannedStart: sched.PlannedStart, PlannedEnd: splitPoint,
		CompletionPct: pct,
	}
	if err := tx.InsertSegment(ctx, seg1); err != nil {
		return err
	}

	seg2End := resumePoint.Add(time.Duration(remainingHours * float64(time.Hour)))
	seg2 := &segment.Config{
		TaskID: taskID, SegmentIndex: nextIndex + 1,
		PlannedStart: resumePoint, PlannedEnd: seg2End,
		IsCarryOver: true,
	}
	if err := tx.InsertSegment(ctx, seg2); err != nil {
		return err
	}

	priorStart, priorEnd := sched.PlannedStart, sched.PlannedEnd
	sched.PlannedEnd = seg2End
	if err := tx.WriteSchedule(ctx, sched); err != nil {
		return err
	}
	entry := changelog.New(taskID, priorStart, priorEnd, sched.PlannedStart, seg2End, changelog.KindSegmentSplit, "segment split", splitPoint)
	if !entry.IsNoop() {
		if err := tx.AppendChangeLog(ctx, entry); err != nil {
			return err
		}
	}
	return e.Cascade(ctx, tx, taskID)
}

// Preempt implements spec §4.8's priority preemption: among tasks
// assigned to (entityKind, entityID) whose span covers at, the
// highest-priority keeps its schedule; every lower-priority task is
// either split (if preemptable and InProgress) or shifted whole to start
// after the winner's new end, then cascaded.
func (e *Engine) Preempt(ctx context.Context, tx store.Store, entityKind assignment.EntityKind, entityID int64, at time.Time) error {
	active, err := tx.ListActiveAssignmentsForEntity(ctx, entityKind, entityID)
	if err != nil {
		return err
	}

	type contender struct {
		a      *assignment.Config
		detail *store.TaskDetail
	}
	var contenders []contender
	for _, a := range active {
		if a.PlannedStart.After(at) || !a.PlannedEnd.After(at) {
			continue // does not cover the contended instant
		}
		detail, err := tx.GetTaskDetail(ctx, a.TaskID)
		if err != nil {
			return err
		}
		if detail == nil || detail.Task == nil || detail.Schedule == nil {
			continue
		}
		if detail.Schedule.Status != schedule.StatusScheduled && detail.Schedule.Status != schedule.StatusInProgress {
			continue
		}
		contenders = append(contenders, contender{a: a, detail: detail})
	}
	if len(contenders) < 2 {
		return nil
	}
	sort.Slice(contenders, func(i, j int) bool { return contenders[i].detail.Task.Priority > contenders[j].detail.Task.Priority })

	winner := contenders[0]
	for _, c := range contenders[1:] {
		resumePoint := e.Calendar.NextWorkingInstant(winner.detail.Schedule.PlannedEnd)
		if c.detail.Task.Preemptable && c.detail.Schedule.Status == schedule.StatusInProgress {
			remaining := c.detail.Schedule.PlannedEnd.Sub(at).Hours()
			if remaining <= 0 {
				continue
			}
			if err := e.Split(ctx, tx, c.a.TaskID, at, resumePoint, remaining); err != nil {
				return err
			}
			continue
		}
		duration := c.detail.Schedule.PlannedEnd.Sub(c.detail.Schedule.PlannedStart)
		priorStart, priorEnd := c.detail.Schedule.PlannedStart, c.detail.Schedule.PlannedEnd
		newStart := resumePoint
		c.detail.Schedule.PlannedStart = newStart
		c.detail.Schedule.PlannedEnd = newStart.Add(duration)
		if err := tx.WriteSchedule(ctx, c.detail.Schedule); err != nil {
			return err
		}
		entry := changelog.New(c.a.TaskID, priorStart, priorEnd, newStart, c.detail.Schedule.PlannedEnd, changelog.KindPreemption, "priority preemption", at)
		if err := tx.AppendChangeLog(ctx, entry); err != nil {
			return err
		}
		if err := e.Cascade(ctx, tx, c.a.TaskID); err != nil {
			return err
		}
	}
	return nil
}

// FullReschedule rebuilds and re-solves the model over every schedulable
// task, pinning preserve (task IDs that keep their current window) via
// the CP Model Builder's PreserveSet input, then commits through the
// Schedule Writer within tx — the routine complete/skip (and clock_out at
// 100%) trigger per spec §4.7.
func (e *Engine) FullReschedule(ctx context.Context, tx store.Store, preserve map[int64]bool) error {
	tasks, err := tx.ListSchedulableTasks(ctx, nil)
	if err != nil {
		return err
	}
	deps, err := tx.ListDependencies(ctx, nil)
	if err != nil {
		return err
	}
	reqs, err := tx.ListRequirements(ctx, nil)
	if err != nil {
		return err
	}
	capacities, err := tx.SnapshotCapacities(ctx)
	if err != nil {
		return err
	}

	preserveSet := make(map[int64]model.Window, len(preserve))
	for id := range preserve {
		sched, err := tx.GetSchedule(ctx, id)
		if err != nil {
			return err
		}
		if sched == nil {
			continue
		}
		preserveSet[id] = model.Window{
			Start: e.Calendar.DatetimeToWTU(sched.PlannedStart),
			End:   e.Calendar.DatetimeToWTU(sched.PlannedEnd),
		}
	}

	m, err := e.Builder.Build(model.BuildInput{
		Tasks:        tasks,
		Dependencies: deps,
		Requirements: reqs,
		Capacities:   capacities,
		PhaseOrder:   e.PhaseOrder,
		HorizonDays:  e.HorizonDays,
		ScaleFactor:  e.ScaleFactor,
		PreserveSet:  preserveSet,
	})
	if err != nil {
		return err
	}

	result, err := solver.NewDriver(e.Solver).Run(ctx, m)
	if err != nil {
		return err
	}
	if result.Outcome == solver.Infeasible {
		return schederr.New(nil, schederr.InfeasibleModel, map[string]any{"reason": "full reschedule found no feasible solution"})
	}

	return e.Writer.CommitTx(ctx, tx, writer.CommitInput{
		Result:      result,
		Demands:     m.Demands,
		Capacities:  capacities,
		Precedences: m.Precedences,
		Tasks:       tasks,
		PhaseOrder:  e.PhaseOrder,
	})
}
