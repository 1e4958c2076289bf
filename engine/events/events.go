// Package events implements the Event State Machine (C7, spec §4.7):
// per-task lifecycle transitions, dispatching each event kind's side
// effects to the Local Repair Engine (C8) and the Store Adapter (C2)
// within one transaction per event (spec §5).
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mdriyaz-a/RSO/engine/calendar"
	"github.com/mdriyaz-a/RSO/engine/domain/pause"
	"github.com/mdriyaz-a/RSO/engine/domain/progress"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/schederr"
	"github.com/mdriyaz-a/RSO/engine/store"
	"github.com/mdriyaz-a/RSO/pkg/logger"
)

// Kind is one inbound schedule event's type (spec §6's event encoding).
type Kind string

const (
	ClockIn          Kind = "clock_in"
	ClockOut         Kind = "clock_out"
	Pause            Kind = "pause"
	OnHold           Kind = "on_hold"
	Resume           Kind = "resume"
	Complete         Kind = "complete"
	Skip             Kind = "skip"
	ManualReschedule Kind = "manual_reschedule"
)

// Details carries the event-kind-specific payload fields of spec §6.
// validator tags enforce the bounds the original's API layer checked
// ad hoc (completed_percentage in [0,100], non-negative durations).
type Details struct {
	Reason              string     `validate:"omitempty"`
	DurationMinutes     *float64   `validate:"omitempty,gte=0"`
	NewStart            *time.Time `validate:"omitempty"`
	NewEnd              *time.Time `validate:"omitempty"`
	CompletedPercentage *float64   `validate:"omitempty,gte=0,lte=100"`
	RemainingHours      *float64   `validate:"omitempty,gte=0"`
	CarryOver           bool
}

// Event is one inbound schedule event. EventID is the caller's
// idempotency key for at-least-once delivery; callers that don't supply
// one get a fresh one generated for log correlation only (HandleEvent
// does not itself deduplicate by EventID — a transport-level concern, not
// a state-machine one).
type Event struct {
	TaskID    int64     `validate:"required"`
	Kind      Kind      `validate:"required"`
	Timestamp time.Time `validate:"required"`
	Details   Details
	EventID   uuid.UUID
}

// Repairer is the Local Repair Engine's port as the Event State Machine
// consumes it — kept narrow and defined here (rather than imported from
// engine/repair) so the state machine depends only on the behavior it
// needs; engine/repair.Engine satisfies this interface structurally.
type Repairer interface {
	Cascade(ctx context.Context, tx store.Store, taskID int64) error
	Split(ctx context.Context, tx store.Store, taskID int64, splitPoint, resumePoint time.Time, remainingHours float64) error
	FullReschedule(ctx context.Context, tx store.Store, preserve map[int64]bool) error
}

// Handler dispatches validated events to their state transition and
// Repairer side effects, one Store transaction per event.
type Handler struct {
	Store    store.Store
	Calendar *calendar.Calendar
	Repair   Repairer
	validate *validator.Validate
}

// NewHandler returns a Handler wired to its collaborators.
func NewHandler(st store.Store, cal *calendar.Calendar, repair Repairer) *Handler {
	return &Handler{Store: st, Calendar: cal, Repair: repair, validate: validator.New()}
}

// allowedSources returns the source statuses spec §4.7's table permits
// for kind. "any non-terminal" event kinds are reported via
// anyNonTerminal=true, checked separately by Status.IsTerminal.
func allowedSources(kind Kind) (sources []schedule.Status, anyNonTerminal bool) {
	switch kind {
	case ClockIn:
		return []schedule.Status{schedule.StatusScheduled, schedule.StatusPaused}, false
	case ClockOut, Pause:
		return []schedule.Status{schedule.StatusInProgress}, false
	case OnHold:
		return []schedule.Status{schedule.StatusScheduled, schedule.StatusInProgress}, false
	case Resume:
		return []schedule.Status{schedule.StatusOnHold}, false
	case Complete, Skip, ManualReschedule:
		return nil, true
	default:
		return nil, false
	}
}

func statusAllowed(kind Kind, current schedule.Status) bool {
	sources, anyNonTerminal := allowedSources(kind)
	if anyNonTerminal {
		return !current.IsTerminal()
	}
	for _, s := range sources {
		if s == current {
			return true
		}
	}
	return false
}

// HandleEvent validates ev, checks the current status against spec
// §4.7's transition table, applies the transition's side effects, and
// commits all of it in one transaction.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) error {
	if err := h.validate.Struct(ev); err != nil {
		return fmt.Errorf("events: invalid event: %w", err)
	}
	if ev.EventID == uuid.Nil {
		ev.EventID = uuid.New()
	}
	log := logger.FromContext(ctx).With("event_id", ev.EventID.String(), "task_id", ev.TaskID, "kind", string(ev.Kind))
	log.Debug("handling schedule event")

	return h.Store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		detail, err := tx.GetTaskDetail(ctx, ev.TaskID)
		if err != nil {
			return err
		}
		if detail == nil || detail.Schedule == nil {
			return schederr.New(nil, schederr.InvalidEventTransition, map[string]any{
				"task_id": ev.TaskID, "reason": "no schedule exists for this task",
			})
		}
		current := detail.Schedule.Status
		if !statusAllowed(ev.Kind, current) {
			return schederr.New(nil, schederr.InvalidEventTransition, map[string]any{
				"task_id": ev.TaskID, "event": string(ev.Kind), "current_status": string(current),
			})
		}

		switch ev.Kind {
		case ClockIn:
			return h.handleClockIn(ctx, tx, detail, ev)
		case ClockOut:
			return h.handleClockOut(ctx, tx, detail, ev)
		case Pause:
			return h.handlePause(ctx, tx, detail, ev)
		case OnHold:
			return h.handleOnHold(ctx, tx, detail, ev)
		case Resume:
			return h.handleResume(ctx, tx, detail, ev)
		case Complete:
			return h.handleComplete(ctx, tx, detail, ev)
		case Skip:
			return h.handleSkip(ctx, tx, detail, ev)
		case ManualReschedule:
			return h.handleManualReschedule(ctx, tx, detail, ev)
		default:
			return schederr.New(nil, schederr.InvalidEventTransition, map[string]any{"event": string(ev.Kind)})
		}
	})
}

// handleClockIn opens a new progress entry at ev.Timestamp, carrying
// forward accumulated minutes and actual_start when resuming from Paused
// (spec §4.7's clock_in row).
func (h *Handler) handleClockIn(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	var carried float64
	resuming := detail.Schedule.Status == schedule.StatusPaused
	if resuming && len(detail.Progress) > 0 {
		carried = detail.Progress[len(detail.Progress)-1].AccumulatedMinutes
	}
	entry := progress.Open(ev.TaskID, ev.Timestamp, carried)
	if err := tx.InsertProgress(ctx, entry); err != nil {
		return err
	}

	detail.Schedule.Status = schedule.StatusInProgress
	if detail.Schedule.ActualStart == nil {
		t := ev.Timestamp
		detail.Schedule.ActualStart = &t
	}
	return tx.WriteSchedule(ctx, detail.Schedule)
}

// handleClockOut routes to one of spec §4.7's three clock_out branches
// based on the reported completion and carry-over flag.
func (h *Handler) handleClockOut(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	pct := 0.0
	if ev.Details.CompletedPercentage != nil {
		pct = *ev.Details.CompletedPercentage
	}
	switch {
	case pct >= 100:
		return h.completeTask(ctx, tx, detail, ev)
	case ev.Details.CarryOver || ev.Details.RemainingHours != nil:
		return h.carryOverClockOut(ctx, tx, detail, ev)
	default:
		return h.pauseClockOut(ctx, tx, detail, ev, pct)
	}
}

func (h *Handler) closeLatestProgress(ctx context.Context, tx store.Store, detail *store.TaskDetail, at time.Time, plannedDurationMinutes float64) (*progress.Entry, error) {
	if len(detail.Progress) == 0 {
		return nil, nil
	}
	entry := detail.Progress[len(detail.Progress)-1]
	entry.Close(at, plannedDurationMinutes)
	if err := tx.UpdateProgress(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// pauseClockOut closes the open progress entry and recomputes completion
// from accumulated minutes (spec §4.7, "clock_out (percent<100, in-hours,
// no carry)").
func (h *Handler) pauseClockOut(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event, _ float64) error {
	plannedMinutes := detail.Schedule.PlannedEnd.Sub(detail.Schedule.PlannedStart).Minutes()
	if _, err := h.closeLatestProgress(ctx, tx, detail, ev.Timestamp, plannedMinutes); err != nil {
		return err
	}
	detail.Schedule.Status = schedule.StatusPaused
	return tx.WriteSchedule(ctx, detail.Schedule)
}

// carryOverClockOut splits the task at ev.Timestamp and carries the
// remaining hours to the next working day (spec §4.7, "clock_out
// (end-of-day or carry_over flag)").
func (h *Handler) carryOverClockOut(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	plannedMinutes := detail.Schedule.PlannedEnd.Sub(detail.Schedule.PlannedStart).Minutes()
	if _, err := h.closeLatestProgress(ctx, tx, detail, ev.Timestamp, plannedMinutes); err != nil {
		return err
	}
	remaining := 0.0
	if ev.Details.RemainingHours != nil {
		remaining = *ev.Details.RemainingHours
	}
	resumePoint := h.Calendar.NextWorkingInstant(ev.Timestamp)
	if err := h.Repair.Split(ctx, tx, ev.TaskID, ev.Timestamp, resumePoint, remaining); err != nil {
		return err
	}
	sched, err := tx.GetSchedule(ctx, ev.TaskID)
	if err != nil {
		return err
	}
	sched.Status = schedule.StatusPaused
	return tx.WriteSchedule(ctx, sched)
}

// completeTask sets actual_end, marks the task Completed, and triggers a
// full reschedule preserving every terminal and in-progress task (spec
// §4.7's clock_out percent>=100 and complete rows share this effect).
func (h *Handler) completeTask(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	t := ev.Timestamp
	detail.Schedule.ActualEnd = &t
	detail.Schedule.Status = schedule.StatusCompleted
	if err := tx.WriteSchedule(ctx, detail.Schedule); err != nil {
		return err
	}
	return h.Repair.FullReschedule(ctx, tx, h.preserveTerminalAndInProgress(ctx, tx))
}

func (h *Handler) handleComplete(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	return h.completeTask(ctx, tx, detail, ev)
}

// handleSkip logs the skip and triggers a full reschedule, same preserve
// policy as complete (spec §4.7's skip row).
func (h *Handler) handleSkip(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	detail.Schedule.Status = schedule.StatusSkipped
	if err := tx.WriteSchedule(ctx, detail.Schedule); err != nil {
		return err
	}
	return h.Repair.FullReschedule(ctx, tx, h.preserveTerminalAndInProgress(ctx, tx))
}

// preserveTerminalAndInProgress builds the preserve set spec §4.7
// requires for complete/skip's full reschedule: every task already
// terminal or in progress keeps its current window.
func (h *Handler) preserveTerminalAndInProgress(ctx context.Context, tx store.Store) map[int64]bool {
	preserve := map[int64]bool{}
	tasks, err := tx.ListSchedulableTasks(ctx, nil)
	if err != nil {
		return preserve
	}
	for _, t := range tasks {
		sched, err := tx.GetSchedule(ctx, t.ID)
		if err != nil || sched == nil {
			continue
		}
		if sched.Status.IsTerminal() || sched.Status == schedule.StatusInProgress {
			preserve[t.ID] = true
		}
	}
	return preserve
}

// handlePause appends a pause entry; a short break (within both
// thresholds) leaves the schedule untouched, otherwise the remaining
// duration shifts past the break and cascades (spec §4.7's two pause
// rows).
func (h *Handler) handlePause(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	duration := 0.0
	if ev.Details.DurationMinutes != nil {
		duration = *ev.Details.DurationMinutes
	}
	cumulative := cumulativeTodayMinutes(detail.Pauses, ev.Timestamp)

	entry := &pause.Entry{TaskID: ev.TaskID, StartTime: ev.Timestamp, Reason: ev.Details.Reason}
	end := ev.Timestamp.Add(time.Duration(duration) * time.Minute)
	entry.Close(end)
	if err := tx.InsertPause(ctx, entry); err != nil {
		return err
	}

	if pause.IsShortBreak(duration, cumulative) {
		return nil // no schedule change
	}

	worked := detail.Progress
	var workedMinutes float64
	if len(worked) > 0 {
		workedMinutes = worked[len(worked)-1].AccumulatedMinutes
	}
	plannedMinutes := detail.Schedule.PlannedEnd.Sub(detail.Schedule.PlannedStart).Minutes()
	remainingHours := (plannedMinutes - workedMinutes) / 60
	if remainingHours < 0 {
		remainingHours = 0
	}

	newStart := h.Calendar.NextWorkingInstant(end)
	detail.Schedule.PlannedEnd = newStart.Add(time.Duration(remainingHours * float64(time.Hour)))
	if err := tx.WriteSchedule(ctx, detail.Schedule); err != nil {
		return err
	}
	return h.Repair.Cascade(ctx, tx, ev.TaskID)
}

func cumulativeTodayMinutes(pauses []*pause.Entry, at time.Time) float64 {
	var total float64
	for _, p := range pauses {
		if sameDay(p.StartTime, at) {
			total += p.DurationMinutes
		}
	}
	return total
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// handleOnHold opens an is_on_hold pause entry and blocks every
// transitive descendant (spec §4.7's on_hold row). Descendant blocking
// walks the dependency graph directly since it is a pure status flip, not
// a span change the Repairer needs to own.
func (h *Handler) handleOnHold(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	entry := &pause.Entry{TaskID: ev.TaskID, StartTime: ev.Timestamp, Reason: ev.Details.Reason, IsOnHold: true}
	if err := tx.InsertPause(ctx, entry); err != nil {
		return err
	}
	detail.Schedule.Status = schedule.StatusOnHold
	if err := tx.WriteSchedule(ctx, detail.Schedule); err != nil {
		return err
	}
	return h.setDescendantStatus(ctx, tx, ev.TaskID, schedule.StatusBlocked)
}

// handleResume closes the on-hold entry, recomputes planned_end from the
// remaining duration, unblocks descendants, and cascades (spec §4.7's
// resume row).
func (h *Handler) handleResume(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	if len(detail.Pauses) > 0 {
		last := detail.Pauses[len(detail.Pauses)-1]
		if last.IsOnHold && last.EndTime == nil {
			last.Close(ev.Timestamp)
			if err := tx.UpdatePause(ctx, last); err != nil {
				return err
			}
		}
	}

	var workedMinutes float64
	if len(detail.Progress) > 0 {
		workedMinutes = detail.Progress[len(detail.Progress)-1].AccumulatedMinutes
	}
	plannedMinutes := detail.Schedule.PlannedEnd.Sub(detail.Schedule.PlannedStart).Minutes()
	remainingHours := (plannedMinutes - workedMinutes) / 60
	if remainingHours < 0 {
		remainingHours = 0
	}

	newStart := h.Calendar.NextWorkingInstant(ev.Timestamp)
	detail.Schedule.Status = schedule.StatusInProgress
	detail.Schedule.PlannedEnd = newStart.Add(time.Duration(remainingHours * float64(time.Hour)))
	if err := tx.WriteSchedule(ctx, detail.Schedule); err != nil {
		return err
	}
	if err := h.setDescendantStatus(ctx, tx, ev.TaskID, schedule.StatusScheduled); err != nil {
		return err
	}
	return h.Repair.Cascade(ctx, tx, ev.TaskID)
}

// setDescendantStatus walks the dependency graph's Dependents edges
// transitively and writes status to every reachable task's schedule.
func (h *Handler) setDescendantStatus(ctx context.Context, tx store.Store, taskID int64, status schedule.Status) error {
	deps, err := tx.ListDependencies(ctx, nil)
	if err != nil {
		return err
	}
	bySuccessorOfPredecessor := map[int64][]int64{}
	for _, d := range deps {
		bySuccessorOfPredecessor[d.PredecessorID] = append(bySuccessorOfPredecessor[d.PredecessorID], d.SuccessorID)
	}
	visited := map[int64]bool{taskID: true}
	var walk func(id int64) error
	walk = func(id int64) error {
		for _, depID := range bySuccessorOfPredecessor[id] {
			if visited[depID] {
				continue
			}
			visited[depID] = true
			sched, err := tx.GetSchedule(ctx, depID)
			if err != nil {
				return err
			}
			if sched == nil || sched.Status.IsTerminal() {
				continue
			}
			sched.Status = status
			if err := tx.WriteSchedule(ctx, sched); err != nil {
				return err
			}
			if err := walk(depID); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(taskID)
}

// handleManualReschedule writes the requested span verbatim (no
// working-hour clamp), updates the task's estimated_hours to match, and
// cascades dependents (spec §4.7's manual_reschedule row).
func (h *Handler) handleManualReschedule(ctx context.Context, tx store.Store, detail *store.TaskDetail, ev Event) error {
	if ev.Details.NewStart == nil || ev.Details.NewEnd == nil {
		return schederr.New(nil, schederr.InvalidEventTransition, map[string]any{
			"task_id": ev.TaskID, "reason": "manual_reschedule requires new_start and new_end",
		})
	}
	detail.Schedule.PlannedStart = *ev.Details.NewStart
	detail.Schedule.PlannedEnd = *ev.Details.NewEnd
	if err := tx.WriteSchedule(ctx, detail.Schedule); err != nil {
		return err
	}
	hours := ev.Details.NewEnd.Sub(*ev.Details.NewStart).Hours()
	if err := tx.UpdateTaskDuration(ctx, ev.TaskID, hours); err != nil {
		return err
	}
	return h.Repair.Cascade(ctx, tx, ev.TaskID)
}
