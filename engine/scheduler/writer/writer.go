// Package writer implements the Schedule Writer & Validator (C5, spec
// §4.5): an independent post-solve capacity check, plus the
// SUPPLEMENTED validate_schedule re-validation of dependency anchors and
// phase order (original_source/src/main.py:813), before committing
// planned spans through the Store Adapter.
package writer

import (
	"context"
	"sort"

	"github.com/mdriyaz-a/RSO/engine/calendar"
	"github.com/mdriyaz-a/RSO/engine/domain/resource"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/domain/task"
	"github.com/mdriyaz-a/RSO/engine/schederr"
	"github.com/mdriyaz-a/RSO/engine/scheduler/model"
	"github.com/mdriyaz-a/RSO/engine/scheduler/solver"
	"github.com/mdriyaz-a/RSO/engine/store"
)

// Validator runs the independent post-solve checks of spec §4.5 and the
// SUPPLEMENTED validate_schedule pass.
type Validator struct{}

// CheckCapacity re-derives, independently of the solver's own packing,
// whether any WTU has a resource pool over-allocated (spec §4.5 / §8
// invariant 2). A back-to-back boundary (end_a == start_b) is not a
// conflict because intervals are half-open.
func (Validator) CheckCapacity(spans map[int64]solver.Span, demands []*model.ResourceDemand, capacities *resource.CapacityTable) error {
	type event struct {
		at    int
		delta int
	}
	byPool := make(map[resource.PoolKey][]event)
	for _, d := range demands {
		span, ok := spans[d.TaskID]
		if !ok {
			continue
		}
		byPool[d.Pool] = append(byPool[d.Pool], event{at: span.Start, delta: d.Demand}, event{at: span.End, delta: -d.Demand})
	}
	for pool, events := range byPool {
		sort.Slice(events, func(i, j int) bool {
			if events[i].at != events[j].at {
				return events[i].at < events[j].at
			}
			// At a shared boundary instant, apply end events (delta < 0)
			// before start events (delta > 0), so a back-to-back pair
			// (end_a == start_b) never reads a transient over-capacity
			// usage between the two.
			return events[i].delta < events[j].delta
		})
		usage := 0
		cap := capacities.Capacity(pool)
		for _, e := range events {
			usage += e.delta
			if usage > cap {
				return schederr.New(nil, schederr.CapacityViolation, map[string]any{
					"pool": pool.Name, "at": e.at, "usage": usage, "capacity": cap,
				})
			}
		}
	}
	return nil
}

// CheckDependencies re-derives each precedence's anchor inequality from
// the solved spans and fails if any predecessor's anchor was violated
// (the SUPPLEMENTED validate_schedule dependency re-check).
func (Validator) CheckDependencies(spans map[int64]solver.Span, precedences []*model.Precedence) error {
	for _, p := range precedences {
		predSpan, ok1 := spans[p.PredecessorID]
		succSpan, ok2 := spans[p.SuccessorID]
		if !ok1 || !ok2 {
			continue
		}
		predAnchor := model.PredecessorAnchor(p.Type, predSpan.Start, predSpan.End)
		required := p.RequiredAnchorFor(predAnchor)
		succAnchor := succSpan.Start
		if model.SuccessorAnchorIsEnd(p.Type) {
			succAnchor = succSpan.End
		}
		if succAnchor < required {
			return schederr.New(nil, schederr.InfeasibleModel, map[string]any{
				"reason":      "dependency anchor violated",
				"successor":   p.SuccessorID,
				"predecessor": p.PredecessorID,
				"required":    required,
				"actual":      succAnchor,
			})
		}
	}
	return nil
}

// CheckPhaseOrder re-derives spec §8 invariant 4: every phase q task
// starts no earlier than every phase p task ends, for p immediately
// preceding q.
func (Validator) CheckPhaseOrder(spans map[int64]solver.Span, tasks []*task.Config, phaseOrder []string) error {
	phaseEnd := make(map[string]int)
	phaseStart := make(map[string]int)
	for _, t := range tasks {
		span, ok := spans[t.ID]
		if !ok {
			continue
		}
		if e, ok := phaseEnd[t.Phase]; !ok || span.End > e {
			phaseEnd[t.Phase] = span.End
		}
		if s, ok := phaseStart[t.Phase]; !ok || span.Start < s {
			phaseStart[t.Phase] = span.Start
		}
	}
	for i := 1; i < len(phaseOrder); i++ {
		prev, cur := phaseOrder[i-1], phaseOrder[i]
		if phaseStart[cur] < phaseEnd[prev] {
			return schederr.New(nil, schederr.InfeasibleModel, map[string]any{
				"reason": "phase order violated", "preceding_phase": prev, "phase": cur,
			})
		}
	}
	return nil
}

// Writer commits a validated solver result through the Store Adapter.
type Writer struct {
	Validator Validator
	Calendar  *calendar.Calendar
}

// New returns a Writer bound to cal for WTU-to-datetime materialization.
func New(cal *calendar.Calendar) *Writer {
	return &Writer{Calendar: cal}
}

// CommitInput bundles everything Commit needs to validate and persist a
// solver result.
type CommitInput struct {
	Result      *solver.Result
	Demands     []*model.ResourceDemand
	Capacities  *resource.CapacityTable
	Precedences []*model.Precedence
	Tasks       []*task.Config
	PhaseOrder  []string
}

// Commit runs the independent validation suite, then writes each task's
// new planned span within its own transaction, applying the
// status-preservation rule (spec §4.5). On any validation failure,
// nothing is written.
func (w *Writer) Commit(ctx context.Context, st store.Store, in CommitInput) error {
	if err := w.validate(in); err != nil {
		return err
	}
	return st.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		return w.write(ctx, tx, in)
	})
}

// CommitTx is Commit's validation-and-write body run against an
// already-open transaction, for callers (the Local Repair Engine's full
// reschedule) that must commit within the triggering event's own
// transaction rather than opening a nested one (spec §5: a cascade writes
// all affected tasks within the same transaction as the triggering event).
func (w *Writer) CommitTx(ctx context.Context, tx store.Store, in CommitInput) error {
	if err := w.validate(in); err != nil {
		return err
	}
	return w.write(ctx, tx, in)
}

func (w *Writer) validate(in CommitInput) error {
	if err := w.Validator.CheckCapacity(in.Result.Spans, in.Demands, in.Capacities); err != nil {
		return err
	}
	if err := w.Validator.CheckDependencies(in.Result.Spans, in.Precedences); err != nil {
		return err
	}
	return w.Validator.CheckPhaseOrder(in.Result.Spans, in.Tasks, in.PhaseOrder)
}

func (w *Writer) write(ctx context.Context, tx store.Store, in CommitInput) error {
	for _, t := range in.Tasks {
		span, ok := in.Result.Spans[t.ID]
		if !ok {
			continue
		}
		existing, err := tx.GetSchedule(ctx, t.ID)
		if err != nil {
			return err
		}
		rec := &schedule.Record{
			TaskID:       t.ID,
			PlannedStart: w.Calendar.WTUToDatetime(span.Start),
			PlannedEnd:   w.Calendar.WTUToDatetime(span.End),
			Status:       schedule.ResolveCommitStatus(existing),
		}
		if existing != nil {
			rec.ActualStart = existing.ActualStart
			rec.ActualEnd = existing.ActualEnd
		}
		if err := tx.WriteSchedule(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
