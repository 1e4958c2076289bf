// Package assigner implements the Resource Assigner (C6, spec §4.6):
// binding concrete employees and equipment to a committed schedule's
// per-task requirements, respecting skill/category match, availability
// windows, and load balancing — ported from the Python original's
// assign_resources_to_tasks (original_source/src/main.py:2044), with the
// sample-data bootstrapping stripped since this system owns its own
// employees/resources tables via the Store Adapter.
package assigner

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mdriyaz-a/RSO/engine/domain/assignment"
	"github.com/mdriyaz-a/RSO/engine/domain/resource"
	"github.com/mdriyaz-a/RSO/engine/domain/schedule"
	"github.com/mdriyaz-a/RSO/engine/domain/task"
	"github.com/mdriyaz-a/RSO/engine/store"
)

// Candidate is one employee or equipment unit eligible to satisfy a pool.
type Candidate struct {
	EntityID   int64
	EntityKind assignment.EntityKind
}

// normalizedPoolKey lower-cases the pool name so a requirement's
// "Engineering" matches a candidate pool keyed "engineering" (spec §4.6
// step 1, "case-insensitive").
func normalizedPoolKey(k resource.PoolKey) resource.PoolKey {
	return resource.PoolKey{Kind: k.Kind, Name: strings.ToLower(k.Name)}
}

// Input bundles one assignment run's working set. Candidates is keyed by
// normalizedPoolKey — callers may pass raw-cased pool names freely.
type Input struct {
	Tasks        []*task.Config
	Schedules    map[int64]*schedule.Record
	Requirements []*resource.Requirement
	Candidates   map[resource.PoolKey][]Candidate
	// IsModified marks assignments produced by a post-event user edit
	// rather than initial planning (spec §4.6 step 5).
	IsModified bool
}

// Assigner implements spec §4.6's greedy, load-balanced binding pass.
type Assigner struct{}

// Assign walks tasks ordered by (priority desc, planned_start asc) and,
// for each required pool, assigns available candidates up to the
// required count — skipping a requirement silently when no candidate is
// free, per spec §4.6 step 4. Every written assignment is also appended
// through st within one transaction.
func (Assigner) Assign(ctx context.Context, st store.Store, in Input) ([]*assignment.Config, error) {
	reqByTask := make(map[int64]*resource.Requirement, len(in.Requirements))
	for _, r := range in.Requirements {
		reqByTask[r.TaskID] = r
	}

	ordered := make([]*task.Config, len(in.Tasks))
	copy(ordered, in.Tasks)
	sort.Slice(ordered, func(i, j int) bool {
		ti, tj := ordered[i], ordered[j]
		if ti.Priority != tj.Priority {
			return ti.Priority > tj.Priority
		}
		si, sj := in.Schedules[ti.ID], in.Schedules[tj.ID]
		if si == nil || sj == nil {
			return ti.ID < tj.ID
		}
		return si.PlannedStart.Before(sj.PlannedStart)
	})

	var written []*assignment.Config
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		for _, t := range ordered {
			req, ok := reqByTask[t.ID]
			if !ok {
				continue
			}
			sched := in.Schedules[t.ID]
			if sched == nil {
				continue
			}
			for pool, demand := range req.Counts {
				if demand <= 0 {
					continue
				}
				assigned, err := assignPool(ctx, tx, t.ID, pool, demand, sched, in)
				if err != nil {
					return err
				}
				written = append(written, assigned...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// assignPool binds up to demand candidates from pool to task taskID,
// filtering by availability and ordering the remainder by ascending
// current load (spec §4.6 steps 2–3).
func assignPool(ctx context.Context, tx store.Store, taskID int64, pool resource.PoolKey, demand int, sched *schedule.Record, in Input) ([]*assignment.Config, error) {
	candidates := in.Candidates[normalizedPoolKey(pool)]
	if len(candidates) == 0 {
		return nil, nil
	}

	type scored struct {
		candidate Candidate
		load      int
	}
	var available []scored
	for _, c := range candidates {
		active, err := tx.ListActiveAssignmentsForEntity(ctx, c.EntityKind, c.EntityID)
		if err != nil {
			return nil, err
		}
		if !isAvailable(active, sched.PlannedStart, sched.PlannedEnd) {
			continue
		}
		available = append(available, scored{candidate: c, load: len(active)})
	}
	sort.Slice(available, func(i, j int) bool {
		if available[i].load != available[j].load {
			return available[i].load < available[j].load
		}
		return available[i].candidate.EntityID < available[j].candidate.EntityID
	})

	if demand > len(available) {
		demand = len(available) // partial fill; unmet portion is skipped silently
	}

	var written []*assignment.Config
	for i := 0; i < demand; i++ {
		a := &assignment.Config{
			TaskID:       taskID,
			EntityKind:   available[i].candidate.EntityKind,
			EntityID:     available[i].candidate.EntityID,
			PlannedStart: sched.PlannedStart,
			PlannedEnd:   sched.PlannedEnd,
			IsInitial:    !in.IsModified,
			IsModified:   in.IsModified,
		}
		if err := tx.UpsertAssignment(ctx, a); err != nil {
			return nil, err
		}
		written = append(written, a)
	}
	return written, nil
}

// DetectConflicts re-scans a task set's committed assignments for any
// entity double-booked across overlapping non-terminal spans — the
// defensive post-pass of spec §4.6's last paragraph
// ("validate_resource_assignments", main.py:1972). Terminal-status tasks
// are excluded by the caller via the schedules map it supplies.
func (Assigner) DetectConflicts(ctx context.Context, st store.Store, taskIDs []int64, schedules map[int64]*schedule.Record) ([]assignment.Conflict, error) {
	var all []*assignment.Config
	for _, id := range taskIDs {
		if s := schedules[id]; s != nil && s.Status.IsTerminal() {
			continue
		}
		a, err := st.ListAssignments(ctx, id)
		if err != nil {
			return nil, err
		}
		all = append(all, a...)
	}
	return assignment.DetectConflicts(all), nil
}

// isAvailable reports whether none of existing overlaps [start, end),
// per spec §4.6 step 2's boundary-touch-allowed semantics.
func isAvailable(existing []*assignment.Config, start, end time.Time) bool {
	for _, a := range existing {
		if assignment.Overlaps(a.PlannedStart, a.PlannedEnd, start, end) {
			return false
		}
	}
	return true
}
