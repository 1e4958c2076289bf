package solver

import (
	"fmt"
	"sort"

	"github.com/mdriyaz-a/RSO/engine/domain/resource"
	"github.com/mdriyaz-a/RSO/engine/scheduler/model"
	"github.com/mdriyaz-a/RSO/engine/timeline"
)

// topologicalOrder runs Kahn's algorithm over the precedence edges plus
// synthetic phase-order edges (every task in phase p before every task in
// the immediately following phase q), breaking ties by (priority desc,
// TaskID asc) so higher-priority tasks are offered earlier slots first —
// the ordering heuristic standing in for §4.3's soft-priority objective.
// Returns ok=false if the combined edge set is cyclic.
func topologicalOrder(m *model.Model) ([]int64, bool) {
	indegree := make(map[int64]int, len(m.Tasks))
	adjacency := make(map[int64][]int64)
	for _, t := range m.Tasks {
		indegree[t.TaskID] = 0
	}
	addEdge := func(from, to int64) {
		adjacency[from] = append(adjacency[from], to)
		indegree[to]++
	}
	for _, p := range m.Precedences {
		addEdge(p.PredecessorID, p.SuccessorID)
	}
	for _, pc := range m.PhaseConstraints() {
		for _, a := range m.Tasks {
			if a.Phase != pc.PrecedingPhase {
				continue
			}
			for _, b := range m.Tasks {
				if b.Phase == pc.Phase {
					addEdge(a.TaskID, b.TaskID)
				}
			}
		}
	}

	ready := make([]int64, 0, len(m.Tasks))
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	priorityOf := make(map[int64]int, len(m.Tasks))
	for _, t := range m.Tasks {
		priorityOf[t.TaskID] = int(t.Priority)
	}
	sortReady := func() {
		sort.Slice(ready, func(i, j int) bool {
			if priorityOf[ready[i]] != priorityOf[ready[j]] {
				return priorityOf[ready[i]] > priorityOf[ready[j]]
			}
			return ready[i] < ready[j]
		})
	}
	sortReady()

	order := make([]int64, 0, len(m.Tasks))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, neighbor := range adjacency[next] {
			indegree[neighbor]--
			if indegree[neighbor] == 0 {
				ready = append(ready, neighbor)
			}
		}
		sortReady()
	}
	if len(order) != len(m.Tasks) {
		return nil, false
	}
	return order, true
}

type packResult struct {
	spans    map[int64]Span
	makespan int
}

// pack runs the serial schedule generation scheme over order: for each
// task, compute the earliest start honoring precedence and phase anchors
// (model.Precedence.RequiredAnchorFor), then slide forward to the
// earliest instant every demanded resource pool has capacity
// (timeline.Profile), per spec §4.3's resource cumulative constraints.
// Preserved tasks are pinned to their fixed window instead. Returns nil
// if a task cannot fit within the model's horizon, or if order places a
// task before one of its predecessors or before a task of the preceding
// phase (infeasible for this order).
func pack(m *model.Model, order []int64) *packResult {
	starts := make(map[int64]int, len(m.Tasks))
	ends := make(map[int64]int, len(m.Tasks))
	phaseEnd := make(map[string]int)

	predByTaskAsSuccessor := make(map[int64][]*model.Precedence)
	for _, p := range m.Precedences {
		predByTaskAsSuccessor[p.SuccessorID] = append(predByTaskAsSuccessor[p.SuccessorID], p)
	}
	demandByTask := make(map[int64][]*model.ResourceDemand)
	for _, d := range m.Demands {
		demandByTask[d.TaskID] = append(demandByTask[d.TaskID], d)
	}
	profiles := make(map[string]*timeline.Profile)
	profileFor := func(key string) *timeline.Profile {
		p, ok := profiles[key]
		if !ok {
			p = timeline.NewProfile(nil)
			profiles[key] = p
		}
		return p
	}
	capacityFor := m.Capacities

	taskVars := make(map[int64]*model.TaskVar, len(m.Tasks))
	for _, t := range m.Tasks {
		taskVars[t.TaskID] = t
	}

	// phaseIndex for ordering lookups.
	phaseOrderIndex := make(map[string]int)
	for i, ph := range m.PhaseOrder {
		phaseOrderIndex[ph] = i
	}
	unplacedInPhase := make(map[string]int)
	for _, t := range m.Tasks {
		unplacedInPhase[t.Phase]++
	}

	for _, id := range order {
		tv := taskVars[id]
		unplacedInPhase[tv.Phase]--
		if tv.Preserved != nil {
			starts[id] = tv.Preserved.Start
			ends[id] = tv.Preserved.End
			phaseEnd[tv.Phase] = maxInt(phaseEnd[tv.Phase], ends[id])
			reserveDemand(demandByTask[id], profileFor, starts[id], ends[id])
			continue
		}

		earliest := 0
		if idx, ok := phaseOrderIndex[tv.Phase]; ok && idx > 0 {
			if unplacedInPhase[m.PhaseOrder[idx-1]] > 0 {
				return nil
			}
			earliest = maxInt(earliest, phaseEnd[m.PhaseOrder[idx-1]])
		}
		for _, p := range predByTaskAsSuccessor[id] {
			if _, placed := ends[p.PredecessorID]; !placed {
				return nil
			}
			predStart, predEnd := starts[p.PredecessorID], ends[p.PredecessorID]
			predAnchor := model.PredecessorAnchor(p.Type, predStart, predEnd)
			requiredAnchor := p.RequiredAnchorFor(predAnchor)
			if model.SuccessorAnchorIsEnd(p.Type) {
				earliest = maxInt(earliest, requiredAnchor-tv.Duration)
			} else {
				earliest = maxInt(earliest, requiredAnchor)
			}
		}

		start := earliest
		for _, d := range demandByTask[id] {
			prof := profileFor(poolProfileKey(d.Pool))
			capacity := capacityFor.Capacity(d.Pool)
			start = maxInt(start, prof.NextFeasibleStart(earliest, tv.Duration, d.Demand, capacity))
		}
		// Re-check: packing against one pool may have moved start past
		// another pool's feasibility window; iterate until stable.
		for changed := true; changed; {
			changed = false
			for _, d := range demandByTask[id] {
				prof := profileFor(poolProfileKey(d.Pool))
				capacity := capacityFor.Capacity(d.Pool)
				candidate := prof.NextFeasibleStart(start, tv.Duration, d.Demand, capacity)
				if candidate > start {
					start = candidate
					changed = true
				}
			}
		}

		end := start + tv.Duration
		if end > m.Horizon {
			return nil
		}
		starts[id] = start
		ends[id] = end
		phaseEnd[tv.Phase] = maxInt(phaseEnd[tv.Phase], end)
		reserveDemand(demandByTask[id], profileFor, start, end)
	}

	spans := make(map[int64]Span, len(order))
	makespan := 0
	for id := range starts {
		spans[id] = Span{Start: starts[id], End: ends[id]}
		if ends[id] > makespan {
			makespan = ends[id]
		}
	}
	return &packResult{spans: spans, makespan: makespan}
}

func reserveDemand(demands []*model.ResourceDemand, profileFor func(string) *timeline.Profile, start, end int) {
	for _, d := range demands {
		profileFor(poolProfileKey(d.Pool)).Add(start, end, d.Demand)
	}
}

func poolProfileKey(p resource.PoolKey) string { return fmt.Sprintf("%s:%s", p.Kind, p.Name) }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
