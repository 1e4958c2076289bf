// Package model implements the CP Model Builder (C3, spec §4.3):
// translating domain entities into the variable/constraint shapes the
// Solver Driver (C4) searches over. No CP-SAT binding exists in this
// ecosystem (see DESIGN.md); this package builds a plain in-memory model
// the bespoke solver interprets directly rather than a solver-specific
// program representation.
package model

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mdriyaz-a/RSO/engine/calendar"
	"github.com/mdriyaz-a/RSO/engine/domain/dependency"
	"github.com/mdriyaz-a/RSO/engine/domain/resource"
	"github.com/mdriyaz-a/RSO/engine/domain/task"
	"github.com/mdriyaz-a/RSO/engine/schederr"
)

// Window fixes a preserved task's span in WTU (spec §4.3 "preserved
// tasks").
type Window struct {
	Start, End int
}

// TaskVar is one task's interval variable: Start/End range over
// [0, Horizon], End = Start + Duration.
type TaskVar struct {
	TaskID      int64
	Duration    int
	Phase       string
	Priority    task.Priority
	Preemptable bool
	Preserved   *Window
}

// Precedence is one dependency translated into its anchor type and lag
// bound family (spec §4.3's piecewise table plus fallback linear bound).
type Precedence struct {
	SuccessorID   int64
	PredecessorID int64
	Type          dependency.Type
	LagTable      []calendar.LagCheckpoint
	FallbackUnits int
	ExactDayUnits int
	IsExactDay    bool
}

// ResourceDemand is one task's (possibly clamped) demand against one
// pool.
type ResourceDemand struct {
	TaskID int64
	Pool   resource.PoolKey
	Demand int
}

// PhaseConstraint says every task in Phase q must start no earlier than
// the end of every task in the phase immediately preceding it.
type PhaseConstraint struct {
	PrecedingPhase string
	Phase          string
}

// Model is the complete constraint program C4 searches over.
type Model struct {
	Horizon      int
	Tasks        []*TaskVar
	Precedences  []*Precedence
	PhaseOrder   []string // phases in fixed total order
	Demands      []*ResourceDemand
	Capacities   *resource.CapacityTable
	SoftPriority map[int64]int // TaskID -> soft deadline bound (H/4, H/2, ...)
	Warnings     []*schederr.Error
}

// TaskByID returns the task variable for id, or nil.
func (m *Model) TaskByID(id int64) *TaskVar {
	for _, t := range m.Tasks {
		if t.TaskID == id {
			return t
		}
	}
	return nil
}

// PhaseConstraints derives adjacent-phase pairs from PhaseOrder (spec
// §4.3's phase constraints).
func (m *Model) PhaseConstraints() []PhaseConstraint {
	out := make([]PhaseConstraint, 0, len(m.PhaseOrder))
	for i := 1; i < len(m.PhaseOrder); i++ {
		out = append(out, PhaseConstraint{PrecedingPhase: m.PhaseOrder[i-1], Phase: m.PhaseOrder[i]})
	}
	return out
}

// lagTableKey identifies a (horizon, sampleCount, lagHours) triple a
// precedence's lag table was built for — many dependencies in a real
// project share the same lag (0, 24h, 48h handoffs are common), so
// lagCache avoids rebuilding an identical table per dependency.
type lagTableKey struct {
	horizon     int
	sampleCount int
	lagHours    float64
}

// Builder constructs a Model from domain entities. It holds the calendar
// and default sample count used for piecewise lag tables (spec §4.3's
// "S ≈ 24 checkpoints"), plus a bounded cache of tables already built for a
// given (horizon, sampleCount, lagHours) triple.
type Builder struct {
	Calendar    *calendar.Calendar
	SampleCount int
	lagCache    *lru.Cache[lagTableKey, []calendar.LagCheckpoint]
}

// NewBuilder returns a Builder with spec §4.3's default sample count.
func NewBuilder(cal *calendar.Calendar) *Builder {
	cache, _ := lru.New[lagTableKey, []calendar.LagCheckpoint](256)
	return &Builder{Calendar: cal, SampleCount: 24, lagCache: cache}
}

// lagTable returns the cached lag table for key, building and storing it on
// a miss.
func (b *Builder) lagTable(horizon int, lagHours float64) []calendar.LagCheckpoint {
	key := lagTableKey{horizon: horizon, sampleCount: b.SampleCount, lagHours: lagHours}
	if b.lagCache != nil {
		if table, ok := b.lagCache.Get(key); ok {
			return table
		}
	}
	table := b.Calendar.BuildLagTable(horizon, b.SampleCount, lagHours)
	if b.lagCache != nil {
		b.lagCache.Add(key, table)
	}
	return table
}

// BuildInput bundles everything Build needs from the domain layer.
type BuildInput struct {
	Tasks         []*task.Config
	Dependencies  []*dependency.Config
	Requirements  []*resource.Requirement
	Capacities    *resource.CapacityTable
	PhaseOrder    []string
	HorizonDays   int
	ScaleFactor   int
	PreserveSet   map[int64]Window
}

// Build translates domain entities into a Model, clamping over-demand and
// recording warnings rather than rejecting the model (spec §4.3's
// resource-constraint clamp rule).
func (b *Builder) Build(in BuildInput) (*Model, error) {
	horizon := b.Calendar.Horizon(in.HorizonDays)
	m := &Model{
		Horizon:      horizon,
		PhaseOrder:   in.PhaseOrder,
		Capacities:   in.Capacities,
		SoftPriority: make(map[int64]int),
	}

	for _, t := range in.Tasks {
		tv := &TaskVar{
			TaskID:      t.ID,
			Duration:    t.DurationUnits(in.ScaleFactor),
			Phase:       t.Phase,
			Priority:    t.Priority,
			Preemptable: t.Preemptable,
		}
		if w, ok := in.PreserveSet[t.ID]; ok {
			win := w
			tv.Preserved = &win
		}
		m.Tasks = append(m.Tasks, tv)
		switch t.Priority {
		case task.PriorityHigh:
			m.SoftPriority[t.ID] = horizon / 4
		case task.PriorityMedium:
			m.SoftPriority[t.ID] = horizon / 2
		}
	}
	sort.Slice(m.Tasks, func(i, j int) bool { return m.Tasks[i].TaskID < m.Tasks[j].TaskID })

	for _, d := range in.Dependencies {
		m.Precedences = append(m.Precedences, b.buildPrecedence(d, horizon))
	}

	for _, req := range in.Requirements {
		for pool, demand := range req.Counts {
			clamped, didClamp := in.Capacities.ClampDemand(pool, demand)
			if didClamp {
				m.Warnings = append(m.Warnings, schederr.New(nil, schederr.CandidateUnavailable, map[string]any{
					"task_id":  req.TaskID,
					"pool":     pool.Name,
					"demand":   demand,
					"capacity": clamped,
				}))
			}
			m.Demands = append(m.Demands, &ResourceDemand{TaskID: req.TaskID, Pool: pool, Demand: clamped})
		}
	}

	return m, nil
}

// buildPrecedence samples the horizon per spec §4.3 to build the
// piecewise lag table, plus the fallback linear bound and the
// exact-day-multiple special case.
func (b *Builder) buildPrecedence(d *dependency.Config, horizon int) *Precedence {
	p := &Precedence{
		SuccessorID:   d.SuccessorID,
		PredecessorID: d.PredecessorID,
		Type:          d.Type,
		LagTable:      b.lagTable(horizon, d.LagHours),
		FallbackUnits: b.Calendar.FallbackLagUnits(d.LagHours),
	}
	if days, ok := calendar.IsExactDayMultiple(d.LagHours); ok {
		p.IsExactDay = true
		p.ExactDayUnits = days * b.Calendar.UnitsPerDay()
	}
	return p
}

// RequiredAnchorFor returns the minimum anchor_i value this precedence
// constraint requires, given the predecessor anchor's resolved WTU value
// (spec §4.3's reified-constraint evaluation: pick the table entry whose
// sample is closest to predecessorAnchor, falling back to the linear
// bound, then taking the tighter of the two — except the exact-day case,
// which is always authoritative).
func (p *Precedence) RequiredAnchorFor(predecessorAnchor int) int {
	if p.IsExactDay {
		return predecessorAnchor + p.ExactDayUnits
	}
	bound := predecessorAnchor + p.FallbackUnits
	best := bound
	bestDist := -1
	for _, cp := range p.LagTable {
		dist := predecessorAnchor - cp.Sample
		if dist < 0 {
			dist = -dist
		}
		if dist <= cp.HalfInterval && (bestDist == -1 || dist < bestDist) {
			bestDist = dist
			best = cp.MinAnchor
		}
	}
	if bound > best {
		best = bound
	}
	return best
}

// PredecessorAnchor returns the WTU instant dependency type t anchors the
// predecessor to, given that task's (start, end).
func PredecessorAnchor(t dependency.Type, start, end int) int {
	switch t {
	case dependency.FinishToStart, dependency.FinishToFinish:
		return end
	default: // SS, SF
		return start
	}
}

// SuccessorAnchorIsEnd reports whether this dependency type constrains
// the successor's End rather than its Start (FF, SF).
func SuccessorAnchorIsEnd(t dependency.Type) bool {
	return t == dependency.FinishToFinish || t == dependency.StartToFinish
}
