// Package dependency defines the Dependency entity and the directed-edge
// cycle check spec §3 requires before any write is accepted.
package dependency

import "github.com/mdriyaz-a/RSO/engine/schederr"

// Type is the precedence relation between a dependency's two ends, per
// spec §4.3's anchor table.
type Type string

const (
	FinishToStart  Type = "FS"
	StartToStart   Type = "SS"
	FinishToFinish Type = "FF"
	StartToFinish  Type = "SF"
)

// Config is a directed edge from SuccessorID (depends on) to PredecessorID.
type Config struct {
	ID            int64   `json:"id"             db:"id"`
	SuccessorID   int64   `json:"successor_id"   db:"successor_id"`
	PredecessorID int64   `json:"predecessor_id" db:"predecessor_id"`
	LagHours      float64 `json:"lag_hours"      db:"lag_hours"`
	Type          Type    `json:"type"           db:"type"`
}

// Graph is an adjacency-list view of a dependency set keyed both by
// successor and by predecessor, used for both cycle detection and cascade traversal (engine/repair).
type Graph struct {
	bySuccessor   map[int64][]*Config
	byPredecessor map[int64][]*Config
}

// BuildGraph indexes deps by successor and predecessor for O(1) neighbor
// lookups.
func BuildGraph(deps []*Config) *Graph {
	g := &Graph{
		bySuccessor:   make(map[int64][]*Config),
		byPredecessor: make(map[int64][]*Config),
	}
	for _, d := range deps {
		g.bySuccessor[d.SuccessorID] = append(g.bySuccessor[d.SuccessorID], d)
		g.byPredecessor[d.PredecessorID] = append(g.byPredecessor[d.PredecessorID], d)
	}
	return g
}

// Predecessors returns the dependencies where taskID is the successor.
func (g *Graph) Predecessors(taskID int64) []*Config { return g.bySuccessor[taskID] }

// Dependents returns the dependencies where taskID is the predecessor —
// the edges the cascade in engine/repair walks outward along.
func (g *Graph) Dependents(taskID int64) []*Config { return g.byPredecessor[taskID] }

// DetectCycle runs a DFS with a three-color visited set over the
// successor->predecessor graph and returns schederr.CycleDetected if any
// back edge is found, per spec §3's "the graph must be acyclic" invariant.
func (g *Graph) DetectCycle() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[int64]int)

	var visit func(id int64) bool
	visit = func(id int64) bool {
		color[id] = gray
		for _, d := range g.bySuccessor[id] {
			switch color[d.PredecessorID] {
			case gray:
				return true
			case white:
				if visit(d.PredecessorID) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	nodes := make(map[int64]struct{})
	for successor, edges := range g.bySuccessor {
		nodes[successor] = struct{}{}
		for _, d := range edges {
			nodes[d.PredecessorID] = struct{}{}
		}
	}

	for id := range nodes {
		if color[id] == white {
			if visit(id) {
				return schederr.New(nil, schederr.CycleDetected, map[string]any{"task_id": id})
			}
		}
	}
	return nil
}
