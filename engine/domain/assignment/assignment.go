// Package assignment defines the Assignment entity (spec §3) and the
// overlap/conflict checks the Resource Assigner (C6) uses both to filter
// candidates and to defensively re-validate a committed assignment set
// (spec §4.6, "validate_resource_assignments").
package assignment

import "time"

// EntityKind distinguishes an employee assignment from an equipment
// assignment — the two pools are validated independently.
type EntityKind string

const (
	EntityEmployee  EntityKind = "employee"
	EntityEquipment EntityKind = "equipment"
)

// Config is one binding of an employee or equipment unit to a task.
type Config struct {
	ID           int64      `json:"id"            db:"id"`
	TaskID       int64      `json:"task_id"       db:"task_id"`
	EntityKind   EntityKind `json:"entity_kind"   db:"entity_kind"`
	EntityID     int64      `json:"entity_id"     db:"entity_id"`
	PlannedStart time.Time  `json:"planned_start" db:"planned_start"`
	PlannedEnd   time.Time  `json:"planned_end"   db:"planned_end"`
	IsInitial    bool       `json:"is_initial"    db:"is_initial"`
	IsModified   bool       `json:"is_modified"   db:"is_modified"`
}

// Overlaps reports whether two planned windows conflict under spec
// §4.6 step 2's half-open semantics: boundary touch (a.end <= b.start or
// b.end <= a.start) is allowed, everything else that intersects conflicts.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(bStart) || !bEnd.After(aStart) {
		return false
	}
	return true
}

// Conflict is a detected pair of overlapping assignments of the same
// entity.
type Conflict struct {
	EntityKind EntityKind
	EntityID   int64
	First      *Config
	Second     *Config
}

// DetectConflicts scans assignments for any pair of the same
// employee/equipment bound to overlapping planned spans, per spec §4.6's
// defensive post-pass validation ("validate_resource_assignments" in
// SUPPLEMENTED FEATURES). Terminal-task assignments should already be
// excluded by the caller before calling this.
func DetectConflicts(assignments []*Config) []Conflict {
	byEntity := make(map[EntityKind]map[int64][]*Config)
	for _, a := range assignments {
		if byEntity[a.EntityKind] == nil {
			byEntity[a.EntityKind] = make(map[int64][]*Config)
		}
		byEntity[a.EntityKind][a.EntityID] = append(byEntity[a.EntityKind][a.EntityID], a)
	}

	var conflicts []Conflict
	for kind, byID := range byEntity {
		for entityID, list := range byID {
			for i := 0; i < len(list); i++ {
				for j := i + 1; j < len(list); j++ {
					a, b := list[i], list[j]
					if Overlaps(a.PlannedStart, a.PlannedEnd, b.PlannedStart, b.PlannedEnd) {
						conflicts = append(conflicts, Conflict{
							EntityKind: kind,
							EntityID:   entityID,
							First:      a,
							Second:     b,
						})
					}
				}
			}
		}
	}
	return conflicts
}
