// Package hierarchy builds and validates multi-level task trees from the raw
// task nodes decoded out of an LLM response. The builder assigns identities,
// levels, ordering, and aggregated durations; the validator checks the
// structural invariants (bounded depth, consistent levels, no cycles) without
// ever mutating the forest it is given.
package hierarchy

// RawTask is an untrusted task node as decoded from LLM output. It may be
// arbitrarily deep, incomplete, or invalid; the validator decides.
type RawTask struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Duration     int       `json:"duration"`
	Priority     string    `json:"priority,omitempty"`
	Type         string    `json:"type,omitempty"`
	Dependencies []string  `json:"dependencies,omitempty"`
	Deliverable  string    `json:"deliverable,omitempty"`
	Subtasks     []RawTask `json:"subtasks,omitempty"`
}

// Task is an enriched task node with assigned identity, level, ordering, and
// aggregated duration.
//
// Duration is the literal authored value and is never overwritten.
// AggregatedDuration is the derived bottom-up sum (a leaf's equals its
// Duration). The two are allowed to diverge permanently; downstream consumers
// may depend on either value, so neither is ever reconciled to the other.
type Task struct {
	ID                 string   `json:"id"`
	ProjectID          string   `json:"projectId"`
	ParentTaskID       string   `json:"parentTaskId,omitempty"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Duration           int      `json:"duration"`
	AggregatedDuration int      `json:"aggregatedDuration"`
	Level              int      `json:"level"`
	IsMainTask         bool     `json:"isMainTask"`
	HasSubtasks        bool     `json:"hasSubtasks"`
	OriginalOrder      int      `json:"originalOrder"`
	ModuleType         string   `json:"moduleType,omitempty"`
	Priority           string   `json:"priority,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"`
	Deliverable        string   `json:"deliverable,omitempty"`
	Subtasks           []Task   `json:"subtasks,omitempty"`
}

// Flatten returns every task in the forest in pre-order.
func Flatten(forest []Task) []Task {
	var out []Task
	var walk func(tasks []Task)
	walk = func(tasks []Task) {
		for _, t := range tasks {
			out = append(out, t)
			walk(t.Subtasks)
		}
	}
	walk(forest)
	return out
}

// Relationships derives the childID -> parentID map from a built forest. The
// validator consumes this map independently of the tree shape, so a corrupted
// map can be detected even when the forest itself looks sound.
func Relationships(forest []Task) map[string]string {
	rels := make(map[string]string)
	var walk func(tasks []Task)
	walk = func(tasks []Task) {
		for _, t := range tasks {
			if t.ParentTaskID != "" {
				rels[t.ID] = t.ParentTaskID
			}
			walk(t.Subtasks)
		}
	}
	walk(forest)
	return rels
}
