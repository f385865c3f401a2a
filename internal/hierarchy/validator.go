package hierarchy

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// MaxTaskCount bounds validation cost; a declared count above it is
	// rejected outright.
	MaxTaskCount = 100

	// MaxLevels is the deepest allowed tree: a root plus two levels of
	// nesting (level index 0..2). Anything deeper is an error.
	MaxLevels = 3
)

// Statistics summarizes a forest. They are computed on every validation,
// valid or not, to aid diagnostics.
type Statistics struct {
	TotalTasks        int     `json:"totalTasks"`
	MainTasks         int     `json:"mainTasks"`
	Subtasks          int     `json:"subtasks"`
	SubSubtasks       int     `json:"subSubtasks"`
	TasksWithSubtasks int     `json:"tasksWithSubtasks"`
	TotalDuration     int     `json:"totalDuration"`
	AverageDuration   float64 `json:"averageDuration"`
	RelationshipCount int     `json:"relationshipCount"`
	MaxDepthFound     int     `json:"maxDepthFound"`
}

// ValidationResult is the structural verdict for a built forest. Errors and
// warnings accumulate across the full pass; validation never stops at the
// first violation.
type ValidationResult struct {
	IsValid    bool       `json:"isValid"`
	Errors     []string   `json:"errors"`
	Warnings   []string   `json:"warnings"`
	Statistics Statistics `json:"statistics"`
}

// Validate checks the structural invariants of a built forest against its
// relationship map. declaredTaskCount and declaredMaxDepth are the counts the
// caller believes it built; mismatches against the recomputed values are
// surfaced as warnings, while hard-ceiling violations are errors.
func Validate(forest []Task, relationships map[string]string, declaredTaskCount, declaredMaxDepth int) ValidationResult {
	res := ValidationResult{IsValid: true}

	if declaredTaskCount > MaxTaskCount {
		res.addError("declared task count %d exceeds the maximum of %d", declaredTaskCount, MaxTaskCount)
	}

	flat := Flatten(forest)
	byID := make(map[string]Task, len(flat))

	for _, task := range flat {
		if strings.TrimSpace(task.Title) == "" {
			res.addError("task %s has an empty title", task.ID)
		}
		if task.Duration < 1 {
			res.addError("task %s (%q) has invalid duration %d; must be >= 1", task.ID, task.Title, task.Duration)
		}
		if _, dup := byID[task.ID]; dup {
			res.addError("duplicate task id %s", task.ID)
		}
		byID[task.ID] = task
	}

	for _, childID := range relationshipKeys(relationships) {
		parentID := relationships[childID]
		child, childOK := byID[childID]
		parent, parentOK := byID[parentID]
		switch {
		case !childOK:
			res.addError("relationship references unknown child task %s", childID)
		case !parentOK:
			res.addError("relationship references unknown parent task %s for child %s", parentID, childID)
		case child.Level != parent.Level+1:
			res.addError("task %s (%q) declares level %d but its parent %q is level %d",
				child.ID, child.Title, child.Level, parent.Title, parent.Level)
		}
	}

	maxDepth := recomputeDepth(forest)
	if maxDepth > MaxLevels {
		res.addError("hierarchy is %d levels deep, exceeding the maximum depth of %d", maxDepth, MaxLevels)
	}

	cycles := DetectCycles(relationships)
	for _, cycle := range cycles {
		res.addError("circular dependency detected: %s", strings.Join(cycle, " -> "))
	}

	if declaredTaskCount != len(flat) {
		res.addWarning("declared task count %d does not match the %d tasks found", declaredTaskCount, len(flat))
	}
	if declaredMaxDepth > 0 && declaredMaxDepth != maxDepth {
		res.addWarning("declared max depth %d does not match the recomputed depth %d", declaredMaxDepth, maxDepth)
	}

	res.Statistics = computeStatistics(flat, relationships, maxDepth)
	return res
}

// DetectCycles searches the childID -> parentID map for cycles, independent of
// the forest shape, so a malformed relationship map is caught even when the
// tree looks fine. Each distinct cycle is returned as an ordered id sequence;
// an acyclic map yields an empty result.
func DetectCycles(relationships map[string]string) [][]string {
	var cycles [][]string
	seenCycle := make(map[string]bool)
	const (
		unvisited = 0
		inPath    = 1
		done      = 2
	)
	state := make(map[string]int, len(relationships))

	for _, start := range relationshipKeys(relationships) {
		if state[start] != unvisited {
			continue
		}
		var path []string
		node := start
		for {
			if state[node] == inPath {
				// Found a cycle: slice the path from the first occurrence.
				for i, id := range path {
					if id == node {
						cycle := append([]string(nil), path[i:]...)
						key := canonicalCycle(cycle)
						if !seenCycle[key] {
							seenCycle[key] = true
							cycles = append(cycles, cycle)
						}
						break
					}
				}
				break
			}
			if state[node] == done {
				break
			}
			state[node] = inPath
			path = append(path, node)
			next, ok := relationships[node]
			if !ok {
				break
			}
			node = next
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return cycles
}

// canonicalCycle produces an orientation-stable key so the same cycle entered
// from different nodes is reported once.
func canonicalCycle(cycle []string) string {
	min := 0
	for i, id := range cycle {
		if id < cycle[min] {
			min = i
		}
	}
	rotated := append(append([]string(nil), cycle[min:]...), cycle[:min]...)
	return strings.Join(rotated, "|")
}

func recomputeDepth(forest []Task) int {
	var walk func(tasks []Task, depth int) int
	walk = func(tasks []Task, depth int) int {
		max := 0
		for _, t := range tasks {
			d := walk(t.Subtasks, depth+1)
			if d > max {
				max = d
			}
		}
		if len(tasks) > 0 && depth > max {
			max = depth
		}
		return max
	}
	return walk(forest, 1)
}

func computeStatistics(flat []Task, relationships map[string]string, maxDepth int) Statistics {
	stats := Statistics{
		TotalTasks:        len(flat),
		RelationshipCount: len(relationships),
		MaxDepthFound:     maxDepth,
	}
	for _, t := range flat {
		switch {
		case t.Level == 0:
			stats.MainTasks++
		case t.Level == 1:
			stats.Subtasks++
		default:
			stats.SubSubtasks++
		}
		if t.HasSubtasks {
			stats.TasksWithSubtasks++
		}
		stats.TotalDuration += t.Duration
	}
	if stats.TotalTasks > 0 {
		stats.AverageDuration = float64(stats.TotalDuration) / float64(stats.TotalTasks)
	}
	return stats
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// relationshipKeys returns the child ids in sorted order so error output and
// cycle reporting are deterministic.
func relationshipKeys(relationships map[string]string) []string {
	keys := make([]string, 0, len(relationships))
	for k := range relationships {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
