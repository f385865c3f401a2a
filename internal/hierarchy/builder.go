package hierarchy

import (
	"strings"

	"github.com/google/uuid"

	"planforge/internal/analysis"
)

// BuildContext carries the per-call inputs of Build. Analysis may be nil, in
// which case root tasks are tagged against the static module catalogue.
type BuildContext struct {
	ProjectID string
	Analysis  *analysis.PromptAnalysis
}

// deliverableTypes marks the raw task types that carry a deliverable through
// to the enriched task. Any other type drops the field.
var deliverableTypes = map[string]bool{
	"deliverable": true,
	"entregable":  true,
	"milestone":   true,
	"hito":        true,
}

// Build enriches a raw task forest: each node receives a fresh unique id, its
// parent's id, a level (roots are 0), and a pre-order OriginalOrder drawn from
// one counter shared across the whole call, so sorting on OriginalOrder
// reconstructs the generation sequence exactly. Root tasks are tagged with a
// module, and aggregated durations are summed bottom-up.
func Build(nodes []RawTask, bctx BuildContext) []Task {
	b := &builder{ctx: bctx}
	return b.buildLevel(nodes, "", 0)
}

type builder struct {
	ctx     BuildContext
	counter int
}

func (b *builder) buildLevel(nodes []RawTask, parentID string, level int) []Task {
	tasks := make([]Task, 0, len(nodes))
	for _, node := range nodes {
		task := Task{
			ID:            uuid.NewString(),
			ProjectID:     b.ctx.ProjectID,
			ParentTaskID:  parentID,
			Title:         node.Title,
			Description:   node.Description,
			Duration:      node.Duration,
			Level:         level,
			IsMainTask:    level == 0,
			OriginalOrder: b.counter,
			Priority:      node.Priority,
			Dependencies:  node.Dependencies,
		}
		b.counter++

		if deliverableTypes[strings.ToLower(node.Type)] {
			task.Deliverable = node.Deliverable
		}
		if level == 0 {
			task.ModuleType = b.tagModule(node.Title)
		}

		task.Subtasks = b.buildLevel(node.Subtasks, task.ID, level+1)
		task.HasSubtasks = len(task.Subtasks) > 0

		if task.HasSubtasks {
			sum := 0
			for _, st := range task.Subtasks {
				sum += st.AggregatedDuration
			}
			task.AggregatedDuration = sum
		} else {
			task.AggregatedDuration = task.Duration
		}

		tasks = append(tasks, task)
	}
	return tasks
}

// tagModule matches a root task title against the analysis modules, first
// match in module list order winning. A match is containment in either
// direction, or any module component keyword contained in the title. Without
// an analysis the static catalogue is used instead.
func (b *builder) tagModule(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	if lower == "" {
		return ""
	}

	if b.ctx.Analysis != nil {
		if !b.ctx.Analysis.IsHierarchical {
			return ""
		}
		for _, m := range b.ctx.Analysis.Modules {
			name := strings.ToLower(m.Name)
			if name == "" {
				continue
			}
			if strings.Contains(lower, name) || strings.Contains(name, lower) {
				return m.Name
			}
			for _, c := range m.Components {
				kw := strings.ToLower(c.Name)
				if kw != "" && strings.Contains(lower, kw) {
					return m.Name
				}
			}
		}
		return ""
	}

	for _, name := range analysis.ModuleCatalog {
		cn := strings.ToLower(name)
		if strings.Contains(lower, cn) || strings.Contains(cn, lower) {
			return name
		}
	}
	return ""
}
