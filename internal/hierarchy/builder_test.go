package hierarchy

import (
	"sort"
	"testing"

	"planforge/internal/analysis"
)

func sampleForest() []RawTask {
	return []RawTask{
		{
			Title:    "Sales module",
			Duration: 10,
			Subtasks: []RawTask{
				{Title: "Order entry", Duration: 3},
				{
					Title:    "Invoicing",
					Duration: 4,
					Subtasks: []RawTask{
						{Title: "Invoice templates", Duration: 2},
					},
				},
			},
		},
		{Title: "Deployment", Duration: 5},
	}
}

func TestBuild_IdentityAndLevels(t *testing.T) {
	forest := Build(sampleForest(), BuildContext{ProjectID: "p1"})

	if len(forest) != 2 {
		t.Fatalf("roots = %d, want 2", len(forest))
	}
	flat := Flatten(forest)
	if len(flat) != 5 {
		t.Fatalf("total tasks = %d, want 5", len(flat))
	}

	ids := make(map[string]bool)
	for _, task := range flat {
		if task.ID == "" {
			t.Fatalf("task %q has no id", task.Title)
		}
		if ids[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		ids[task.ID] = true
		if task.ProjectID != "p1" {
			t.Fatalf("task %q projectID = %q, want p1", task.Title, task.ProjectID)
		}
	}

	root := forest[0]
	if root.Level != 0 || !root.IsMainTask || root.ParentTaskID != "" {
		t.Fatalf("root = %+v, want level 0 main task with no parent", root)
	}
	child := root.Subtasks[1]
	if child.Level != 1 || child.ParentTaskID != root.ID {
		t.Fatalf("child level/parent = %d/%s, want 1/%s", child.Level, child.ParentTaskID, root.ID)
	}
	grandchild := child.Subtasks[0]
	if grandchild.Level != 2 || grandchild.ParentTaskID != child.ID {
		t.Fatalf("grandchild level/parent = %d/%s, want 2/%s", grandchild.Level, grandchild.ParentTaskID, child.ID)
	}
}

func TestBuild_PreOrderNumbering(t *testing.T) {
	forest := Build(sampleForest(), BuildContext{ProjectID: "p1"})
	flat := Flatten(forest)

	// Flatten walks pre-order, so OriginalOrder must already be sorted and
	// strictly increasing from zero.
	for i, task := range flat {
		if task.OriginalOrder != i {
			t.Fatalf("task %q OriginalOrder = %d, want %d", task.Title, task.OriginalOrder, i)
		}
	}

	// Sorting an arbitrary permutation by OriginalOrder reproduces pre-order.
	shuffled := append([]Task(nil), flat...)
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].Title > shuffled[j].Title })
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].OriginalOrder < shuffled[j].OriginalOrder })
	for i := range flat {
		if shuffled[i].ID != flat[i].ID {
			t.Fatalf("position %d: got %q, want %q", i, shuffled[i].Title, flat[i].Title)
		}
	}
}

func TestBuild_DurationAggregation(t *testing.T) {
	forest := Build(sampleForest(), BuildContext{ProjectID: "p1"})

	var check func(tasks []Task)
	check = func(tasks []Task) {
		for _, task := range tasks {
			if len(task.Subtasks) == 0 {
				if task.AggregatedDuration != task.Duration {
					t.Fatalf("leaf %q aggregated = %d, want duration %d", task.Title, task.AggregatedDuration, task.Duration)
				}
			} else {
				sum := 0
				for _, st := range task.Subtasks {
					sum += st.AggregatedDuration
				}
				if task.AggregatedDuration != sum {
					t.Fatalf("%q aggregated = %d, want children sum %d", task.Title, task.AggregatedDuration, sum)
				}
			}
			check(task.Subtasks)
		}
	}
	check(forest)

	// The authored duration is preserved even where it diverges from the
	// aggregate: Sales is authored as 10 but its leaves sum to 5.
	sales := forest[0]
	if sales.Duration != 10 {
		t.Fatalf("authored duration rewritten to %d, want 10", sales.Duration)
	}
	if sales.AggregatedDuration == sales.Duration {
		t.Fatal("expected authored duration and aggregate to diverge in this fixture")
	}
}

func TestBuild_ModuleTagging(t *testing.T) {
	an := &analysis.PromptAnalysis{
		IsHierarchical: true,
		Modules: []analysis.Module{
			{Name: "Ventas", Order: 0, Components: []analysis.Component{{Name: "facturas"}}},
			{Name: "Inventario", Order: 1},
		},
	}

	forest := Build([]RawTask{
		{Title: "Módulo de Ventas", Duration: 5},
		{Title: "Control de Inventario", Duration: 5},
		{Title: "Gestión de facturas e Inventario", Duration: 5}, // matches both; first in list order wins
		{Title: "Documentation", Duration: 5, Subtasks: []RawTask{
			{Title: "Ventas guide", Duration: 2}, // non-root: never tagged
		}},
	}, BuildContext{ProjectID: "p1", Analysis: an})

	if got := forest[0].ModuleType; got != "Ventas" {
		t.Fatalf("ModuleType = %q, want Ventas", got)
	}
	if got := forest[1].ModuleType; got != "Inventario" {
		t.Fatalf("ModuleType = %q, want Inventario", got)
	}
	if got := forest[2].ModuleType; got != "Ventas" {
		t.Fatalf("ambiguous title tagged %q, want first-match Ventas", got)
	}
	if got := forest[3].ModuleType; got != "" {
		t.Fatalf("unmatched root tagged %q, want empty", got)
	}
	if got := forest[3].Subtasks[0].ModuleType; got != "" {
		t.Fatalf("subtask tagged %q, want empty (roots only)", got)
	}
}

func TestBuild_ModuleTaggingWithoutAnalysis(t *testing.T) {
	forest := Build([]RawTask{
		{Title: "INTRANET portal", Duration: 3},
		{Title: "Completely unrelated", Duration: 3},
	}, BuildContext{ProjectID: "p1"})

	if got := forest[0].ModuleType; got != "INTRANET" {
		t.Fatalf("ModuleType = %q, want catalogue fallback INTRANET", got)
	}
	if got := forest[1].ModuleType; got != "" {
		t.Fatalf("ModuleType = %q, want empty", got)
	}
}

func TestBuild_NonHierarchicalAnalysisSkipsTagging(t *testing.T) {
	an := &analysis.PromptAnalysis{IsHierarchical: false}
	forest := Build([]RawTask{{Title: "INTRANET portal", Duration: 3}}, BuildContext{ProjectID: "p1", Analysis: an})
	if got := forest[0].ModuleType; got != "" {
		t.Fatalf("ModuleType = %q, want empty for non-hierarchical analysis", got)
	}
}

func TestBuild_DeliverablePassthrough(t *testing.T) {
	forest := Build([]RawTask{
		{Title: "Design review", Duration: 2, Type: "milestone", Deliverable: "signed-off design"},
		{Title: "Research", Duration: 2, Type: "task", Deliverable: "notes"},
	}, BuildContext{ProjectID: "p1"})

	if got := forest[0].Deliverable; got != "signed-off design" {
		t.Fatalf("milestone deliverable = %q, want passthrough", got)
	}
	if got := forest[1].Deliverable; got != "" {
		t.Fatalf("plain task deliverable = %q, want dropped", got)
	}
}

func TestRelationships(t *testing.T) {
	forest := Build(sampleForest(), BuildContext{ProjectID: "p1"})
	rels := Relationships(forest)

	// 5 tasks, 2 roots: 3 child relationships.
	if len(rels) != 3 {
		t.Fatalf("relationships = %d, want 3", len(rels))
	}
	for childID, parentID := range rels {
		if childID == parentID {
			t.Fatalf("self relationship for %s", childID)
		}
	}
}
