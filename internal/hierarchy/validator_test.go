package hierarchy

import (
	"strings"
	"testing"
)

func validForest(t *testing.T) ([]Task, map[string]string) {
	t.Helper()
	forest := Build(sampleForest(), BuildContext{ProjectID: "p1"})
	return forest, Relationships(forest)
}

func TestValidate_ValidForest(t *testing.T) {
	forest, rels := validForest(t)
	res := Validate(forest, rels, 5, 3)

	if !res.IsValid {
		t.Fatalf("IsValid = false, errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("Errors = %v, want none", res.Errors)
	}
	if res.Statistics.TotalTasks != 5 {
		t.Fatalf("TotalTasks = %d, want 5", res.Statistics.TotalTasks)
	}
	if res.Statistics.MainTasks != 2 || res.Statistics.Subtasks != 2 || res.Statistics.SubSubtasks != 1 {
		t.Fatalf("stats = %+v, want 2 main / 2 sub / 1 subsub", res.Statistics)
	}
	if res.Statistics.MaxDepthFound != 3 {
		t.Fatalf("MaxDepthFound = %d, want 3", res.Statistics.MaxDepthFound)
	}
	if res.Statistics.RelationshipCount != 3 {
		t.Fatalf("RelationshipCount = %d, want 3", res.Statistics.RelationshipCount)
	}
}

func TestValidate_CollectsAllFieldErrors(t *testing.T) {
	forest := Build([]RawTask{
		{Title: "", Duration: 0},
		{Title: "ok", Duration: 2},
		{Title: "   ", Duration: -1},
	}, BuildContext{ProjectID: "p1"})
	res := Validate(forest, Relationships(forest), 3, 1)

	if res.IsValid {
		t.Fatal("IsValid = true, want false")
	}
	// Two empty titles + two bad durations: all four collected, not just the first.
	if len(res.Errors) != 4 {
		t.Fatalf("Errors = %v, want 4 accumulated errors", res.Errors)
	}
}

func TestValidate_ExcessiveDepth(t *testing.T) {
	deep := []RawTask{{
		Title: "root", Duration: 1,
		Subtasks: []RawTask{{
			Title: "child", Duration: 1,
			Subtasks: []RawTask{{
				Title: "grandchild", Duration: 1,
				Subtasks: []RawTask{{
					Title: "great-grandchild", Duration: 1,
				}},
			}},
		}},
	}}
	forest := Build(deep, BuildContext{ProjectID: "p1"})
	res := Validate(forest, Relationships(forest), 4, 4)

	if res.IsValid {
		t.Fatal("IsValid = true, want false for 4-level hierarchy")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "depth") {
			found = true
		}
	}
	if !found {
		t.Fatalf("Errors = %v, want one mentioning excessive depth", res.Errors)
	}
	if res.Statistics.MaxDepthFound != 4 {
		t.Fatalf("MaxDepthFound = %d, want 4", res.Statistics.MaxDepthFound)
	}
}

func TestValidate_LevelMismatch(t *testing.T) {
	forest, rels := validForest(t)
	// Corrupt a child's declared level.
	forest[0].Subtasks[0].Level = 5
	res := Validate(forest, rels, 5, 3)

	if res.IsValid {
		t.Fatal("IsValid = true, want false for level mismatch")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "level") {
			found = true
		}
	}
	if !found {
		t.Fatalf("Errors = %v, want a level mismatch error", res.Errors)
	}
}

func TestValidate_DuplicateIDs(t *testing.T) {
	forest, rels := validForest(t)
	forest[1].ID = forest[0].ID
	res := Validate(forest, rels, 5, 3)

	if res.IsValid {
		t.Fatal("IsValid = true, want false for duplicate ids")
	}
}

func TestValidate_TaskCountCeiling(t *testing.T) {
	forest, rels := validForest(t)
	res := Validate(forest, rels, MaxTaskCount+1, 3)

	if res.IsValid {
		t.Fatal("IsValid = true, want false when declared count exceeds ceiling")
	}
	// Statistics are still computed for diagnostics.
	if res.Statistics.TotalTasks != 5 {
		t.Fatalf("TotalTasks = %d, want 5 even when invalid", res.Statistics.TotalTasks)
	}
}

func TestValidate_MalformedRelationshipMap(t *testing.T) {
	forest, _ := validForest(t)
	rels := map[string]string{"ghost-child": "ghost-parent"}
	res := Validate(forest, rels, 5, 3)

	if res.IsValid {
		t.Fatal("IsValid = true, want false for unknown relationship ids")
	}
}

func TestDetectCycles_TwoNodeCycle(t *testing.T) {
	cycles := DetectCycles(map[string]string{"A": "B", "B": "A"})

	if len(cycles) < 1 {
		t.Fatal("DetectCycles() = none, want at least one cycle")
	}
	members := make(map[string]bool)
	for _, id := range cycles[0] {
		members[id] = true
	}
	if !members["A"] || !members["B"] {
		t.Fatalf("cycle = %v, want both A and B", cycles[0])
	}
}

func TestDetectCycles_Acyclic(t *testing.T) {
	maps := []map[string]string{
		{},
		{"A": "B"},
		{"A": "B", "B": "C", "C": "D"},
		{"A": "root", "B": "root", "C": "A"},
	}
	for _, m := range maps {
		if cycles := DetectCycles(m); len(cycles) != 0 {
			t.Fatalf("DetectCycles(%v) = %v, want none", m, cycles)
		}
	}
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	cycles := DetectCycles(map[string]string{"A": "A"})
	if len(cycles) != 1 {
		t.Fatalf("cycles = %v, want exactly one", cycles)
	}
	if len(cycles[0]) != 1 || cycles[0][0] != "A" {
		t.Fatalf("cycle = %v, want [A]", cycles[0])
	}
}

func TestDetectCycles_ReportedOnce(t *testing.T) {
	// The same cycle reached from two entry points must be reported once.
	cycles := DetectCycles(map[string]string{"A": "B", "B": "A", "C": "A", "D": "B"})
	if len(cycles) != 1 {
		t.Fatalf("cycles = %v, want the A/B cycle exactly once", cycles)
	}
}
