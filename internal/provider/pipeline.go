package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"planforge/internal/hierarchy"
	"planforge/internal/repair"
)

// excerptLen bounds the head/tail excerpts carried in malformed-response
// diagnostics.
const excerptLen = 120

// decodeDraft recovers a Draft from raw LLM output: clean, decode, then
// best-effort structural repair, then scan for embedded JSON objects. Failure
// yields a MalformedResponseError with diagnostics.
func decodeDraft(raw string) (*Draft, error) {
	cleaned := repair.Clean(raw)

	var draft Draft
	if err := json.Unmarshal([]byte(cleaned), &draft); err == nil {
		return &draft, nil
	}

	if fixed, ok := repair.Attempt(cleaned); ok {
		if err := json.Unmarshal([]byte(fixed), &draft); err == nil {
			return &draft, nil
		}
	}

	// Last resort: the payload may be one of several objects buried in prose.
	for _, candidate := range repair.ExtractObjects(raw) {
		var d Draft
		if err := json.Unmarshal([]byte(candidate), &d); err == nil && len(d.Tasks) > 0 {
			return &d, nil
		}
	}

	return nil, &MalformedResponseError{
		RawLen:     len(raw),
		CleanedLen: len(cleaned),
		Head:       excerpt(raw, true),
		Tail:       excerpt(raw, false),
	}
}

func excerpt(s string, head bool) string {
	if len(s) <= excerptLen {
		return s
	}
	if head {
		return s[:excerptLen]
	}
	return s[len(s)-excerptLen:]
}

// checkDraftShape verifies the minimum project shape before building: a name,
// a non-empty task list, and a title plus positive duration on every task.
// All problems are collected in one pass.
func checkDraftShape(draft *Draft) error {
	var problems []string
	if strings.TrimSpace(draft.Name) == "" {
		problems = append(problems, "project name is empty")
	}
	if len(draft.Tasks) == 0 {
		problems = append(problems, "project has no tasks")
	}
	var walk func(tasks []hierarchy.RawTask, path string)
	walk = func(tasks []hierarchy.RawTask, path string) {
		for i, task := range tasks {
			where := fmt.Sprintf("%s[%d]", path, i)
			if strings.TrimSpace(task.Title) == "" {
				problems = append(problems, where+" has no title")
			}
			if task.Duration < 1 {
				problems = append(problems, fmt.Sprintf("%s (%q) has invalid duration %d", where, task.Title, task.Duration))
			}
			walk(task.Subtasks, where+".subtasks")
		}
	}
	walk(draft.Tasks, "tasks")

	if len(problems) > 0 {
		return &DraftError{Problems: problems}
	}
	return nil
}

// buildProject turns a raw response into a validated Project. When the built
// hierarchy fails structural validation, the forest is rebuilt flat (every
// task promoted to a root) and revalidated instead of aborting the attempt.
func buildProject(raw string, opts GenerateOptions) (*Project, error) {
	draft, err := decodeDraft(raw)
	if err != nil {
		return nil, err
	}
	if err := checkDraftShape(draft); err != nil {
		return nil, err
	}

	projectID := uuid.NewString()
	bctx := hierarchy.BuildContext{ProjectID: projectID, Analysis: opts.Analysis}

	tasks := hierarchy.Build(draft.Tasks, bctx)
	res := validateForest(tasks, opts)
	if !res.IsValid {
		flat := flattenRaw(draft.Tasks)
		tasks = hierarchy.Build(flat, bctx)
		if flatRes := validateForest(tasks, opts); !flatRes.IsValid {
			return nil, &DraftError{Problems: append(res.Errors, flatRes.Errors...)}
		}
	}

	return &Project{
		ID:          projectID,
		Name:        draft.Name,
		Description: draft.Description,
		Tasks:       tasks,
		TeamMembers: draft.TeamMembers,
	}, nil
}

func validateForest(tasks []hierarchy.Task, opts GenerateOptions) hierarchy.ValidationResult {
	flat := hierarchy.Flatten(tasks)
	depth := 1
	if opts.Analysis != nil && opts.Analysis.SuggestedLevels > 0 {
		depth = opts.Analysis.SuggestedLevels
	}
	return hierarchy.Validate(tasks, hierarchy.Relationships(tasks), len(flat), depth)
}

// flattenRaw demotes a nested raw forest to a flat list of root tasks in
// pre-order, used as the non-hierarchical fallback when the nested build
// fails validation.
func flattenRaw(tasks []hierarchy.RawTask) []hierarchy.RawTask {
	var out []hierarchy.RawTask
	var walk func(nodes []hierarchy.RawTask)
	walk = func(nodes []hierarchy.RawTask) {
		for _, n := range nodes {
			flat := n
			flat.Subtasks = nil
			out = append(out, flat)
			walk(n.Subtasks)
		}
	}
	walk(tasks)
	return out
}
