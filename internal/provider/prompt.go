package provider

import (
	"fmt"
	"strings"

	"planforge/internal/analysis"
)

const systemPrompt = `You are a project planning assistant. You turn a project description into a concrete task plan.

You MUST respond with ONLY a JSON object, no prose, no markdown fences, with exactly this shape:
{
  "name": "project name",
  "description": "one-paragraph summary",
  "tasks": [
    {
      "title": "task title",
      "description": "what this task covers",
      "duration": 3,
      "priority": "high|medium|low",
      "type": "task|milestone|deliverable",
      "deliverable": "only for milestone/deliverable types",
      "subtasks": []
    }
  ],
  "teamMembers": [{"name": "role holder", "role": "role"}]
}

Rules:
- duration is a whole number of days, always >= 1
- every task needs a non-empty title
- omit teamMembers unless asked for them`

// buildUserPrompt assembles the generation request from the caller's options
// and the prompt analysis. A hierarchical analysis gets the nested template
// with module hints; otherwise the plan is requested flat.
func buildUserPrompt(prompt string, opts GenerateOptions) string {
	var sb strings.Builder
	sb.WriteString("Project description:\n")
	sb.WriteString(prompt)
	sb.WriteString("\n\n")

	an := opts.Analysis
	if an != nil && an.IsHierarchical {
		fmt.Fprintf(&sb, "Structure the plan hierarchically with up to %d levels (tasks, subtasks", an.SuggestedLevels)
		if an.SuggestedLevels >= 3 {
			sb.WriteString(", sub-subtasks")
		}
		sb.WriteString(").\n")
		if len(an.Modules) > 0 {
			sb.WriteString("Create one main task per module:\n")
			for _, m := range an.Modules {
				sb.WriteString("- ")
				sb.WriteString(m.Name)
				writeComponentHint(&sb, m)
				sb.WriteString("\n")
			}
		}
		if an.Language == analysis.LanguageSpanish {
			sb.WriteString("Write all titles and descriptions in Spanish.\n")
		}
	} else {
		sb.WriteString("Produce a flat list of tasks with empty subtasks arrays.\n")
	}

	if opts.Complexity != "" {
		fmt.Fprintf(&sb, "Requested detail level: %s.\n", opts.Complexity)
	}
	fmt.Fprintf(&sb, "Use at most %d tasks in total, including subtasks.\n", opts.maxTasks())
	if opts.IncludeTeamMembers {
		sb.WriteString("Include a teamMembers array with suggested roles.\n")
	}
	return sb.String()
}

func writeComponentHint(sb *strings.Builder, m analysis.Module) {
	if len(m.Components) == 0 {
		return
	}
	names := make([]string, 0, len(m.Components))
	for _, c := range m.Components {
		names = append(names, c.Name)
	}
	sb.WriteString(" (covering: ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(")")
}
