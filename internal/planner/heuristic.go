package planner

import (
	"context"
	"strings"
)

// HeuristicPolicy generates task lists from fixed keyword-routed templates.
// Fully deterministic: identical requests produce identical plans.
type HeuristicPolicy struct{}

func (HeuristicPolicy) Tasks(_ context.Context, request string, _ map[string]any, strategy Strategy) ([]string, error) {
	switch strategy {
	case Parallel:
		return parallelTasks(request), nil
	case Hierarchical:
		return hierarchicalTasks(), nil
	default:
		return sequentialTasks(request), nil
	}
}

// sequentialTasks routes on the first matching keyword, in priority order:
// test > api > bug/fix > generic.
func sequentialTasks(request string) []string {
	lower := strings.ToLower(request)
	switch {
	case strings.Contains(lower, "test"):
		return []string{
			"Analyze existing test coverage",
			"Write unit tests",
			"Run tests and verify",
		}
	case strings.Contains(lower, "api"):
		return []string{
			"Design API endpoints",
			"Implement API handlers",
			"Add API documentation",
		}
	case strings.Contains(lower, "bug"), strings.Contains(lower, "fix"):
		return []string{
			"Identify the bug location",
			"Analyze root cause",
			"Implement fix",
			"Verify fix works",
		}
	default:
		return []string{
			"Understand requirements",
			"Implement solution",
			"Test implementation",
		}
	}
}

// parallelTasks reuses the sequential list and labels test/documentation
// tasks with the parallel marker. The label does not change execution.
func parallelTasks(request string) []string {
	tasks := sequentialTasks(request)
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		lower := strings.ToLower(task)
		if strings.Contains(lower, "test") || strings.Contains(lower, "document") {
			out = append(out, ParallelMarker+task)
		} else {
			out = append(out, task)
		}
	}
	return out
}

// hierarchicalTasks emits the fixed high-level checklist, inserting sub-items
// directly after their parent. The indentation prefix is cosmetic; the list
// stays flat in execution order.
func hierarchicalTasks() []string {
	highLevel := []string{
		"1. Analyze requirements",
		"2. Design solution architecture",
		"3. Implement core functionality",
		"4. Add error handling and edge cases",
		"5. Write tests",
		"6. Document implementation",
	}

	var out []string
	for _, task := range highLevel {
		out = append(out, task)
		if strings.Contains(task, "Implement") {
			out = append(out,
				"  - Set up project structure",
				"  - Implement main logic",
				"  - Add helper functions",
			)
		} else if strings.Contains(strings.ToLower(task), "test") {
			out = append(out,
				"  - Write unit tests",
				"  - Write integration tests",
			)
		}
	}
	return out
}
