package planner

import (
	"context"
	"fmt"
	"strings"
)

type Complexity string

const (
	Simple   Complexity = "simple"
	Moderate Complexity = "moderate"
	Complex  Complexity = "complex"
)

type Strategy string

const (
	Sequential   Strategy = "sequential"
	Parallel     Strategy = "parallel"
	Hierarchical Strategy = "hierarchical"
)

// ParallelMarker labels tasks the parallel strategy considers independent.
// It is informational only; execution order is always the flat plan order.
const ParallelMarker = "[Parallel] "

// Plan is the ordered task list for one request plus an advisory dependency
// map. Immutable after creation except for the Optimize dedup pass.
type Plan struct {
	Tasks        []string            `json:"tasks"`
	Dependencies map[string][]string `json:"dependencies"`
	Complexity   Complexity          `json:"complexity"`
	Strategy     Strategy            `json:"strategy"`
}

// Policy produces the ordered task list for a request under a chosen
// strategy. HeuristicPolicy is the deterministic default; a model-backed
// implementation can be swapped in without touching orchestration, state, or
// memory contracts.
type Policy interface {
	Tasks(ctx context.Context, request string, planCtx map[string]any, strategy Strategy) ([]string, error)
}

type Planner struct {
	policy Policy
}

func New(policy Policy) *Planner {
	if policy == nil {
		policy = HeuristicPolicy{}
	}
	return &Planner{policy: policy}
}

// CreatePlan classifies the request, selects a strategy, generates the task
// list through the policy, and derives the advisory dependency map.
func (p *Planner) CreatePlan(ctx context.Context, request string, planCtx map[string]any) (Plan, error) {
	complexity := ClassifyComplexity(request)
	strategy := SelectStrategy(complexity)

	tasks, err := p.policy.Tasks(ctx, request, planCtx, strategy)
	if err != nil {
		return Plan{}, fmt.Errorf("generate tasks: %w", err)
	}

	return Plan{
		Tasks:        tasks,
		Dependencies: IdentifyDependencies(tasks),
		Complexity:   complexity,
		Strategy:     strategy,
	}, nil
}

var (
	complexKeywords = []string{"implement", "refactor", "optimize", "migrate", "deploy"}
	simpleKeywords  = []string{"fix", "add", "update", "change", "rename"}
)

// ClassifyComplexity is a pure, deterministic heuristic over surface
// keywords. The complex set takes priority when both sets match.
func ClassifyComplexity(request string) Complexity {
	lower := strings.ToLower(request)
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return Complex
		}
	}
	for _, kw := range simpleKeywords {
		if strings.Contains(lower, kw) {
			return Simple
		}
	}
	if len(request) > 200 {
		return Complex
	}
	return Moderate
}

func SelectStrategy(c Complexity) Strategy {
	switch c {
	case Simple:
		return Sequential
	case Moderate:
		return Parallel
	case Complex:
		return Hierarchical
	default:
		return Sequential
	}
}

// IdentifyDependencies links each unmarked task to the nearest prior unmarked
// task. The map is advisory: the execution loop never consults it.
func IdentifyDependencies(tasks []string) map[string][]string {
	deps := map[string][]string{}
	for i, task := range tasks {
		if i == 0 || strings.HasPrefix(task, ParallelMarker) {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if !strings.HasPrefix(tasks[j], ParallelMarker) {
				deps[task] = []string{tasks[j]}
				break
			}
		}
	}
	return deps
}

// Optimize deduplicates tasks by case-insensitive trimmed equality, keeping
// the first occurrence and preserving order.
func Optimize(plan Plan) Plan {
	seen := map[string]bool{}
	unique := make([]string, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		key := strings.ToLower(strings.TrimSpace(task))
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, task)
	}
	plan.Tasks = unique
	return plan
}
