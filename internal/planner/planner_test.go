package planner

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    Complexity
	}{
		{"complex keyword", "implement a parser", Complex},
		{"simple keyword", "fix the typo", Simple},
		{"complex wins over simple", "refactor and fix the cache", Complex},
		{"case insensitive", "REFACTOR everything", Complex},
		{"long request", strings.Repeat("describe the system in detail ", 8), Complex},
		{"moderate default", "tell me about the codebase", Moderate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyComplexity(tt.request); got != tt.want {
				t.Fatalf("ClassifyComplexity(%q)=%q, want %q", tt.request, got, tt.want)
			}
		})
	}
}

func TestClassifyComplexity_Deterministic(t *testing.T) {
	request := "migrate the database"
	first := ClassifyComplexity(request)
	for i := 0; i < 10; i++ {
		if got := ClassifyComplexity(request); got != first {
			t.Fatalf("call %d returned %q, first returned %q", i, got, first)
		}
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		complexity Complexity
		want       Strategy
	}{
		{Simple, Sequential},
		{Moderate, Parallel},
		{Complex, Hierarchical},
	}
	for _, tt := range tests {
		if got := SelectStrategy(tt.complexity); got != tt.want {
			t.Fatalf("SelectStrategy(%q)=%q, want %q", tt.complexity, got, tt.want)
		}
	}
}

func TestCreatePlan_FixBugScenario(t *testing.T) {
	p := New(nil)
	plan, err := p.CreatePlan(context.Background(), "fix the bug in module.py", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.Complexity != Simple {
		t.Fatalf("Complexity=%q, want simple", plan.Complexity)
	}
	if plan.Strategy != Sequential {
		t.Fatalf("Strategy=%q, want sequential", plan.Strategy)
	}
	want := []string{
		"Identify the bug location",
		"Analyze root cause",
		"Implement fix",
		"Verify fix works",
	}
	if !reflect.DeepEqual(plan.Tasks, want) {
		t.Fatalf("Tasks=%v, want %v", plan.Tasks, want)
	}
}

func TestCreatePlan_LongRequestHierarchical(t *testing.T) {
	request := strings.Repeat("describe the whole system thoroughly please ", 6)
	if len(request) <= 200 {
		t.Fatalf("request length %d, want > 200", len(request))
	}

	p := New(nil)
	plan, err := p.CreatePlan(context.Background(), request, nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.Complexity != Complex || plan.Strategy != Hierarchical {
		t.Fatalf("complexity=%q strategy=%q", plan.Complexity, plan.Strategy)
	}

	// 6 checklist items + 3 sub-items under Implement + 2 under Write tests.
	if len(plan.Tasks) != 11 {
		t.Fatalf("task count=%d, want 11: %v", len(plan.Tasks), plan.Tasks)
	}
	implIdx := indexOf(plan.Tasks, "3. Implement core functionality")
	if implIdx < 0 || plan.Tasks[implIdx+1] != "  - Set up project structure" {
		t.Fatalf("sub-items not inserted after Implement: %v", plan.Tasks)
	}
	testIdx := indexOf(plan.Tasks, "5. Write tests")
	if testIdx < 0 || plan.Tasks[testIdx+1] != "  - Write unit tests" {
		t.Fatalf("sub-items not inserted after Write tests: %v", plan.Tasks)
	}
}

func indexOf(list []string, want string) int {
	for i, item := range list {
		if item == want {
			return i
		}
	}
	return -1
}

func TestSequentialTasks_BranchPriority(t *testing.T) {
	tests := []struct {
		request string
		first   string
	}{
		{"add test coverage", "Analyze existing test coverage"},
		{"add an api endpoint", "Design API endpoints"},
		{"there is a bug", "Identify the bug location"},
		{"do something else entirely", "Understand requirements"},
		// "test" has priority over "api" when both appear.
		{"test the api", "Analyze existing test coverage"},
	}
	for _, tt := range tests {
		got := sequentialTasks(tt.request)
		if got[0] != tt.first {
			t.Fatalf("sequentialTasks(%q)[0]=%q, want %q", tt.request, got[0], tt.first)
		}
	}
}

func TestParallelTasks_Markers(t *testing.T) {
	tasks := parallelTasks("change the api")
	want := []string{
		"Design API endpoints",
		"Implement API handlers",
		"[Parallel] Add API documentation",
	}
	if !reflect.DeepEqual(tasks, want) {
		t.Fatalf("parallelTasks=%v, want %v", tasks, want)
	}
}

func TestIdentifyDependencies(t *testing.T) {
	tasks := []string{
		"Design API endpoints",
		"[Parallel] Add API documentation",
		"Implement API handlers",
	}
	deps := IdentifyDependencies(tasks)

	if _, ok := deps["Design API endpoints"]; ok {
		t.Fatal("first task should have no dependency entry")
	}
	if _, ok := deps["[Parallel] Add API documentation"]; ok {
		t.Fatal("marked task should have no dependency entry")
	}
	got := deps["Implement API handlers"]
	if !reflect.DeepEqual(got, []string{"Design API endpoints"}) {
		t.Fatalf("deps=%v, want nearest prior unmarked task", got)
	}
}

func TestOptimize_Dedup(t *testing.T) {
	plan := Plan{Tasks: []string{
		"Write unit tests",
		"  write unit tests ",
		"Run tests",
		"WRITE UNIT TESTS",
	}}
	got := Optimize(plan).Tasks
	want := []string{"Write unit tests", "Run tests"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Optimize=%v, want %v", got, want)
	}
}

func TestParseTaskLines(t *testing.T) {
	content := "- First task\n\n* Second task\n  Third task  \n"
	got := parseTaskLines(content)
	want := []string{"First task", "Second task", "Third task"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseTaskLines=%v, want %v", got, want)
	}
}
