package dispatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"foreman/internal/tools"
)

type fakeFiles struct {
	contents map[string]string
	writeErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{contents: map[string]string{}}
}

func (f *fakeFiles) Read(path string) (string, error) {
	content, ok := f.contents[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

func (f *fakeFiles) Write(path, content string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.contents[path] = content
	return nil
}

func (f *fakeFiles) Search(pattern string) ([]string, error) {
	var out []string
	for path := range f.contents {
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeValidator struct {
	valid  bool
	errors []string
}

func (v *fakeValidator) Validate(string) tools.Validation {
	return tools.Validation{Valid: v.valid, Errors: v.errors}
}

type fakeRunner struct {
	passed bool
	paths  []string
}

func (r *fakeRunner) Run(_ context.Context, path string) tools.TestResult {
	r.paths = append(r.paths, path)
	return tools.TestResult{
		Passed:  r.passed,
		Stdout:  "ok",
		Command: "go test -v ./" + filepath.Dir(path),
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeFiles, *fakeValidator, *fakeRunner) {
	t.Helper()
	files := newFakeFiles()
	validator := &fakeValidator{valid: true}
	runner := &fakeRunner{passed: true}
	return New(files, validator, runner), files, validator, runner
}

func TestHandlerFor_Priority(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	cases := []struct {
		task string
		want string
	}{
		{"Write unit tests", "test"},
		{"Implement the feature and test it", "test"},
		{"Implement core functionality", "implementation"},
		{"Write the parser", "implementation"},
		{"Analyze requirements", "analyze"},
		{"Fix the bug", "debug"},
		{"Debug the crash", "debug"},
		{"Analyze and fix issues", "analyze"},
		{"Deploy to production", "generic"},
		{"FIX THE BUG", "debug"},
	}
	for _, tc := range cases {
		if got := d.HandlerFor(tc.task); got != tc.want {
			t.Errorf("HandlerFor(%q)=%q, want %q", tc.task, got, tc.want)
		}
	}
}

func TestImplementation_WritesAndValidates(t *testing.T) {
	d, files, _, _ := newTestDispatcher(t)

	res := d.Run(context.Background(), "Implement core functionality", nil)
	if !res.Success {
		t.Fatalf("Run: %+v", res)
	}
	if res.Summary != "Implemented src/implementation.go" {
		t.Fatalf("Summary=%q", res.Summary)
	}
	if _, ok := files.contents["src/implementation.go"]; !ok {
		t.Fatal("file not written")
	}
	if len(res.CodeChanges) != 1 || res.CodeChanges[0].Action != "created" {
		t.Fatalf("CodeChanges=%v", res.CodeChanges)
	}
	if res.CodeChanges[0].Lines == 0 {
		t.Fatal("line count missing")
	}
	if res.Context["last_file"] != "src/implementation.go" || res.Context["last_action"] != "implement" {
		t.Fatalf("Context=%v", res.Context)
	}
	if res.Artifacts == nil || len(res.Artifacts.FilesCreated) != 1 {
		t.Fatalf("Artifacts=%+v", res.Artifacts)
	}
}

func TestImplementation_PathSelection(t *testing.T) {
	cases := []struct {
		task string
		path string
	}{
		{"Implement the api endpoint", "api/endpoints.go"},
		{"Implement the data model", "models/model.go"},
		{"Implement the helper function", "src/implementation.go"},
		{"Implement everything", "src/implementation.go"},
	}
	for _, tc := range cases {
		d, files, _, _ := newTestDispatcher(t)
		res := d.Run(context.Background(), tc.task, nil)
		if !res.Success {
			t.Fatalf("Run(%q): %+v", tc.task, res)
		}
		if _, ok := files.contents[tc.path]; !ok {
			t.Errorf("task %q: want file at %s, have %v", tc.task, tc.path, files.contents)
		}
	}
}

func TestImplementation_TemplateSelection(t *testing.T) {
	d, files, _, _ := newTestDispatcher(t)

	d.Run(context.Background(), "Implement the api endpoint", nil)
	if !strings.Contains(files.contents["api/endpoints.go"], "HealthHandler") {
		t.Fatal("api template not selected")
	}

	d.Run(context.Background(), "Implement the helper function", nil)
	if !strings.Contains(files.contents["src/implementation.go"], "ProcessData") {
		t.Fatal("function template not selected")
	}
}

func TestImplementation_InvalidSource(t *testing.T) {
	d, _, validator, _ := newTestDispatcher(t)
	validator.valid = false
	validator.errors = []string{"1:1: expected declaration"}

	res := d.Run(context.Background(), "Implement core functionality", nil)
	if res.Success {
		t.Fatal("expected failure on invalid source")
	}
	if !strings.Contains(res.Error, "expected declaration") {
		t.Fatalf("Error=%q", res.Error)
	}
	if len(res.CodeChanges) != 1 {
		t.Fatalf("CodeChanges=%v, change record kept on validation failure", res.CodeChanges)
	}
}

func TestTest_RunsGeneratedSuite(t *testing.T) {
	d, files, _, runner := newTestDispatcher(t)

	res := d.Run(context.Background(), "Write unit tests", nil)
	if !res.Success {
		t.Fatalf("Run: %+v", res)
	}
	if res.Summary != "Tests passed" {
		t.Fatalf("Summary=%q", res.Summary)
	}
	if _, ok := files.contents["tests/generated_test.go"]; !ok {
		t.Fatal("test file not written")
	}
	if len(runner.paths) != 1 || runner.paths[0] != "tests/generated_test.go" {
		t.Fatalf("runner paths=%v", runner.paths)
	}
	if res.TestOutput == nil || res.TestOutput.Command == "" {
		t.Fatalf("TestOutput=%+v", res.TestOutput)
	}
	if res.Artifacts == nil || len(res.Artifacts.CommandsExecuted) != 1 {
		t.Fatalf("Artifacts=%+v", res.Artifacts)
	}
}

func TestTest_FailureReported(t *testing.T) {
	d, _, _, runner := newTestDispatcher(t)
	runner.passed = false

	res := d.Run(context.Background(), "Run the test suite", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Summary != "Tests failed" {
		t.Fatalf("Summary=%q", res.Summary)
	}
}

func TestAnalyze_CountsAndIssues(t *testing.T) {
	d, files, _, _ := newTestDispatcher(t)
	files.contents["a.go"] = "package a\n// TODO: one\nvar X = 1\n"
	files.contents["b.go"] = "package b\n// TODO: two\n// TODO: three\n"
	files.contents["README.md"] = "TODO: not a source file\n"

	res := d.Run(context.Background(), "Analyze the codebase", nil)
	if !res.Success {
		t.Fatalf("Run: %+v", res)
	}
	a := res.Analysis
	if a == nil {
		t.Fatal("Analysis missing")
	}
	if a.FileCount != 2 {
		t.Fatalf("FileCount=%d", a.FileCount)
	}
	if a.IssueCount != 3 {
		t.Fatalf("IssueCount=%d", a.IssueCount)
	}
	if res.Context["files_analyzed"] != 2 || res.Context["issues_found"] != 3 {
		t.Fatalf("Context=%v", res.Context)
	}
}

func TestAnalyze_IssuesCappedAtTen(t *testing.T) {
	d, files, _, _ := newTestDispatcher(t)
	var b strings.Builder
	b.WriteString("package a\n")
	for i := 0; i < 15; i++ {
		b.WriteString("// TODO: item\n")
	}
	files.contents["a.go"] = b.String()

	res := d.Run(context.Background(), "Analyze the codebase", nil)
	if res.Analysis.IssueCount != 15 {
		t.Fatalf("IssueCount=%d", res.Analysis.IssueCount)
	}
	if len(res.Analysis.Issues) != 10 {
		t.Fatalf("Issues=%d, want capped at 10", len(res.Analysis.Issues))
	}
}

func TestDebug_FindsAndAppliesFix(t *testing.T) {
	d, files, _, _ := newTestDispatcher(t)
	files.contents["worker.go"] = "package worker\n\nfunc run() error {\n\t_ = err\n\treturn nil\n}\n"

	res := d.Run(context.Background(), "Fix the bug", nil)
	if !res.Success {
		t.Fatalf("Run: %+v", res)
	}
	if len(res.Fixes) != 1 {
		t.Fatalf("Fixes=%v", res.Fixes)
	}
	fix := res.Fixes[0]
	if fix.File != "worker.go" || fix.Line != 4 || fix.Confidence != 0.8 {
		t.Fatalf("fix=%+v", fix)
	}
	if !strings.Contains(files.contents["worker.go"], "return err") {
		t.Fatalf("fix not applied: %q", files.contents["worker.go"])
	}
	if res.Artifacts == nil || len(res.Artifacts.FilesModified) != 1 {
		t.Fatalf("Artifacts=%+v", res.Artifacts)
	}
}

func TestDebug_UsesLastFileFromContext(t *testing.T) {
	d, files, _, _ := newTestDispatcher(t)
	files.contents["recent.go"] = "package recent\n"

	res := d.Run(context.Background(), "Debug the crash", map[string]any{"last_file": "recent.go"})
	if !res.Success {
		t.Fatalf("Run: %+v", res)
	}
	if res.Fixes[0].File != "recent.go" || res.Fixes[0].Line != 1 {
		t.Fatalf("Fixes=%v", res.Fixes)
	}
}

func TestDebug_NoCandidates(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	res := d.Run(context.Background(), "Fix the bug", nil)
	if res.Success {
		t.Fatal("expected failure when nothing to fix")
	}
	if res.Summary != "Found and fixed 0 potential issues" {
		t.Fatalf("Summary=%q", res.Summary)
	}
}

func TestGeneric_Echoes(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	res := d.Run(context.Background(), "Deploy to production", nil)
	if !res.Success {
		t.Fatalf("Run: %+v", res)
	}
	if res.Summary != "Completed: Deploy to production" {
		t.Fatalf("Summary=%q", res.Summary)
	}
	if res.Context["last_task"] != "Deploy to production" {
		t.Fatalf("Context=%v", res.Context)
	}
}

func TestRun_HandlerErrorBecomesFailureResult(t *testing.T) {
	d, files, _, _ := newTestDispatcher(t)
	files.writeErr = fmt.Errorf("disk full")

	res := d.Run(context.Background(), "Implement core functionality", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "disk full") {
		t.Fatalf("Error=%q", res.Error)
	}
	if res.Task != "Implement core functionality" {
		t.Fatalf("Task=%q", res.Task)
	}
}
