package tools

import (
	"context"
	"path/filepath"
	"time"
)

// TestResult is the test-runner collaborator contract. Command records the
// exact invocation for the task result.
type TestResult struct {
	Passed  bool   `json:"passed"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Command string `json:"command"`
}

// TestRunner runs `go test` against the directory containing a test file,
// through the shell collaborator.
type TestRunner struct {
	shell   *Shell
	timeout time.Duration
}

func NewTestRunner(shell *Shell, timeout time.Duration) *TestRunner {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &TestRunner{shell: shell, timeout: timeout}
}

func (r *TestRunner) Run(ctx context.Context, path string) TestResult {
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	command := "go test -v ./" + dir

	res := r.shell.Execute(ctx, command, r.timeout)
	return TestResult{
		Passed:  res.Success,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
		Command: command,
	}
}
