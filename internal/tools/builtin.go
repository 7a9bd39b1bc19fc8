package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FilesystemTool exposes the filesystem collaborator through the registry.
type FilesystemTool struct {
	fs *Filesystem
}

func NewFilesystemTool(fs *Filesystem) *FilesystemTool {
	return &FilesystemTool{fs: fs}
}

func (t *FilesystemTool) Name() string {
	return "filesystem"
}

func (t *FilesystemTool) Description() string {
	return "Perform file system operations (read, write, list, search, mkdir, delete)"
}

func (t *FilesystemTool) Execute(_ context.Context, params json.RawMessage) (string, error) {
	var in struct {
		Operation string `json:"operation"`
		Path      string `json:"path"`
		Content   string `json:"content"`
		Pattern   string `json:"pattern"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return "", fmt.Errorf("filesystem params: %w", err)
	}

	switch in.Operation {
	case "read":
		content, err := t.fs.Read(in.Path)
		if err != nil {
			return "", err
		}
		return mustJSON(map[string]any{"ok": true, "content": content}), nil
	case "write":
		if err := t.fs.Write(in.Path, in.Content); err != nil {
			return "", err
		}
		return mustJSON(map[string]any{"ok": true, "path": in.Path, "size": len(in.Content)}), nil
	case "list":
		path := in.Path
		if path == "" {
			path = "."
		}
		entries, err := t.fs.List(path)
		if err != nil {
			return "", err
		}
		return mustJSON(map[string]any{"ok": true, "entries": entries}), nil
	case "search":
		matches, err := t.fs.Search(in.Pattern)
		if err != nil {
			return "", err
		}
		return mustJSON(map[string]any{"ok": true, "matches": matches}), nil
	case "mkdir":
		if err := t.fs.Mkdir(in.Path); err != nil {
			return "", err
		}
		return mustJSON(map[string]any{"ok": true, "path": in.Path}), nil
	case "delete":
		if err := t.fs.Delete(in.Path); err != nil {
			return "", err
		}
		return mustJSON(map[string]any{"ok": true, "path": in.Path}), nil
	default:
		return "", fmt.Errorf("unknown filesystem operation: %s", in.Operation)
	}
}

// ShellTool exposes the shell collaborator through the registry.
type ShellTool struct {
	shell          *Shell
	defaultTimeout time.Duration
}

func NewShellTool(shell *Shell, defaultTimeout time.Duration) *ShellTool {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &ShellTool{shell: shell, defaultTimeout: defaultTimeout}
}

func (t *ShellTool) Name() string {
	return "shell"
}

func (t *ShellTool) Description() string {
	return "Execute a shell command in the workspace root"
}

func (t *ShellTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var in struct {
		Command        string `json:"command"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return "", fmt.Errorf("shell params: %w", err)
	}

	timeout := t.defaultTimeout
	if in.TimeoutSeconds > 0 {
		timeout = time.Duration(in.TimeoutSeconds) * time.Second
	}
	res := t.shell.Execute(ctx, in.Command, timeout)
	return mustJSON(res), nil
}

// ParserTool exposes source validation through the registry.
type ParserTool struct {
	parser *GoParser
}

func NewParserTool(parser *GoParser) *ParserTool {
	return &ParserTool{parser: parser}
}

func (t *ParserTool) Name() string {
	return "parser"
}

func (t *ParserTool) Description() string {
	return "Validate Go source for syntax errors"
}

func (t *ParserTool) Execute(_ context.Context, params json.RawMessage) (string, error) {
	var in struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return "", fmt.Errorf("parser params: %w", err)
	}
	if strings.TrimSpace(in.Source) == "" {
		return "", fmt.Errorf("parser source is empty")
	}
	return mustJSON(t.parser.Validate(in.Source)), nil
}

// TestRunnerTool exposes the test runner through the registry.
type TestRunnerTool struct {
	runner *TestRunner
}

func NewTestRunnerTool(runner *TestRunner) *TestRunnerTool {
	return &TestRunnerTool{runner: runner}
}

func (t *TestRunnerTool) Name() string {
	return "test_runner"
}

func (t *TestRunnerTool) Description() string {
	return "Run go test against the directory containing a test file"
}

func (t *TestRunnerTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return "", fmt.Errorf("test_runner params: %w", err)
	}
	if strings.TrimSpace(in.Path) == "" {
		return "", fmt.Errorf("test_runner path is empty")
	}
	return mustJSON(t.runner.Run(ctx, in.Path)), nil
}

// GitTool exposes the version-control collaborator through the registry.
type GitTool struct {
	git *Git
}

func NewGitTool(git *Git) *GitTool {
	return &GitTool{git: git}
}

func (t *GitTool) Name() string {
	return "git"
}

func (t *GitTool) Description() string {
	return "Perform git operations (status, add, commit, push, pull, branch, checkout, log)"
}

func (t *GitTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var in struct {
		Operation string            `json:"operation"`
		Args      map[string]string `json:"args"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return "", fmt.Errorf("git params: %w", err)
	}
	if strings.TrimSpace(in.Operation) == "" {
		return "", fmt.Errorf("git operation is empty")
	}
	return mustJSON(t.git.Run(ctx, in.Operation, in.Args)), nil
}
