package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"foreman/internal/workspace"
)

// GitResult is the version-control collaborator contract.
type GitResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// Git runs a fixed set of git operations in the workspace root.
// Availability detection runs once and is cached.
type Git struct {
	ws        *workspace.Workspace
	once      sync.Once
	available bool
	isRepo    bool
	version   string
}

func NewGit(ws *workspace.Workspace) *Git {
	return &Git{ws: ws}
}

// Check returns git availability, repo status, and version.
func (g *Git) Check() (available bool, isRepo bool, version string) {
	g.once.Do(func() {
		g.available, g.version = g.checkGit()
		if g.available {
			g.isRepo = g.checkRepo()
		}
	})
	return g.available, g.isRepo, g.version
}

func (g *Git) checkGit() (bool, string) {
	out, err := exec.Command("git", "--version").Output()
	if err != nil {
		return false, ""
	}
	return true, strings.TrimSpace(string(out))
}

func (g *Git) checkRepo() bool {
	return exec.Command("git", "-C", g.ws.Root(), "rev-parse", "--git-dir").Run() == nil
}

// Run executes one named git operation. Unknown operations and command
// failures come back as failure results.
func (g *Git) Run(ctx context.Context, operation string, args map[string]string) GitResult {
	available, isRepo, _ := g.Check()
	if !available {
		return GitResult{Success: false, Error: "git not installed"}
	}
	if !isRepo && operation != "init" {
		return GitResult{Success: false, Error: "not a git repository"}
	}

	argv, err := g.argvFor(operation, args)
	if err != nil {
		return GitResult{Success: false, Error: err.Error()}
	}

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.ws.Root()}, argv...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return GitResult{Success: false, Output: string(out), Error: err.Error()}
	}
	if operation == "init" {
		g.isRepo = true
	}
	return GitResult{Success: true, Output: string(out)}
}

func (g *Git) argvFor(operation string, args map[string]string) ([]string, error) {
	get := func(key, fallback string) string {
		if v, ok := args[key]; ok && strings.TrimSpace(v) != "" {
			return v
		}
		return fallback
	}

	switch operation {
	case "init":
		return []string{"init"}, nil
	case "status":
		return []string{"status"}, nil
	case "add":
		return []string{"add", get("files", ".")}, nil
	case "commit":
		return []string{"commit", "-m", get("message", "Auto commit")}, nil
	case "push":
		return []string{"push", get("remote", "origin"), get("branch", "main")}, nil
	case "pull":
		return []string{"pull", get("remote", "origin"), get("branch", "main")}, nil
	case "branch":
		return []string{"branch"}, nil
	case "checkout":
		return []string{"checkout", get("branch", "main")}, nil
	case "log":
		return []string{"log", "--oneline", "-10"}, nil
	default:
		return nil, fmt.Errorf("unknown git operation: %s", operation)
	}
}
