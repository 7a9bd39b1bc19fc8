package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestShell(t *testing.T) *Shell {
	t.Helper()
	return NewShell(t.TempDir(), 0)
}

func TestShell_Echo(t *testing.T) {
	sh := newTestShell(t)
	res := sh.Execute(context.Background(), "echo hello", 0)
	if !res.Success {
		t.Fatalf("Execute failed: %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Fatalf("Stdout=%q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode=%d", res.ExitCode)
	}
}

func TestShell_NonZeroExit(t *testing.T) {
	sh := newTestShell(t)
	res := sh.Execute(context.Background(), "exit 3", 0)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 3 {
		t.Fatalf("ExitCode=%d, want 3", res.ExitCode)
	}
}

func TestShell_EmptyCommand(t *testing.T) {
	sh := newTestShell(t)
	res := sh.Execute(context.Background(), "   ", 0)
	if res.Success {
		t.Fatal("expected failure for empty command")
	}
	if res.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestShell_Timeout(t *testing.T) {
	sh := newTestShell(t)
	start := time.Now()
	res := sh.Execute(context.Background(), "sleep 5", 100*time.Millisecond)
	if time.Since(start) > 3*time.Second {
		t.Fatal("timeout not enforced")
	}
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.ExitCode != 124 {
		t.Fatalf("ExitCode=%d, want 124", res.ExitCode)
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Fatalf("Error=%q", res.Error)
	}
}

func TestShell_Stderr(t *testing.T) {
	sh := newTestShell(t)
	res := sh.Execute(context.Background(), "echo oops >&2", 0)
	if !res.Success {
		t.Fatalf("Execute failed: %+v", res)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Fatalf("Stderr=%q", res.Stderr)
	}
}
