package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// ExecResult is the shell collaborator contract: a timed-out or failing
// command is a failure result, never an error.
type ExecResult struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

// Shell runs commands in the workspace root with a per-call timeout and
// capped output buffers.
type Shell struct {
	root             string
	outputLimitBytes int
}

func NewShell(root string, outputLimitBytes int) *Shell {
	return &Shell{root: root, outputLimitBytes: outputLimitBytes}
}

func (s *Shell) Execute(ctx context.Context, command string, timeout time.Duration) ExecResult {
	if strings.TrimSpace(command) == "" {
		return ExecResult{Success: false, Error: "shell command is empty", ExitCode: -1}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "/bin/sh", "-lc", command)
	cmd.Dir = s.root

	stdout := newCappedBuffer(s.outputLimitBytes)
	stderr := newCappedBuffer(s.outputLimitBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	result := ExecResult{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err != nil {
		var ee *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			result.ExitCode = 124
			result.Error = fmt.Sprintf("command timed out after %s", timeout)
		case errors.As(err, &ee):
			result.ExitCode = ee.ExitCode()
		default:
			result.ExitCode = -1
			result.Error = err.Error()
		}
	}
	return result
}

type cappedBuffer struct {
	max       int
	buf       bytes.Buffer
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	if max <= 0 {
		max = 1 << 20
	}
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.truncated {
		return len(p), nil
	}
	remain := b.max - b.buf.Len()
	if remain <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remain {
		_, _ = b.buf.Write(p[:remain])
		b.truncated = true
		return len(p), nil
	}
	_, err := b.buf.Write(p)
	return len(p), err
}

func (b *cappedBuffer) String() string {
	if !b.truncated {
		return b.buf.String()
	}
	var out bytes.Buffer
	_, _ = io.Copy(&out, bytes.NewReader(b.buf.Bytes()))
	out.WriteString("\n[output truncated]")
	return out.String()
}
