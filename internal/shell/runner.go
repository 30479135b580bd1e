package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/glimmrhq/conduct/internal/logger"
)

// Result captures one process invocation
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ProcessTimeoutError means the command was killed because it exceeded
// its deadline.
type ProcessTimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *ProcessTimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %v: %s", e.Timeout, e.Command)
}

// Runner executes shell commands with a per-invocation timeout
type Runner struct {
	shell string
}

// NewRunner creates a runner that executes commands via `sh -c`
func NewRunner() *Runner {
	return &Runner{shell: "sh"}
}

// Run executes the command and returns its output. A non-zero exit is
// reported through the error alongside a Result carrying the captured
// stderr; the process is killed when the timeout or ctx expires.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) (*Result, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.shell, "-c", command)
	// Without a WaitDelay, Wait blocks until descendants holding the
	// stdout/stderr pipes exit, even after the shell itself is killed.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Op.Debugf("Running command: %s", command)
	err := cmd.Run()

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.ExitCode = -1
		return result, &ProcessTimeoutError{Command: command, Timeout: timeout}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("command exited with code %d: %s",
				result.ExitCode, firstLine(result.Stderr))
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run command: %w", err)
	}

	return result, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
