package shell

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	runner := NewRunner()

	result, err := runner.Run(context.Background(), "echo hello", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Empty(t, result.Stderr)
}

func TestRunNonZeroExit(t *testing.T) {
	runner := NewRunner()

	result, err := runner.Run(context.Background(), "echo oops 1>&2; exit 3", 0)
	require.Error(t, err)

	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
	assert.Contains(t, err.Error(), "code 3")
	assert.Contains(t, err.Error(), "oops")
}

func TestRunTimeout(t *testing.T) {
	runner := NewRunner()

	start := time.Now()
	_, err := runner.Run(context.Background(), "sleep 10", 100*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *ProcessTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 100*time.Millisecond, timeoutErr.Timeout)
	assert.Less(t, time.Since(start), 5*time.Second, "process must be killed, not waited out")
}

func TestRunRespectsContextCancellation(t *testing.T) {
	runner := NewRunner()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := runner.Run(ctx, "sleep 10", 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
