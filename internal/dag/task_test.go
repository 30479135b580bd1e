package dag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNoopTask(id string) *Task {
	return NewTask(id, "test task", BodyFunc(func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}))
}

func TestNewTask(t *testing.T) {
	task := newNoopTask("t1")

	assert.Equal(t, "t1", task.ID())
	assert.Equal(t, "test task", task.Description())
	assert.Equal(t, StatusPending, task.Status())
	assert.Equal(t, 1, task.RetryPolicy().MaxAttempts)
	assert.Nil(t, task.StartTime())
	assert.Nil(t, task.EndTime())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "succeeded", StatusSucceeded.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusSkipped.Terminal())
}

func TestTaskTransitions(t *testing.T) {
	task := newNoopTask("t1")

	// Pending -> Succeeded is not a legal move
	assert.False(t, task.transition(StatusSucceeded))
	assert.Equal(t, StatusPending, task.Status())

	require.True(t, task.transition(StatusRunning))
	assert.Equal(t, StatusRunning, task.Status())
	assert.NotNil(t, task.StartTime())

	// Running -> Skipped is not a legal move
	assert.False(t, task.transition(StatusSkipped))

	require.True(t, task.transition(StatusSucceeded))
	assert.Equal(t, StatusSucceeded, task.Status())
	assert.NotNil(t, task.EndTime())

	// Terminal states do not transition
	assert.False(t, task.transition(StatusRunning))
	assert.False(t, task.transition(StatusFailed))
}

func TestTaskSkippedOnlyFromPending(t *testing.T) {
	task := newNoopTask("t1")
	require.True(t, task.transition(StatusSkipped))
	assert.Equal(t, StatusSkipped, task.Status())

	running := newNoopTask("t2")
	require.True(t, running.transition(StatusRunning))
	assert.False(t, running.transition(StatusSkipped))
}

func TestSetRetryPolicyClampsAttempts(t *testing.T) {
	task := newNoopTask("t1")
	task.SetRetryPolicy(RetryPolicy{MaxAttempts: 0, Delay: time.Second})
	assert.Equal(t, 1, task.RetryPolicy().MaxAttempts)
	assert.Equal(t, time.Second, task.RetryPolicy().Delay)
}
