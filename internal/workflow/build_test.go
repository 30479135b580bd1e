package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimmrhq/conduct/internal/dag"
	"github.com/glimmrhq/conduct/internal/poll"
	"github.com/glimmrhq/conduct/internal/registry"
)

func mustParse(t *testing.T, yaml string) *Definition {
	t.Helper()
	def, err := Parse([]byte(yaml))
	require.NoError(t, err)
	return def
}

func TestBuildShellWorkflow(t *testing.T) {
	def := mustParse(t, `
name: build
tasks:
  - id: first
    type: shell
    command: echo one
  - id: second
    type: shell
    command: echo two
    depends_on: [first]
`)

	graph, err := NewBuilder(nil, nil, nil).Build(def)
	require.NoError(t, err)

	assert.Equal(t, 2, graph.Size())
	assert.Equal(t, []string{"first"}, graph.Roots())
	assert.Equal(t, []string{"first"}, graph.Dependencies("second"))

	task, err := graph.Task("first")
	require.NoError(t, err)
	assert.Equal(t, "shell", task.Body().Type())
}

func TestBuildAppliesRetryPolicy(t *testing.T) {
	def := mustParse(t, `
name: build
defaults:
  retries: 1
  retry_delay: 5m
tasks:
  - id: only
    type: shell
    command: echo hi
`)

	graph, err := NewBuilder(nil, nil, nil).Build(def)
	require.NoError(t, err)

	task, err := graph.Task("only")
	require.NoError(t, err)
	assert.Equal(t, 2, task.RetryPolicy().MaxAttempts)
}

func TestBuildRejectsCycle(t *testing.T) {
	def := mustParse(t, `
name: cyclic
tasks:
  - id: a
    type: shell
    command: echo a
    depends_on: [b]
  - id: b
    type: shell
    command: echo b
    depends_on: [a]
`)

	_, err := NewBuilder(nil, nil, nil).Build(def)

	var cycleErr *dag.CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestBuildRejectsUnknownCallback(t *testing.T) {
	def := mustParse(t, `
name: callbacks
tasks:
  - id: notify
    type: callback
    callback: page_oncall
`)

	_, err := NewBuilder(nil, nil, nil).Build(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_oncall")
}

func TestBuildJobTaskNeedsClientOrAPI(t *testing.T) {
	def := mustParse(t, `
name: jobs
tasks:
  - id: sync
    type: job
    job:
      connection_id: c1
      job_type: sync
`)

	_, err := NewBuilder(nil, nil, nil).Build(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job_api")

	// An injected client satisfies the requirement without a job_api URL
	_, err = NewBuilder(nil, nil, &stubJobClient{}).Build(def)
	assert.NoError(t, err)
}

type stubJobClient struct {
	submits int32
}

func (c *stubJobClient) Submit(ctx context.Context, spec poll.JobSpec) (poll.JobHandle, error) {
	atomic.AddInt32(&c.submits, 1)
	return poll.JobHandle{ID: "job-1"}, nil
}

func (c *stubJobClient) Status(ctx context.Context, handle poll.JobHandle) (poll.StatusReport, error) {
	return poll.StatusReport{Status: poll.JobSucceeded, Result: "synced"}, nil
}

func TestRunWorkflow(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(id string) {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
	}

	callbacks := registry.New()
	require.NoError(t, callbacks.Register("record", func(ctx context.Context, params map[string]string) (interface{}, error) {
		record(params["id"])
		return params["id"], nil
	}))

	def := mustParse(t, `
name: fanout
tasks:
  - id: start
    type: callback
    callback: record
    params: {id: start}
  - id: left
    type: callback
    callback: record
    params: {id: left}
    depends_on: [start]
  - id: right
    type: callback
    callback: record
    params: {id: right}
    depends_on: [start]
  - id: finish
    type: callback
    callback: record
    params: {id: finish}
    depends_on: [left, right]
`)

	builder := NewBuilder(nil, callbacks, nil)
	summary, err := Run(context.Background(), def, builder, RunOptions{Workers: 4})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "fanout", summary.Workflow)
	assert.Equal(t, dag.RunCompleted, summary.Report.Status)
	require.Len(t, summary.Report.Tasks, 4)
	for id, result := range summary.Report.Tasks {
		assert.Equal(t, dag.StatusSucceeded, result.Status, id)
	}

	require.Len(t, order, 4)
	assert.Equal(t, "start", order[0])
	assert.Equal(t, "finish", order[3])
}

func TestRunWorkflowSkipsDownstreamOfFailure(t *testing.T) {
	callbacks := registry.New()
	require.NoError(t, callbacks.Register("fail", func(ctx context.Context, params map[string]string) (interface{}, error) {
		return nil, assert.AnError
	}))

	def := mustParse(t, `
name: failing
tasks:
  - id: boom
    type: callback
    callback: fail
  - id: downstream
    type: callback
    callback: log
    depends_on: [boom]
`)

	builder := NewBuilder(nil, callbacks, nil)
	summary, err := Run(context.Background(), def, builder, RunOptions{})
	require.NoError(t, err, "task failure is reported in the summary, not as a run error")

	assert.Equal(t, dag.RunFailed, summary.Report.Status)
	assert.Equal(t, dag.StatusFailed, summary.Report.Tasks["boom"].Status)
	assert.Equal(t, dag.StatusSkipped, summary.Report.Tasks["downstream"].Status)
}

func TestRunWorkflowWithJobTask(t *testing.T) {
	client := &stubJobClient{}

	def := mustParse(t, `
name: sync
tasks:
  - id: sync
    type: job
    job:
      connection_id: c1
      job_type: sync
    poll:
      interval: 1ms
      max_wait: 1s
`)

	builder := NewBuilder(nil, nil, client)
	summary, err := Run(context.Background(), def, builder, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, dag.RunCompleted, summary.Report.Status)
	assert.Equal(t, "synced", summary.Report.Tasks["sync"].Result)
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.submits))
}
