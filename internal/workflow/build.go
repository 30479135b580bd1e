package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/glimmrhq/conduct/internal/dag"
	"github.com/glimmrhq/conduct/internal/poll"
	"github.com/glimmrhq/conduct/internal/registry"
	"github.com/glimmrhq/conduct/internal/shell"
)

// Builder turns a validated Definition into an executable Graph
type Builder struct {
	runner    *shell.Runner
	callbacks *registry.Registry
	jobClient poll.JobClient
}

// NewBuilder creates a builder. jobClient may be nil when the
// definition carries a job_api URL; an HTTP client is created from it.
func NewBuilder(runner *shell.Runner, callbacks *registry.Registry, jobClient poll.JobClient) *Builder {
	if runner == nil {
		runner = shell.NewRunner()
	}
	if callbacks == nil {
		callbacks = registry.New()
	}
	return &Builder{
		runner:    runner,
		callbacks: callbacks,
		jobClient: jobClient,
	}
}

// Build constructs the task graph. Construction-time failures (cycles,
// unknown dependencies, missing collaborators) are fatal: no run starts.
func (b *Builder) Build(def *Definition) (*dag.Graph, error) {
	graph := dag.NewGraph()

	for i := range def.Tasks {
		td := &def.Tasks[i]

		body, err := b.body(def, td)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", td.ID, err)
		}

		task := dag.NewTask(td.ID, td.Description, body)
		maxAttempts, delay := def.retryPolicy(td)
		task.SetRetryPolicy(dag.RetryPolicy{MaxAttempts: maxAttempts, Delay: delay})

		if err := graph.AddTask(task); err != nil {
			return nil, err
		}
	}

	for _, td := range def.Tasks {
		for _, dep := range td.DependsOn {
			if err := graph.AddDependency(dep, td.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	return graph, nil
}

func (b *Builder) body(def *Definition, td *TaskDef) (dag.Body, error) {
	switch td.Type {
	case TypeShell:
		var timeout time.Duration
		if td.Timeout != nil {
			timeout = td.Timeout.Std()
		}
		return &shellBody{runner: b.runner, command: td.Command, timeout: timeout}, nil

	case TypeJob:
		client := b.jobClient
		if client == nil {
			if def.JobAPI == "" {
				return nil, fmt.Errorf("job task needs a job client or a workflow-level job_api")
			}
			client = poll.NewHTTPJobClient(def.JobAPI, nil)
		}
		return &jobBody{client: client, spec: *td.Job, config: td.Poll.Config()}, nil

	case TypeCallback:
		if _, err := b.callbacks.Get(td.Callback); err != nil {
			return nil, err
		}
		return &callbackBody{registry: b.callbacks, name: td.Callback, params: td.Params}, nil

	default:
		return nil, fmt.Errorf("unknown task type %q", td.Type)
	}
}

// shellBody runs a command through the process runner. Exit code 0
// succeeds with stdout as the task result.
type shellBody struct {
	runner  *shell.Runner
	command string
	timeout time.Duration
}

func (s *shellBody) Execute(ctx context.Context) (interface{}, error) {
	result, err := s.runner.Run(ctx, s.command, s.timeout)
	if err != nil {
		return nil, err
	}
	return result.Stdout, nil
}

func (s *shellBody) Type() string {
	return "shell"
}

// jobBody submits an external job and polls it to completion. A fresh
// poller per execution keeps retries as genuinely new submissions.
type jobBody struct {
	client poll.JobClient
	spec   poll.JobSpec
	config poll.PollConfig
}

func (j *jobBody) Execute(ctx context.Context) (interface{}, error) {
	poller, err := poll.New(j.client, j.config)
	if err != nil {
		return nil, err
	}
	return poller.Run(ctx, j.spec)
}

func (j *jobBody) Type() string {
	return "job"
}

// callbackBody invokes a registered callback
type callbackBody struct {
	registry *registry.Registry
	name     string
	params   map[string]string
}

func (c *callbackBody) Execute(ctx context.Context) (interface{}, error) {
	return c.registry.Invoke(ctx, c.name, c.params)
}

func (c *callbackBody) Type() string {
	return "callback"
}
