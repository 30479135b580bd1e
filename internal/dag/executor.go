package dag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/glimmrhq/conduct/internal/logger"
)

// ExecutorConfig contains configuration for the graph executor
type ExecutorConfig struct {
	// MaxParallelTasks is the maximum number of tasks to run in parallel
	MaxParallelTasks int

	// TaskTimeout bounds a single attempt of a task body
	TaskTimeout time.Duration
}

// DefaultExecutorConfig returns a default configuration
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxParallelTasks: 10,
		TaskTimeout:      15 * time.Minute,
	}
}

// RunStatus is the terminal state of a whole run
type RunStatus int

const (
	// RunCompleted means every task succeeded
	RunCompleted RunStatus = iota
	// RunFailed means at least one task terminally failed
	RunFailed
)

func (s RunStatus) String() string {
	if s == RunCompleted {
		return "completed"
	}
	return "failed"
}

// TaskResult is the per-task entry of a run report
type TaskResult struct {
	TaskID    string
	Status    Status
	Result    interface{}
	Err       error
	Attempts  int
	StartTime *time.Time
	EndTime   *time.Time
	Duration  time.Duration
}

// RunReport is produced at the end of a run: one terminal status per
// task, plus the overall outcome. The executor does not format output;
// callers render this however they like.
type RunReport struct {
	Status   RunStatus
	Tasks    map[string]*TaskResult
	Duration time.Duration

	// Err is the first task error encountered, for convenience
	Err error
}

// Executor walks a Graph, running each task once all of its predecessors
// have succeeded. Independent tasks run concurrently up to the worker
// budget; a failed task marks everything downstream of it Skipped.
type Executor struct {
	graph  *Graph
	config *ExecutorConfig

	workers   chan struct{}
	mu        sync.Mutex
	scheduled map[string]bool
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	finished  chan struct{}
}

// NewExecutor creates a new graph executor
func NewExecutor(graph *Graph, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	if config.MaxParallelTasks < 1 {
		config.MaxParallelTasks = 1
	}

	return &Executor{
		graph:     graph,
		config:    config,
		workers:   make(chan struct{}, config.MaxParallelTasks),
		scheduled: make(map[string]bool),
		finished:  make(chan struct{}),
	}
}

// Execute runs the graph to completion and returns the run report.
// A validation failure means no task was started.
func (e *Executor) Execute(ctx context.Context) (*RunReport, error) {
	e.startTime = time.Now()

	e.mu.Lock()
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()
	defer e.cancel()

	if err := e.graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	if e.graph.Size() == 0 {
		close(e.finished)
		return e.buildReport(), nil
	}

	roots := e.graph.Roots()
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root tasks found in graph")
	}

	logger.User.Infof("Starting execution of %d tasks (max %d parallel)",
		e.graph.Size(), e.config.MaxParallelTasks)

	go e.logProgress()

	for _, id := range roots {
		e.schedule(id)
	}

	e.wg.Wait()
	close(e.finished)

	report := e.buildReport()
	e.logSummary(report)
	return report, nil
}

// Cancel stops the run: tasks not yet started are never started, and
// running tasks see their context cancelled.
func (e *Executor) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// schedule queues a task for execution exactly once
func (e *Executor) schedule(id string) {
	e.mu.Lock()
	if e.scheduled[id] {
		e.mu.Unlock()
		return
	}
	e.scheduled[id] = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(id)
}

func (e *Executor) run(id string) {
	defer e.wg.Done()

	task, err := e.graph.Task(id)
	if err != nil {
		return
	}

	// Acquire a worker slot; give up if the run is cancelled first
	select {
	case e.workers <- struct{}{}:
		defer func() { <-e.workers }()
	case <-e.ctx.Done():
		if task.transition(StatusSkipped) {
			task.setErr(e.ctx.Err())
		}
		return
	}

	if !task.transition(StatusRunning) {
		return
	}

	logger.User.Infof("Starting task: %s (%s)", id, task.Body().Type())

	execErr := e.executeWithRetry(task)

	if execErr == nil {
		task.transition(StatusSucceeded)
		logger.User.Successf("Task completed: %s", id)
		e.scheduleDependents(id)
	} else {
		task.setErr(execErr)
		task.transition(StatusFailed)
		logger.User.Errorf("Task failed: %s - %v", id, execErr)
		e.skipDependents(id, fmt.Errorf("skipped due to failure of task %s", id))
	}
}

// executeWithRetry runs the task body, re-executing it from scratch after
// the configured delay while attempts remain. External-job bodies submit
// a fresh job on every attempt; no polling state is resumed.
func (e *Executor) executeWithRetry(task *Task) error {
	policy := task.RetryPolicy()

	operation := func() error {
		task.recordAttempt()

		attemptCtx, cancel := context.WithTimeout(e.ctx, e.config.TaskTimeout)
		defer cancel()

		result, err := task.Body().Execute(attemptCtx)
		if err != nil {
			logger.Op.WithFields(map[string]interface{}{
				"task":    task.ID(),
				"attempt": task.Attempts(),
				"max":     policy.MaxAttempts,
			}).Warnf("Attempt failed: %v", err)
			return err
		}

		task.setResult(result)
		return nil
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(policy.Delay)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))
	return backoff.Retry(operation, backoff.WithContext(b, e.ctx))
}

// scheduleDependents queues every successor whose full predecessor set
// has now succeeded (fan-out)
func (e *Executor) scheduleDependents(id string) {
	for _, depID := range e.graph.Dependents(id) {
		if e.graph.Ready(depID) {
			e.schedule(depID)
		}
	}
}

// skipDependents marks everything transitively downstream of a failed
// task as Skipped. Only pending tasks can be skipped; anything already
// running is left to finish on its own.
func (e *Executor) skipDependents(id string, cause error) {
	for _, depID := range e.graph.Dependents(id) {
		task, err := e.graph.Task(depID)
		if err != nil {
			continue
		}
		if task.transition(StatusSkipped) {
			task.setErr(cause)
			logger.Op.WithFields(map[string]interface{}{
				"task":  depID,
				"cause": id,
			}).Debug("Task skipped")
			e.skipDependents(depID, fmt.Errorf("skipped due to failure of task %s", id))
		}
	}
}

// buildReport constructs the final run report. Tasks still pending at
// this point were stranded by a cancelled run and are reported Skipped.
func (e *Executor) buildReport() *RunReport {
	report := &RunReport{
		Status:   RunCompleted,
		Tasks:    make(map[string]*TaskResult),
		Duration: time.Since(e.startTime),
	}

	for _, id := range e.graph.TaskIDs() {
		task, err := e.graph.Task(id)
		if err != nil {
			continue
		}

		status := task.Status()
		if status == StatusPending {
			if task.transition(StatusSkipped) {
				task.setErr(context.Canceled)
			}
			status = task.Status()
		}

		result := &TaskResult{
			TaskID:    id,
			Status:    status,
			Result:    task.Result(),
			Err:       task.Err(),
			Attempts:  task.Attempts(),
			StartTime: task.StartTime(),
			EndTime:   task.EndTime(),
		}
		if result.StartTime != nil && result.EndTime != nil {
			result.Duration = result.EndTime.Sub(*result.StartTime)
		}
		report.Tasks[id] = result

		if status == StatusFailed {
			report.Status = RunFailed
			if report.Err == nil {
				report.Err = fmt.Errorf("task %s failed: %w", id, task.Err())
			}
		}
	}

	return report
}

// Progress returns how many tasks have reached a terminal status
func (e *Executor) Progress() (terminal, total int) {
	for _, id := range e.graph.TaskIDs() {
		task, err := e.graph.Task(id)
		if err != nil {
			continue
		}
		total++
		if task.Status().Terminal() {
			terminal++
		}
	}
	return terminal, total
}

// logProgress provides periodic progress updates during execution
func (e *Executor) logProgress() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-e.finished:
			return
		case <-ticker.C:
			terminal, total := e.Progress()
			logger.User.Infof("Progress: %d/%d tasks finished", terminal, total)
		}
	}
}

func (e *Executor) logSummary(report *RunReport) {
	succeeded, failed, skipped := 0, 0, 0
	for _, r := range report.Tasks {
		switch r.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}

	if report.Status == RunCompleted {
		logger.User.Successf("Execution completed: %d/%d tasks successful in %v",
			succeeded, len(report.Tasks), report.Duration.Round(time.Second))
	} else {
		logger.User.Errorf("Execution failed: %d succeeded, %d failed, %d skipped in %v",
			succeeded, failed, skipped, report.Duration.Round(time.Second))
	}
}
