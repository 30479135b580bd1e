package dag

import (
	"context"
	"sync"
	"time"
)

// Status represents the execution status of a task
type Status int

const (
	// StatusPending indicates the task is waiting to be executed
	StatusPending Status = iota
	// StatusRunning indicates the task is currently being executed
	StatusRunning
	// StatusSucceeded indicates the task has completed successfully
	StatusSucceeded
	// StatusFailed indicates the task failed after exhausting its retries
	StatusFailed
	// StatusSkipped indicates the task was never run because a predecessor failed
	StatusSkipped
)

// String returns a string representation of the Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can occur from s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Body is the unit of work a task carries. Execute returns an opaque
// result made available to successor tasks through the run report.
type Body interface {
	Execute(ctx context.Context) (interface{}, error)

	// Type returns a short label for logs ("shell", "job", "callback")
	Type() string
}

// BodyFunc adapts a plain function to the Body interface.
type BodyFunc func(ctx context.Context) (interface{}, error)

func (f BodyFunc) Execute(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

func (f BodyFunc) Type() string {
	return "callback"
}

// RetryPolicy defines how a failed task body is re-executed. Every retry
// is a fresh attempt; no intermediate state survives across attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy runs each task once with no retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// Task is a unit of work with a position in the dependency graph.
// Status, result and error are mutated only by the executor during a run.
type Task struct {
	id          string
	description string
	body        Body
	retry       RetryPolicy

	mu        sync.RWMutex
	status    Status
	result    interface{}
	err       error
	attempts  int
	startTime *time.Time
	endTime   *time.Time
}

// NewTask creates a task in the Pending state with the default retry policy.
func NewTask(id, description string, body Body) *Task {
	return &Task{
		id:          id,
		description: description,
		body:        body,
		retry:       DefaultRetryPolicy(),
		status:      StatusPending,
	}
}

// ID returns the unique identifier for this task
func (t *Task) ID() string {
	return t.id
}

// Description returns a human-readable description
func (t *Task) Description() string {
	return t.description
}

// Body returns the underlying unit of work
func (t *Task) Body() Body {
	return t.body
}

// SetRetryPolicy replaces the task's retry policy. Must be called before
// the task is handed to an executor.
func (t *Task) SetRetryPolicy(p RetryPolicy) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	t.retry = p
}

// RetryPolicy returns the task's retry policy.
func (t *Task) RetryPolicy() RetryPolicy {
	return t.retry
}

// Status returns the current execution status of the task
func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Result returns the opaque result of the last successful execution
func (t *Task) Result() interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Err returns the error from the last execution, if any
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Attempts returns how many times the body has been executed
func (t *Task) Attempts() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attempts
}

// StartTime returns when the task started execution
func (t *Task) StartTime() *time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startTime
}

// EndTime returns when the task reached a terminal status
func (t *Task) EndTime() *time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.endTime
}

// transition moves the task to the given status if the move is legal.
// Legal moves: Pending->Running, Pending->Skipped, Running->Succeeded,
// Running->Failed. Returns false otherwise.
func (t *Task) transition(to Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	legal := false
	switch t.status {
	case StatusPending:
		legal = to == StatusRunning || to == StatusSkipped
	case StatusRunning:
		legal = to == StatusSucceeded || to == StatusFailed
	}
	if !legal {
		return false
	}

	now := time.Now()
	switch to {
	case StatusRunning:
		t.startTime = &now
	case StatusSucceeded, StatusFailed, StatusSkipped:
		t.endTime = &now
	}
	t.status = to
	return true
}

func (t *Task) recordAttempt() {
	t.mu.Lock()
	t.attempts++
	t.mu.Unlock()
}

func (t *Task) setResult(result interface{}) {
	t.mu.Lock()
	t.result = result
	t.mu.Unlock()
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}
