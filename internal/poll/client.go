package poll

import (
	"context"
	"fmt"
	"time"
)

// JobStatus is the observed state of a job owned by an external system
type JobStatus int

const (
	// JobPending indicates the job has been accepted but not started
	JobPending JobStatus = iota
	// JobRunning indicates the job is in progress
	JobRunning
	// JobSucceeded indicates the job finished successfully
	JobSucceeded
	// JobFailed indicates the job finished with an error
	JobFailed
	// JobUnknown indicates the external system reported a status this
	// client does not recognize; the poller keeps waiting on it
	JobUnknown
)

// String returns a string representation of the JobStatus
func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the job can no longer change state
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// JobSpec describes the work to submit to the external system
type JobSpec struct {
	ConnectionID string `json:"connectionId" yaml:"connection_id"`
	JobType      string `json:"jobType" yaml:"job_type"`
}

// JobHandle identifies a submitted job. The ID is assigned by the
// external system at submission time.
type JobHandle struct {
	ID string
}

// StatusReport is the outcome of a single status check. Raw preserves
// the status string as reported, for diagnostics when the external
// system's vocabulary grows beyond what this client maps.
type StatusReport struct {
	Status JobStatus
	Result interface{}
	Raw    string
}

// JobClient abstracts the external system the poller drives. Submit
// creates a remote job; Status observes it. A Status implementation must
// return JobUnknown for an unrecognized-but-successful response rather
// than an error.
type JobClient interface {
	Submit(ctx context.Context, spec JobSpec) (JobHandle, error)
	Status(ctx context.Context, handle JobHandle) (StatusReport, error)
}

// SubmissionError means the external system was unreachable or rejected
// the job spec. No remote job exists when this is returned.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job submission failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("job submission failed: %s", e.Reason)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// QueryError is a transport failure during a status check. The poller
// treats it as transient and keeps polling within its deadline.
type QueryError struct {
	JobID string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("status query for job %s failed: %v", e.JobID, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// JobFailedError means the external system reported the job as
// terminally failed.
type JobFailedError struct {
	JobID string
	Raw   string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed", e.JobID)
}

// JobTimeoutError means the job never reached a terminal state within
// the poll deadline. LastStatus and QueryErrors record what was observed
// on the way, for diagnostics.
type JobTimeoutError struct {
	JobID       string
	Elapsed     time.Duration
	LastStatus  JobStatus
	QueryErrors int
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job %s timed out after %v (last status: %s)",
		e.JobID, e.Elapsed, e.LastStatus)
}
