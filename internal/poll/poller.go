package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"

	"github.com/glimmrhq/conduct/internal/logger"
)

const (
	defaultInterval       = 30 * time.Second
	defaultMaxWait        = time.Hour
	defaultRequestTimeout = 10 * time.Second
)

// PollConfig controls the polling loop
type PollConfig struct {
	// Interval is the pause between consecutive status checks
	Interval time.Duration

	// MaxWait is the wall-clock deadline for the whole poll
	MaxWait time.Duration

	// RequestTimeout bounds each individual status check
	RequestTimeout time.Duration
}

// DefaultPollConfig mirrors the usual cadence for long-running sync
// jobs: check every 30 seconds, give up after an hour.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:       defaultInterval,
		MaxWait:        defaultMaxWait,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Validate checks the config invariants: Interval > 0, MaxWait >= Interval.
func (c PollConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Interval)
	}
	if c.MaxWait < c.Interval {
		return fmt.Errorf("poll max wait (%v) must be at least the interval (%v)",
			c.MaxWait, c.Interval)
	}
	return nil
}

// Poller drives a submitted job to a terminal state. It submits once,
// then checks status at a fixed interval until the job succeeds, fails,
// or the deadline elapses. Transient query errors do not abort the poll;
// a network blip is not a job failure.
type Poller struct {
	client JobClient
	config PollConfig

	// injectable for simulated-time tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Poller. The config is validated up front so a bad
// interval fails before anything is submitted.
func New(client JobClient, config PollConfig) (*Poller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}

	return &Poller{
		client: client,
		config: config,
		now:    time.Now,
		sleep:  gax.Sleep,
	}, nil
}

// Run submits the job and polls it to completion. On success it returns
// the result payload attached to the terminal status report.
func (p *Poller) Run(ctx context.Context, spec JobSpec) (interface{}, error) {
	handle, err := p.client.Submit(ctx, spec)
	if err != nil {
		return nil, err
	}

	logger.Op.WithFields(map[string]interface{}{
		"job":      handle.ID,
		"interval": p.config.Interval.String(),
		"maxWait":  p.config.MaxWait.String(),
	}).Debug("Job submitted, polling for completion")

	start := p.now()
	lastStatus := JobPending
	queryErrors := 0

	for {
		if err := p.sleep(ctx, p.config.Interval); err != nil {
			return nil, err
		}

		report, err := p.check(ctx, handle)
		if err != nil {
			// Transient: the status endpoint being unreachable says
			// nothing about the job itself
			queryErrors++
			logger.Op.WithFields(map[string]interface{}{
				"job":    handle.ID,
				"errors": queryErrors,
			}).Warnf("Status check failed, will retry: %v", err)
		} else {
			lastStatus = report.Status
			switch report.Status {
			case JobSucceeded:
				logger.Op.Debugf("Job %s completed successfully", handle.ID)
				return report.Result, nil
			case JobFailed:
				return nil, &JobFailedError{JobID: handle.ID, Raw: report.Raw}
			default:
				logger.Op.Debugf("Job %s is %s, waiting", handle.ID, report.Status)
			}
		}

		// Deadline is enforced every iteration regardless of whether the
		// status call itself timed out, so a job stuck in Pending cannot
		// hang the run
		if elapsed := p.now().Sub(start); elapsed >= p.config.MaxWait {
			return nil, &JobTimeoutError{
				JobID:       handle.ID,
				Elapsed:     elapsed,
				LastStatus:  lastStatus,
				QueryErrors: queryErrors,
			}
		}
	}
}

// check performs one status query under the per-check request timeout
func (p *Poller) check(ctx context.Context, handle JobHandle) (StatusReport, error) {
	checkCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	return p.client.Status(checkCtx, handle)
}
