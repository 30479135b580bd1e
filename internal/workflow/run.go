package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/glimmrhq/conduct/internal/dag"
	"github.com/glimmrhq/conduct/internal/logger"
)

// RunOptions tune a single workflow run
type RunOptions struct {
	Workers     int
	TaskTimeout time.Duration
}

// RunSummary ties a run report to its workflow and run id
type RunSummary struct {
	RunID    string
	Workflow string
	Report   *dag.RunReport
}

// Run builds the graph for a definition and executes it
func Run(ctx context.Context, def *Definition, builder *Builder, opts RunOptions) (*RunSummary, error) {
	graph, err := builder.Build(def)
	if err != nil {
		return nil, err
	}

	config := dag.DefaultExecutorConfig()
	if opts.Workers > 0 {
		config.MaxParallelTasks = opts.Workers
	}
	if opts.TaskTimeout > 0 {
		config.TaskTimeout = opts.TaskTimeout
	}

	runID := uuid.NewString()
	logger.Op.WithFields(map[string]interface{}{
		"workflow": def.Name,
		"run":      runID,
		"tasks":    graph.Size(),
	}).Info("Starting workflow run")

	executor := dag.NewExecutor(graph, config)
	report, err := executor.Execute(ctx)
	if err != nil {
		return nil, err
	}

	return &RunSummary{
		RunID:    runID,
		Workflow: def.Name,
		Report:   report,
	}, nil
}

// Log renders the summary through the user logger, one line per task
func (s *RunSummary) Log() {
	logger.User.Infof("Run %s of workflow %s: %s", s.RunID, s.Workflow, s.Report.Status)

	for _, id := range sortedTaskIDs(s.Report) {
		result := s.Report.Tasks[id]
		line := fmt.Sprintf("  %-30s %s", id, result.Status)
		if result.Attempts > 1 {
			line += fmt.Sprintf(" (%d attempts)", result.Attempts)
		}
		if result.Err != nil {
			line += fmt.Sprintf(": %v", result.Err)
		}
		if result.Status == dag.StatusFailed {
			logger.User.Error(line)
		} else {
			logger.User.Info(line)
		}
	}
}

func sortedTaskIDs(report *dag.RunReport) []string {
	ids := make([]string, 0, len(report.Tasks))
	for id := range report.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
