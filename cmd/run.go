package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/glimmrhq/conduct/internal/dag"
	"github.com/glimmrhq/conduct/internal/logger"
	"github.com/glimmrhq/conduct/internal/registry"
	"github.com/glimmrhq/conduct/internal/shell"
	"github.com/glimmrhq/conduct/internal/workflow"
)

var (
	runWorkers     int
	runTaskTimeout time.Duration

	runCmd = &cobra.Command{
		Use:   "run <workflow file>",
		Short: "Execute a workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkflow,
	}
)

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 10, "Maximum number of tasks to run in parallel")
	runCmd.Flags().DurationVar(&runTaskTimeout, "task-timeout", 15*time.Minute, "Timeout for a single task attempt")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	def, err := workflow.Load(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := workflow.NewBuilder(shell.NewRunner(), registry.New(), nil)

	logger.User.Starting(fmt.Sprintf("Running workflow %s", def.Name))

	summary, err := workflow.Run(ctx, def, builder, workflow.RunOptions{
		Workers:     runWorkers,
		TaskTimeout: runTaskTimeout,
	})
	if err != nil {
		return err
	}

	summary.Log()

	if summary.Report.Status == dag.RunFailed {
		return fmt.Errorf("workflow %s failed", def.Name)
	}
	return nil
}
