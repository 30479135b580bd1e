package cmd

import (
	"github.com/spf13/cobra"

	"github.com/glimmrhq/conduct/internal/logger"
	"github.com/glimmrhq/conduct/internal/registry"
	"github.com/glimmrhq/conduct/internal/shell"
	"github.com/glimmrhq/conduct/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow file>",
	Short: "Parse a workflow file and validate its dependency graph",
	Args:  cobra.ExactArgs(1),
	RunE:  validateWorkflow,
}

func validateWorkflow(cmd *cobra.Command, args []string) error {
	def, err := workflow.Load(args[0])
	if err != nil {
		return err
	}

	builder := workflow.NewBuilder(shell.NewRunner(), registry.New(), nil)
	graph, err := builder.Build(def)
	if err != nil {
		return err
	}

	logger.User.Successf("Workflow %s is valid: %d tasks, %d roots",
		def.Name, graph.Size(), len(graph.Roots()))
	return nil
}
