package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glimmrhq/conduct/internal/registry"
	"github.com/glimmrhq/conduct/internal/shell"
	"github.com/glimmrhq/conduct/internal/workflow"
)

var (
	graphFormat string

	graphCmd = &cobra.Command{
		Use:   "graph <workflow file>",
		Short: "Render a workflow's dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE:  renderGraph,
	}
)

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "dot", "Output format: dot or json")
}

func renderGraph(cmd *cobra.Command, args []string) error {
	def, err := workflow.Load(args[0])
	if err != nil {
		return err
	}

	builder := workflow.NewBuilder(shell.NewRunner(), registry.New(), nil)
	graph, err := builder.Build(def)
	if err != nil {
		return err
	}

	switch graphFormat {
	case "dot":
		fmt.Fprint(cmd.OutOrStdout(), graph.ToDOT(def.Name))
	case "json":
		out, err := graph.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	default:
		return fmt.Errorf("unknown format %q (want dot or json)", graphFormat)
	}
	return nil
}
