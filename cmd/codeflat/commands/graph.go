package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
	"github.com/Sumatoshi-tech/codeflat/pkg/report"
)

// GraphCommand holds configuration for the graph command.
type GraphCommand struct {
	source sourceFlags
	format string
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	gc := &GraphCommand{}

	cmd := &cobra.Command{
		Use:   "graph [entry files...]",
		Short: "Show the dependency order and graph",
		Long: `Resolve the entry files and print the order they would be flattened in.

Formats:
  table  per-file summary with sizes and direct dependencies
  dot    Graphviz digraph, vertices labelled with their output position
  yaml   machine-readable summary
  json   machine-readable summary`,
		RunE: gc.run,
	}

	gc.source.register(cmd)

	cmd.Flags().StringVarP(&gc.format, "format", "f", string(report.FormatTable),
		fmt.Sprintf("Output format: %v", report.Formats()))

	return cmd
}

func (gc *GraphCommand) run(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(gc.format)
	if err != nil {
		return err
	}

	cfg, err := gc.source.settings(cmd)
	if err != nil {
		return err
	}

	entries, err := gc.source.entries(cfg, args)
	if err != nil {
		return err
	}

	sess, err := newSession(cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	result, err := sess.run(cmd.Context(), gc.source.root, entries)
	if err != nil {
		return err
	}

	return report.New(result).Write(cmd.OutOrStdout(), format)
}
