// Package main provides the entry point for the codeflat CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeflat/cmd/codeflat/commands"
	"github.com/Sumatoshi-tech/codeflat/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "codeflat",
		Short: "Codeflat - flatten source files and their dependencies into one file",
		Long: `Codeflat orders source files so every file follows its dependencies,
strips per-file version pragmas and imports, and writes a single document.

Commands:
  flatten   Flatten entry files and everything they import
  graph     Show the dependency order and graph
  mcp       Serve flattening as MCP tools on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewFlattenCommand())
	rootCmd.AddCommand(commands.NewGraphCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codeflat %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
