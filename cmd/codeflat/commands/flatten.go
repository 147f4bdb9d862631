package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeflat/pkg/flatten"
	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
	"github.com/Sumatoshi-tech/codeflat/pkg/persist"
	"github.com/Sumatoshi-tech/codeflat/pkg/report"
	"github.com/Sumatoshi-tech/codeflat/pkg/watch"
)

// ErrCheckFailed is returned by --check when the document is out of date.
var ErrCheckFailed = errors.New("flattened document is out of date")

// FlattenCommand holds configuration for the flatten command.
type FlattenCommand struct {
	source  sourceFlags
	output  string
	check   string
	stats   bool
	watch   bool
	noColor bool
}

// NewFlattenCommand creates the flatten command.
func NewFlattenCommand() *cobra.Command {
	fc := &FlattenCommand{}

	cmd := &cobra.Command{
		Use:   "flatten [entry files...]",
		Short: "Flatten entry files and everything they import",
		Long: `Flatten the given entry files, or every source file below --dir, together
with all files they import. Dependencies come first. Per-file version pragmas
and import lines are removed and one pragma line is written at the top.

Output goes to stdout unless --output is set. An --output path ending in .lz4
is written LZ4 compressed.`,
		RunE: fc.run,
	}

	fc.source.register(cmd)

	cmd.Flags().StringVarP(&fc.output, "output", "o", "", "Write the document to this file (atomic; .lz4 compresses)")
	cmd.Flags().StringVar(&fc.check, "check", "", "Compare with an existing flattened file and fail if it differs")
	cmd.Flags().BoolVar(&fc.stats, "stats", false, "Print a per-file summary table to stderr")
	cmd.Flags().BoolVarP(&fc.watch, "watch", "w", false, "Re-flatten whenever a source file changes")
	cmd.Flags().BoolVar(&fc.noColor, "no-color", false, "Disable colored diff output")

	return cmd
}

func (fc *FlattenCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := fc.source.settings(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("output") {
		cfg.Flatten.Output = fc.output
	}

	mode := observability.ModeCLI
	if fc.watch {
		mode = observability.ModeWatch
	}

	sess, err := newSession(cfg, mode)
	if err != nil {
		return err
	}
	defer sess.close()

	once := func(ctx context.Context) error {
		entries, entriesErr := fc.source.entries(cfg, args)
		if entriesErr != nil {
			return entriesErr
		}

		result, runErr := sess.run(ctx, fc.source.root, entries)
		if runErr != nil {
			return runErr
		}

		return fc.emit(cmd, cfg.Flatten.Output, result)
	}

	err = once(cmd.Context())
	if !fc.watch {
		return err
	}

	if err != nil {
		sess.logger().ErrorContext(cmd.Context(), "flatten failed, waiting for changes", "error", err)
	}

	return fc.watchAndRun(cmd.Context(), sess, once)
}

// emit writes, checks or prints the document and the optional summary.
func (fc *FlattenCommand) emit(cmd *cobra.Command, output string, result *flatten.Result) error {
	if fc.stats {
		writeErr := report.New(result).Write(cmd.ErrOrStderr(), report.FormatTable)
		if writeErr != nil {
			return writeErr
		}
	}

	if fc.check != "" {
		return fc.compare(cmd.OutOrStdout(), result.Document)
	}

	if output == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), result.Document)

		return err
	}

	return persist.Save(output, result.Document)
}

func (fc *FlattenCommand) compare(w io.Writer, document string) error {
	existing, err := persist.Load(fc.check)
	if err != nil {
		return err
	}

	diff, stats := report.Diff(strings.TrimSpace(existing), document, !fc.noColor && !color.NoColor)
	if !stats.Changed() {
		return nil
	}

	_, err = io.WriteString(w, diff)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: %s (%s)", ErrCheckFailed, fc.check, stats.Summary())
}

func (fc *FlattenCommand) watchAndRun(ctx context.Context, sess *session, once func(context.Context) error) error {
	watcher, err := watch.New(fc.source.root, watch.Options{
		Extensions: []string{sourceExtension},
		Ignore:     watch.DefaultIgnore(),
		Logger:     sess.logger(),
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	sess.logger().InfoContext(ctx, "watching for changes", "root", fc.source.root)

	return watcher.Run(ctx, func(ctx context.Context, changed []string) error {
		sess.logger().InfoContext(ctx, "sources changed", "files", len(changed))

		return once(ctx)
	})
}
