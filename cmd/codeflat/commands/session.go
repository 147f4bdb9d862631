// Package commands implements CLI command handlers for codeflat.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeflat/pkg/cache"
	"github.com/Sumatoshi-tech/codeflat/pkg/config"
	"github.com/Sumatoshi-tech/codeflat/pkg/flatten"
	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
	"github.com/Sumatoshi-tech/codeflat/pkg/resolver"
	"github.com/Sumatoshi-tech/codeflat/pkg/version"
)

// sourceExtension selects entry files when none are named.
const sourceExtension = ".sol"

// sourceFlags are the flags shared by commands that resolve a project.
type sourceFlags struct {
	configPath         string
	root               string
	sourceDir          string
	declarationVersion string
	dialect            string
	roots              []string
	remappings         []string
	workers            int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Config file (default: .codeflat.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&f.root, "root", ".", "Project root that import paths are resolved against")
	cmd.Flags().StringVar(&f.sourceDir, "dir", config.DefaultSourceDir,
		"Directory searched for entry files when none are given, relative to --root")
	cmd.Flags().StringVar(&f.declarationVersion, "declaration-version", config.DefaultDeclarationVersion,
		"Version constraint written in the single pragma line")
	cmd.Flags().StringVar(&f.dialect, "dialect", config.DefaultDialect, "Pragma dialect")
	cmd.Flags().StringSliceVar(&f.roots, "lib", nil, "Library directories for bare imports (default: node_modules)")
	cmd.Flags().StringSliceVar(&f.remappings, "remap", nil, "Import remapping as prefix=target (repeatable)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel file loads (0 = config default)")
}

// settings loads the config file and applies the flags the user set.
func (f *sourceFlags) settings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("dir") {
		cfg.Flatten.SourceDir = f.sourceDir
	}

	if flags.Changed("declaration-version") {
		cfg.Flatten.DeclarationVersion = f.declarationVersion
	}

	if flags.Changed("dialect") {
		cfg.Flatten.Dialect = f.dialect
	}

	if flags.Changed("lib") {
		cfg.Resolver.Roots = f.roots
	}

	if flags.Changed("remap") {
		cfg.Resolver.Remappings = append(cfg.Resolver.Remappings, f.remappings...)
	}

	if flags.Changed("workers") {
		cfg.Resolver.Workers = f.workers
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

// entries returns the named entry files, or every source file below the
// configured source directory.
func (f *sourceFlags) entries(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	dir := cfg.Flatten.SourceDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(f.root, dir)
	}

	listed, err := resolver.Entries(dir, sourceExtension)
	if err != nil {
		return nil, err
	}

	// The resolver joins relative entries onto the root again.
	entries := make([]string, len(listed))

	for i, path := range listed {
		entries[i], err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", path, err)
		}
	}

	return entries, nil
}

// session carries the observability providers and shared state of one
// command invocation.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	red       *observability.REDMetrics
	stats     *observability.FlattenMetrics
	cache     *cache.ContentCache
}

func newSession(cfg *config.Config, mode observability.AppMode) (*session, error) {
	providers, err := observability.Init(cfg.Observability(mode, version.Version))
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	stats, err := observability.NewFlattenMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:       cfg,
		providers: providers,
		red:       red,
		stats:     stats,
		cache:     cache.NewContentCache(cfg.Resolver.CacheSize, cache.DefaultMaxBytes),
	}, nil
}

func (s *session) logger() *slog.Logger {
	return s.providers.Logger
}

func (s *session) close() {
	shutdownErr := s.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		s.logger().Warn("observability shutdown failed", "error", shutdownErr)
	}
}

// run resolves the project from disk and flattens it.
func (s *session) run(ctx context.Context, root string, entries []string) (*flatten.Result, error) {
	resolverCfg, err := s.cfg.ResolverOptions(root, entries)
	if err != nil {
		return nil, err
	}

	provider, err := resolver.New(resolverCfg, resolver.Deps{
		Logger:         s.logger(),
		Tracer:         s.providers.Tracer,
		TracerProvider: s.providers.TracerProvider,
		Cache:          s.cache,
		Stats:          s.stats,
	})
	if err != nil {
		return nil, err
	}

	assembler := flatten.NewAssembler(flatten.Options{
		DeclarationVersion: s.cfg.Flatten.DeclarationVersion,
		Dialect:            s.cfg.Flatten.Dialect,
		ToolVersion:        version.Version,
	}, flatten.Deps{
		Logger:  s.logger(),
		Tracer:  s.providers.Tracer,
		Metrics: s.red,
		Stats:   s.stats,
	})

	return assembler.Run(ctx, provider)
}
