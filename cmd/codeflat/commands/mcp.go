package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codeflat/pkg/cache"
	"github.com/Sumatoshi-tech/codeflat/pkg/config"
	"github.com/Sumatoshi-tech/codeflat/pkg/mcp"
	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
	"github.com/Sumatoshi-tech/codeflat/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug       bool
		configPath  string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes codeflat as tools that AI agents can discover and invoke:
  - codeflat_flatten: Flatten inline files or a project into one document
  - codeflat_order: Dependency order and per-file summary, or the cycle`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(cfg, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			meter := providers.Meter

			if metricsAddr != "" {
				promProvider, promHandler, promErr := observability.NewPrometheusProvider()
				if promErr != nil {
					return promErr
				}

				meter = promProvider.Meter("codeflat")

				diag, diagErr := observability.NewDiagnosticsServer(cobraCmd.Context(), metricsAddr,
					observability.DiagnosticsDeps{Metrics: promHandler, Logger: providers.Logger})
				if diagErr != nil {
					return diagErr
				}

				defer func() { _ = diag.Close(context.Background()) }()

				providers.Logger.Info("diagnostics listening", "addr", diag.Addr())
			}

			red, redErr := observability.NewREDMetrics(meter)
			if redErr != nil {
				return redErr
			}

			stats, statsErr := observability.NewFlattenMetrics(meter)
			if statsErr != nil {
				return statsErr
			}

			deps := mcp.ServerDeps{
				Logger:         providers.Logger,
				Metrics:        red,
				Stats:          stats,
				Tracer:         providers.Tracer,
				TracerProvider: providers.TracerProvider,
				Cache:          cache.NewContentCache(cfg.Resolver.CacheSize, cache.DefaultMaxBytes),
			}

			srv := mcp.NewServer(deps)

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: .codeflat.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve /metrics, /healthz and /readyz on this address (e.g. 127.0.0.1:9464)")

	return cmd
}

func initMCPObservability(cfg *config.Config, debug bool) (observability.Providers, error) {
	obsCfg := cfg.Observability(observability.ModeMCP, version.Version)
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.LogJSON = true

	if debug {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	return observability.Init(obsCfg)
}
