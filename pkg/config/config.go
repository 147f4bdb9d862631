// Package config loads codeflat settings from a YAML file, the environment
// and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
	"github.com/Sumatoshi-tech/codeflat/pkg/resolver"
)

// Sentinel validation errors.
var (
	ErrEmptyDialect         = errors.New("flatten dialect must not be empty")
	ErrEmptyDeclaration     = errors.New("declaration version must not be empty")
	ErrMultilineDeclaration = errors.New("declaration version must be a single line")
	ErrInvalidMaxFileSize   = errors.New("invalid max file size")
	ErrInvalidWorkers       = errors.New("resolver workers must be positive")
	ErrInvalidCacheSize     = errors.New("resolver cache size must be positive")
	ErrInvalidRemapping     = errors.New("invalid remapping")
	ErrInvalidSampleRatio   = errors.New("sample ratio must be within [0, 1]")
	ErrUnknownLogLevel      = errors.New("unknown log level")
)

// Config holds all codeflat settings.
type Config struct {
	Flatten   FlattenConfig   `mapstructure:"flatten"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// FlattenConfig holds the output document settings.
type FlattenConfig struct {
	DeclarationVersion string `mapstructure:"declaration_version"`
	Dialect            string `mapstructure:"dialect"`
	Output             string `mapstructure:"output"`
	SourceDir          string `mapstructure:"source_dir"`
}

// ResolverConfig holds the filesystem resolution settings.
type ResolverConfig struct {
	Roots       []string `mapstructure:"roots"`
	Remappings  []string `mapstructure:"remappings"`
	MaxFileSize string   `mapstructure:"max_file_size"`
	Workers     int      `mapstructure:"workers"`
	CacheSize   int      `mapstructure:"cache_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	TraceVerbose bool    `mapstructure:"trace_verbose"`
}

// Validate checks the settings and returns the first violation.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Flatten.Dialect) == "" {
		return ErrEmptyDialect
	}

	if strings.TrimSpace(c.Flatten.DeclarationVersion) == "" {
		return ErrEmptyDeclaration
	}

	if strings.ContainsAny(c.Flatten.DeclarationVersion, "\r\n") {
		return ErrMultilineDeclaration
	}

	_, err := c.Resolver.MaxFileSizeBytes()
	if err != nil {
		return err
	}

	if c.Resolver.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Resolver.Workers)
	}

	if c.Resolver.CacheSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Resolver.CacheSize)
	}

	_, err = resolver.ParseRemappings(c.Resolver.Remappings)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRemapping, err)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	if c.Logging.Level != "" {
		var level slog.Level

		if level.UnmarshalText([]byte(c.Logging.Level)) != nil {
			return fmt.Errorf("%w: %q", ErrUnknownLogLevel, c.Logging.Level)
		}
	}

	return nil
}

// MaxFileSizeBytes parses the humanized size limit, e.g. "1MB" or "512 KiB".
func (r ResolverConfig) MaxFileSizeBytes() (int64, error) {
	size, err := humanize.ParseBytes(r.MaxFileSize)
	if err != nil || size == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxFileSize, r.MaxFileSize)
	}

	return int64(size), nil
}

// ResolverOptions builds the resolver configuration for the given project
// root and entry files.
func (c *Config) ResolverOptions(root string, entries []string) (resolver.Config, error) {
	maxSize, err := c.Resolver.MaxFileSizeBytes()
	if err != nil {
		return resolver.Config{}, err
	}

	remappings, err := resolver.ParseRemappings(c.Resolver.Remappings)
	if err != nil {
		return resolver.Config{}, fmt.Errorf("%w: %w", ErrInvalidRemapping, err)
	}

	return resolver.Config{
		Root:        root,
		Entries:     entries,
		Roots:       c.Resolver.Roots,
		Remappings:  remappings,
		MaxFileSize: maxSize,
		Workers:     c.Resolver.Workers,
	}, nil
}

// Observability maps the logging and telemetry settings onto an
// observability configuration for the given mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.Mode = mode
	obsCfg.ServiceVersion = version
	obsCfg.LogLevel = observability.ParseLogLevel(c.Logging.Level)
	obsCfg.LogJSON = c.Logging.JSON
	obsCfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = c.Telemetry.SampleRatio
	obsCfg.TraceVerbose = c.Telemetry.TraceVerbose

	return obsCfg
}
