package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".codeflat"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for codeflat settings.
const envPrefix = "CODEFLAT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// DefaultEnvFile is the dotenv file loaded before environment binding.
const DefaultEnvFile = ".env"

type loadOptions struct {
	envFile string
}

// Option customizes LoadConfig.
type Option func(*loadOptions)

// WithEnvFile loads variables from the given dotenv file. Variables already
// set in the process environment win. An empty path disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(opts *loadOptions) {
		opts.envFile = path
	}
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string, options ...Option) (*Config, error) {
	opts := loadOptions{envFile: DefaultEnvFile}
	for _, option := range options {
		option(&opts)
	}

	if opts.envFile != "" {
		envErr := godotenv.Load(opts.envFile)
		if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", envErr)
		}
	}

	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if used := viperCfg.ConfigFileUsed(); used != "" && readErr == nil {
		schemaErr := ValidateFile(used)
		if schemaErr != nil {
			return nil, schemaErr
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Flatten: FlattenConfig{
			DeclarationVersion: DefaultDeclarationVersion,
			Dialect:            DefaultDialect,
			Output:             DefaultOutput,
			SourceDir:          DefaultSourceDir,
		},
		Resolver: ResolverConfig{
			Roots:       DefaultRoots(),
			Remappings:  []string{},
			MaxFileSize: DefaultMaxFileSize,
			Workers:     DefaultWorkers,
			CacheSize:   DefaultCacheSize,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
			JSON:  DefaultLogJSON,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: DefaultOTLPEndpoint,
			OTLPInsecure: DefaultOTLPInsecure,
			SampleRatio:  DefaultSampleRatio,
			TraceVerbose: DefaultTraceVerbose,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("flatten.declaration_version", DefaultDeclarationVersion)
	viperCfg.SetDefault("flatten.dialect", DefaultDialect)
	viperCfg.SetDefault("flatten.output", DefaultOutput)
	viperCfg.SetDefault("flatten.source_dir", DefaultSourceDir)

	viperCfg.SetDefault("resolver.roots", DefaultRoots())
	viperCfg.SetDefault("resolver.remappings", []string{})
	viperCfg.SetDefault("resolver.max_file_size", DefaultMaxFileSize)
	viperCfg.SetDefault("resolver.workers", DefaultWorkers)
	viperCfg.SetDefault("resolver.cache_size", DefaultCacheSize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.trace_verbose", DefaultTraceVerbose)
}
