package config

// Flatten defaults.
const (
	DefaultDeclarationVersion = "^0.8.0"
	DefaultDialect            = "solidity"
	DefaultSourceDir          = "contracts"
	DefaultOutput             = ""
)

// Resolver defaults.
const (
	DefaultMaxFileSize = "1MB"
	DefaultWorkers     = 4
	DefaultCacheSize   = 512
)

// DefaultRoots are the library directories searched for bare imports.
func DefaultRoots() []string {
	return []string{"node_modules"}
}

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
	DefaultTraceVerbose = false
)
