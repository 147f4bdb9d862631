package version

import "runtime/debug"

// Apply exposes apply for tests.
func Apply(info *debug.BuildInfo) { apply(info) }

// Reset restores the link-time defaults.
func Reset() {
	Version = "dev"
	Commit = unknown
	Date = unknown
}
