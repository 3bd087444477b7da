// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

// Build-time variables set by ldflags, e.g.
// -X github.com/MeKo-Tech/pricetag/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("pricetag %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
