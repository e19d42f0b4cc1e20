// Package version holds build-time version information, injected with -ldflags:
//
// -X github.com/vearutop/fetchcache/internal/version.Version=v0.1.0
// -X github.com/vearutop/fetchcache/internal/version.Commit=abc1234
// -X github.com/vearutop/fetchcache/internal/version.Date=2026-02-25T00:00:00Z
package version

import "fmt"

// Variables set at link time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns a single-line version string, e.g. "v0.1.0 (commit abc1234, built 2026-02-25T12:00:00Z)".
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
