// Package version holds build metadata set by the release build:
//
//	go build -ldflags "-X github.com/kailas-cloud/bookrec/internal/version.Version=v1.2.0 ..."
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build for `bookrec --version`.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
