// Package version holds build information injected at link time.
package version

import "fmt"

// Example: go build -ldflags "-X bundler/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version, or "dev" for local builds.
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String renders the multi-line banner printed by --version.
func String(program string) string {
	return fmt.Sprintf("%s %s\n  commit: %s\n  built:  %s\n", program, Version, Commit, Date)
}
