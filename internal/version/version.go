// Package version exposes build metadata set at link time.
package version

// These variables are set at build time using -ldflags.
var (
	// Version is the semantic version of the application.
	Version = "dev"

	// Commit is the git commit hash when the binary was built.
	Commit = "unknown"
)
