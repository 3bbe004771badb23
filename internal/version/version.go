// Package version carries build-time version metadata, injected via
// -ldflags at release time.
package version

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
